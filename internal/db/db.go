package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options controls how the SQLite connection pool is initialised.
type Options struct {
	Path        string
	Logger      logger.Interface
	BusyTimeout time.Duration
	MaxPoolSize int
}

const defaultBusyTimeout = 5 * time.Second

// Open establishes the SQLite connection using Gorm. MaxPoolSize bounds the
// connection pool, which is the only shared resource between concurrent
// requests.
func Open(opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		return nil, eris.New("database path is required")
	}

	busyTimeout := opts.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = defaultBusyTimeout
	}

	timeoutMillis := int(busyTimeout / time.Millisecond)
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", opts.Path, timeoutMillis)

	gormLogger := opts.Logger
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, eris.Wrap(err, "opening sqlite database")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB from gorm")
	}

	if opts.MaxPoolSize > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxPoolSize)
		sqlDB.SetMaxIdleConns(opts.MaxPoolSize)
	}

	if err := conn.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d;", timeoutMillis)).Error; err != nil {
		return nil, eris.Wrap(err, "configuring busy timeout pragma")
	}

	if err := conn.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
		return nil, eris.Wrap(err, "setting journal mode to WAL")
	}

	return conn, nil
}

// Close releases the underlying database resources.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "retrieving sql.DB for close")
	}

	if err := sqlDB.Close(); err != nil {
		return eris.Wrap(err, "closing database connection")
	}

	return nil
}

// SQLDB exposes the underlying *sql.DB for health checks.
func SQLDB(db *gorm.DB) (*sql.DB, error) {
	if db == nil {
		return nil, eris.New("gorm.DB is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB")
	}

	return sqlDB, nil
}
