package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Markwiki server.
type Config struct {
	DBPath        string
	DBDriver      string
	DBMaxPoolSize int
	DBQueue       string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	BackupURL     string
	ShutdownGrace time.Duration
}

const (
	defaultDBPath        = "./data/markwiki.db"
	defaultDBDriver      = "sqlite"
	defaultDBMaxPool     = 30
	defaultDBQueue       = "wikidb.queue"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultBackupURL     = "https://snippets.glot.io/snippets"
	defaultShutdownGrace = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		DBDriver:      getEnv("DB_DRIVER", defaultDBDriver),
		DBQueue:       getEnv("DB_QUEUE", defaultDBQueue),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		BackupURL:     getEnv("BACKUP_URL", defaultBackupURL),
		ShutdownGrace: defaultShutdownGrace,
	}

	// SQLite is the only driver wired up; rejecting anything else early beats
	// a confusing failure at connection time.
	if cfg.DBDriver != defaultDBDriver {
		return nil, eris.Errorf("unsupported DB_DRIVER value: %s", cfg.DBDriver)
	}

	poolValue := getEnv("DB_MAX_POOL_SIZE", strconv.Itoa(defaultDBMaxPool))
	poolSize, err := strconv.Atoi(poolValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid DB_MAX_POOL_SIZE value: %s", poolValue)
	}
	if poolSize <= 0 {
		return nil, eris.Errorf("DB_MAX_POOL_SIZE must be positive, got %d", poolSize)
	}
	cfg.DBMaxPoolSize = poolSize

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
