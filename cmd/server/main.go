package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"markwiki/app/internal/backup"
	"markwiki/app/internal/bus"
	"markwiki/app/internal/config"
	appdb "markwiki/app/internal/db"
	"markwiki/app/internal/dbservice"
	apphttp "markwiki/app/internal/http"
	applog "markwiki/app/internal/log"
	"markwiki/app/internal/page"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	dbConn, err := appdb.Open(appdb.Options{
		Path:        cfg.DBPath,
		MaxPoolSize: cfg.DBMaxPoolSize,
	})
	if err != nil {
		return eris.Wrap(err, "opening database")
	}
	defer func() {
		if closeErr := appdb.Close(dbConn); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	if err := page.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "preparing pages table")
	}

	store, err := page.NewStore(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building page store")
	}

	local, err := dbservice.NewLocal(store, logger)
	if err != nil {
		return eris.Wrap(err, "creating database service")
	}

	messageBus := bus.New(logger)

	dbServer, err := dbservice.NewServer(local, logger)
	if err != nil {
		return eris.Wrap(err, "creating database service endpoint")
	}

	stopConsumer, err := dbServer.Attach(messageBus, cfg.DBQueue, cfg.DBMaxPoolSize)
	if err != nil {
		return eris.Wrap(err, "attaching database service to bus")
	}
	defer stopConsumer()

	proxy, err := dbservice.NewProxy(messageBus, cfg.DBQueue)
	if err != nil {
		return eris.Wrap(err, "creating database service proxy")
	}

	backupClient, err := backup.NewClient(backup.Options{
		Endpoint: cfg.BackupURL,
		Logger:   logger,
	})
	if err != nil {
		return eris.Wrap(err, "creating backup client")
	}

	transport, err := apphttp.NewServer(apphttp.Options{
		Service:   proxy,
		Database:  dbConn,
		Backup:    backupClient,
		Logger:    logger,
		SentryHub: sentryHub,
	})
	if err != nil {
		return eris.Wrap(err, "initialising http transport")
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
		Handler: transport.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr":     httpServer.Addr,
		"db_queue": cfg.DBQueue,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}
