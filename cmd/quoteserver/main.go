package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vsinha/quoting/pkg/infrastructure/catalog"
	"github.com/vsinha/quoting/pkg/infrastructure/config"
	"github.com/vsinha/quoting/pkg/infrastructure/logging"
	"github.com/vsinha/quoting/pkg/interfaces/httpapi"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env, err := config.Load()
	if err != nil {
		return err
	}

	var (
		addr       = flag.String("addr", env.HTTPAddr(), "HTTP listen address")
		catalogDir = flag.String("catalog", "", "Directory containing categories.csv and products.csv")
		driver     = flag.String("driver", env.CatalogDriver(), "Catalog backend: memory, sqlite, postgres")
		dsn        = flag.String("dsn", env.CatalogDSN(), "Catalog database DSN")
	)
	flag.Parse()

	logger, err := logging.NewLogger(logging.Config{Level: env.LogLevel(), Format: env.LogFormat()})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(ctx, catalog.Options{
		Driver:   *driver,
		DSN:      *dsn,
		SeedDir:  *catalogDir,
		CacheTTL: env.CacheTTL(),
	}, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	gin.SetMode(gin.ReleaseMode)
	server := httpapi.NewServer(httpapi.Options{
		Catalog:     cat,
		Logger:      logger,
		MaxSessions: env.MaxSessions(),
	})
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("quote server listening", zap.String("addr", *addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
	}
	return nil
}
