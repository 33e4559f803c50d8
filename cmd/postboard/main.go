// cmd/postboard/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gammanik/postboard/internal/api"
	"github.com/Gammanik/postboard/internal/config"
	"github.com/Gammanik/postboard/internal/ingest"
	"github.com/Gammanik/postboard/internal/metrics"
	"github.com/Gammanik/postboard/internal/poststore"
	"github.com/Gammanik/postboard/internal/storage"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	addr       = flag.String("addr", "", "HTTP address to listen on (overrides config)")
	dbPath     = flag.String("db", "", "Path to posts database (overrides config)")
	uploadsDir = flag.String("uploads", "", "Directory for uploaded files (overrides config)")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		slog.Error("Postboard failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	m := metrics.New()

	// Открываем хранилище постов: один хендл на весь процесс
	store, err := poststore.NewBoltStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open post store: %w", err)
	}
	defer store.Close()
	store.OnSkip = func(key string, err error) {
		m.IncListSkipped()
		logger.Debug("Skipping malformed post record", "key", key, "error", err)
	}

	// Создаем директорию для вложений
	uploads, err := storage.NewUploads(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}

	handler := &api.PostHandler{
		Service: &ingest.Service{
			Store:          store,
			Uploads:        uploads,
			ChunkSize:      cfg.Uploads.ChunkSize,
			RemoveRejected: cfg.Uploads.RemoveRejected,
			Metrics:        m,
			Logger:         logger,
		},
		Store:     store,
		StaticDir: cfg.Static.Dir,
		Logger:    logger,
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, m.Handler()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Postboard starting",
			"addr", cfg.Server.Addr,
			"db", cfg.Storage.DBPath,
			"uploads", cfg.Uploads.Dir)
		errCh <- server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadConfig читает файл настроек и применяет флаги командной строки
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}
	if *uploadsDir != "" {
		cfg.Uploads.Dir = *uploadsDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.Validate()
}
