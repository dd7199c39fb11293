// Package entrypoint wires configuration into the pipeline and the HTTP service.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/refimg-go/internal/config"
	"github.com/ukaji3/refimg-go/internal/history"
	"github.com/ukaji3/refimg-go/internal/server"
	"github.com/ukaji3/refimg-go/pkg/refimg"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"github.com/ukaji3/refimg-go/pkg/refimg/upload"
)

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewProcessor builds the pipeline with the uploader for the configured backend.
func NewProcessor(cfg *config.Config, logger *slog.Logger) (*refimg.Processor, error) {
	opts, err := cfg.ProcessingOptions()
	if err != nil {
		return nil, err
	}
	upCfg := cfg.UploadConfig()
	connector, err := upload.NewConnector(upCfg)
	if err != nil {
		return nil, err
	}
	uploader, err := upload.New(upCfg, connector, logger)
	if err != nil {
		return nil, err
	}
	return refimg.NewProcessor(opts, uploader, logger)
}

// ProcessFile runs the pipeline once on a workbook on disk.
func ProcessFile(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) (*models.ReportSummary, error) {
	p, err := NewProcessor(cfg, logger)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, refimg.Input{Name: info.Name(), Size: info.Size(), Body: f})
}

// Serve runs the HTTP service until ctx is cancelled, then shuts down
// within the configured timeout.
func Serve(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) error {
	processor, err := NewProcessor(cfg, logger)
	if err != nil {
		return err
	}

	routerCfg := server.RouterConfig{
		Processor:     processor,
		PublicConfig:  cfg.Public(),
		Version:       version,
		Backend:       cfg.Upload.Backend,
		FileField:     cfg.HTTP.FileField,
		MaxUploadSize: cfg.Processing.MaxFileSize,
		Logger:        logger,
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		routerCfg.History = store

		pruner := history.NewPruner(store, cfg.History.PruneSchedule, cfg.History.Retention, logger)
		if err := pruner.Start(ctx); err != nil {
			return err
		}
		defer pruner.Stop()
		logger.Info("history enabled", "path", cfg.History.Path)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "backend", cfg.Upload.Backend, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
