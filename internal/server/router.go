// Package server exposes the workbook pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/refimg-go/internal/history"
	"github.com/ukaji3/refimg-go/pkg/refimg"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
)

// Processor runs the pipeline for one uploaded workbook.
type Processor interface {
	Process(ctx context.Context, in refimg.Input) (*models.ReportSummary, error)
}

// HistoryStore records and lists processed workbooks.
type HistoryStore interface {
	Record(ctx context.Context, summary *models.ReportSummary, duration time.Duration) (*history.Run, error)
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
	Ping(ctx context.Context) error
}

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	Processor Processor
	// History is optional; nil disables /history and recording.
	History HistoryStore
	// PublicConfig is served on GET /config. It must not carry credentials.
	PublicConfig any
	Version      string
	Backend      string
	// FileField is the multipart field carrying the workbook.
	FileField string
	// MaxUploadSize bounds the request body. Zero means no extra bound.
	MaxUploadSize int64
	Logger        *slog.Logger
}

// NewRouter creates the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	field := cfg.FileField
	if field == "" {
		field = DefaultFileField
	}

	uploadController := NewUploadController(cfg.Processor, cfg.History, field, cfg.MaxUploadSize, logger)
	healthController := NewHealthController(cfg.History, cfg.Backend, cfg.Version)
	configController := NewConfigController(cfg.PublicConfig)
	historyController := NewHistoryController(cfg.History)

	router.POST("/upload", uploadController.Upload)
	router.GET("/health", healthController.Status)
	router.GET("/config", configController.Show)
	router.GET("/history", historyController.List)
	router.GET("/history/:id", historyController.Show)

	return router
}
