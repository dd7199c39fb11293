// Package history keeps a record of processed workbooks in SQLite.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one processed workbook.
type Run struct {
	ID                     string    `gorm:"primaryKey;size:36" json:"id"`
	Workbook               string    `json:"workbook"`
	CreatedAt              time.Time `gorm:"index" json:"created_at"`
	DurationMS             int64     `json:"duration_ms"`
	TotalRefs              int       `json:"total_refs"`
	ImagesFound            int       `json:"images_found"`
	UploadsSuccessful      int       `json:"uploads_successful"`
	UploadsFailed          int       `json:"uploads_failed"`
	ReferencesWithoutImage int       `json:"references_without_image"`
	IgnoredImages          int       `json:"ignored_images"`
	SkippedImages          int       `json:"skipped_images"`

	Outcomes []RunOutcome `gorm:"foreignKey:RunID" json:"outcomes,omitempty"`
}

// RunOutcome is the result of one upload within a run.
type RunOutcome struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	RunID    string `gorm:"index;size:36" json:"-"`
	Row      int    `gorm:"column:sheet_row" json:"row"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
}

// Store persists runs.
type Store struct {
	DB *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.AutoMigrate(&Run{}, &RunOutcome{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Record stores a completed report with its per-pair outcomes.
func (s *Store) Record(ctx context.Context, summary *models.ReportSummary, duration time.Duration) (*Run, error) {
	if summary == nil {
		return nil, errors.New("nil summary")
	}
	run := &Run{
		ID:                     uuid.NewString(),
		Workbook:               summary.Workbook,
		CreatedAt:              time.Now().UTC(),
		DurationMS:             duration.Milliseconds(),
		TotalRefs:              summary.TotalRefs,
		ImagesFound:            summary.ImagesFound,
		UploadsSuccessful:      summary.UploadsSuccessful,
		UploadsFailed:          summary.UploadsFailed,
		ReferencesWithoutImage: summary.ReferencesWithoutImage,
		IgnoredImages:          summary.IgnoredImages,
		SkippedImages:          summary.SkippedImages,
	}
	for _, o := range summary.Outcomes {
		run.Outcomes = append(run.Outcomes, RunOutcome{
			Row:      o.Row,
			Name:     o.RemoteFilename,
			URL:      o.RemoteURL,
			Status:   string(o.Status),
			Category: o.Category,
			Error:    o.Error,
			Attempts: o.Attempts,
		})
	}

	if err := s.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first, with their outcomes.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.DB.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("sheet_row") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.DB.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("sheet_row") }).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune deletes runs created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&Run{}).Where("created_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("run_id IN ?", ids).Delete(&RunOutcome{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
