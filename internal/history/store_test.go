package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSummary(workbook string) *models.ReportSummary {
	return &models.ReportSummary{
		Workbook:          workbook,
		TotalRefs:         3,
		ImagesFound:       2,
		UploadsSuccessful: 1,
		UploadsFailed:     1,
		IgnoredImages:     1,
		Outcomes: []models.UploadOutcome{
			{Row: 7, RemoteFilename: "T608.jpg", Status: models.StatusFailed, Category: "ConnectFailure", Error: "refused", Attempts: 2},
			{Row: 5, RemoteFilename: "CHDJ25001.jpg", RemoteURL: "https://example.com/CHDJ25001.jpg", Status: models.StatusSuccess, Attempts: 1},
		},
	}
}

func ageRun(t *testing.T, store *Store, id string, age time.Duration) {
	t.Helper()
	err := store.DB.Model(&Run{}).Where("id = ?", id).Update("created_at", time.Now().UTC().Add(-age)).Error
	require.NoError(t, err)
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Record(ctx, testSummary("produtos.xlsx"), 1500*time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, int64(1500), run.DurationMS)

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "produtos.xlsx", got.Workbook)
	assert.Equal(t, 3, got.TotalRefs)
	assert.Equal(t, 1, got.IgnoredImages)
	require.Len(t, got.Outcomes, 2)
	// Outcomes come back in row order.
	assert.Equal(t, 5, got.Outcomes[0].Row)
	assert.Equal(t, "success", got.Outcomes[0].Status)
	assert.Equal(t, 7, got.Outcomes[1].Row)
	assert.Equal(t, "ConnectFailure", got.Outcomes[1].Category)
	assert.Equal(t, 2, got.Outcomes[1].Attempts)
}

func TestGetUnknown(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordNil(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Record(context.Background(), nil, 0)
	assert.Error(t, err)
}

func TestRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Record(ctx, testSummary("a.xlsx"), 0)
	require.NoError(t, err)
	second, err := store.Record(ctx, testSummary("b.xlsx"), 0)
	require.NoError(t, err)
	third, err := store.Record(ctx, testSummary("c.xlsx"), 0)
	require.NoError(t, err)
	ageRun(t, store, first.ID, 3*time.Hour)
	ageRun(t, store, second.ID, 2*time.Hour)
	ageRun(t, store, third.ID, time.Hour)

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.xlsx", runs[0].Workbook)
	assert.Equal(t, "b.xlsx", runs[1].Workbook)
	assert.Len(t, runs[0].Outcomes, 2)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old, err := store.Record(ctx, testSummary("old.xlsx"), 0)
	require.NoError(t, err)
	fresh, err := store.Record(ctx, testSummary("fresh.xlsx"), 0)
	require.NoError(t, err)
	ageRun(t, store, old.ID, 48*time.Hour)

	removed, err := store.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, fresh.ID, runs[0].ID)

	var orphans int64
	require.NoError(t, store.DB.Model(&RunOutcome{}).Where("run_id = ?", old.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	removed, err = store.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPing(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
