package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model_registry/internal/models"
)

func testVersion(version string, stage models.Stage) models.ModelVersion {
	return models.ModelVersion{
		ModelName:    "churn",
		Version:      version,
		Stage:        stage,
		SourceRunID:  "run-1",
		RegisteredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Metrics:      map[string]float64{"auc": 0.91},
		Params:       map[string]string{"eta": "0.3"},
	}
}

func TestFileStoreAppendAndReadAll(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "churn", testVersion("v1", models.StageStaging)))
	require.NoError(t, store.Append(ctx, "churn", testVersion("v2", models.StageStaging)))

	got, err := store.ReadAll(ctx, "churn")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "v1", got[0].Version, "insertion order preserved")
	assert.Equal(t, "v2", got[1].Version)
	assert.Equal(t, map[string]float64{"auc": 0.91}, got[0].Metrics)
}

func TestFileStoreReadAllUnknownModel(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.ReadAll(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestFileStoreUpdateStage(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "churn", testVersion("v1", models.StageStaging)))

	at := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateStage(ctx, "churn", "v1", models.StageProduction, at))

	got, err := store.ReadAll(ctx, "churn")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.StageProduction, got[0].Stage)
	require.NotNil(t, got[0].StageTransitionedAt)
	assert.True(t, got[0].StageTransitionedAt.Equal(at))
}

func TestFileStoreUpdateStageUnknownVersion(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "churn", testVersion("v1", models.StageStaging)))

	err = store.UpdateStage(ctx, "churn", "v9", models.StageProduction, time.Now())
	assert.ErrorIs(t, err, ErrVersionNotFound)

	err = store.UpdateStage(ctx, "other", "v1", models.StageProduction, time.Now())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestFileStoreModelNames(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "fraud", testVersion("v1", models.StageStaging)))
	require.NoError(t, store.Append(ctx, "churn", testVersion("v1", models.StageStaging)))

	names, err := store.ModelNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"churn", "fraud"}, names)
}

func TestFileStoreRewritesWholeDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "churn", testVersion("v1", models.StageStaging)))
	require.NoError(t, store.UpdateStage(ctx, "churn", "v1", models.StageArchived, time.Now()))

	// The on-disk file is always a complete, parseable document.
	data, err := os.ReadFile(filepath.Join(dir, "churn.json"))
	require.NoError(t, err)

	var doc struct {
		Models []models.ModelVersion `json:"models"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Models, 1)
	assert.Equal(t, models.StageArchived, doc.Models[0].Stage)
}

func TestFileStoreReadAllReturnsCopies(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "churn", testVersion("v1", models.StageStaging)))

	first, err := store.ReadAll(ctx, "churn")
	require.NoError(t, err)
	first[0].Metrics["auc"] = 0.0

	second, err := store.ReadAll(ctx, "churn")
	require.NoError(t, err)
	assert.Equal(t, 0.91, second[0].Metrics["auc"], "callers must not be able to mutate stored records")
}
