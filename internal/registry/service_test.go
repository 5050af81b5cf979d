package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model_registry/internal/artifact"
	"model_registry/internal/metadata"
	"model_registry/internal/models"
	"model_registry/internal/tracking"
)

// testClock hands out strictly increasing timestamps so version ids and
// registration order are deterministic.
type testClock struct {
	base time.Time
	n    int
}

func (c *testClock) Now() time.Time {
	c.n++
	return c.base.Add(time.Duration(c.n) * time.Second)
}

// failingBackend fails every upload deterministically.
type failingBackend struct{}

func (failingBackend) UploadDirectory(ctx context.Context, localPath, destKey string) (string, error) {
	return "", fmt.Errorf("connection reset during put")
}

func (failingBackend) DownloadDirectory(ctx context.Context, locationURI, localPath string) error {
	return fmt.Errorf("not implemented")
}

func writeTestRun(t *testing.T, root, runID string, metrics map[string]float64, params map[string]string) {
	t.Helper()

	artifactDir := filepath.Join(root, runID, "artifacts")
	require.NoError(t, os.MkdirAll(artifactDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "weights.bin"), []byte("weights"), 0o644))

	for name, v := range map[string]any{"metrics.json": metrics, "params.json": params} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(root, runID, name), data, 0o644))
	}
}

func newTestRegistry(t *testing.T) (*Registry, metadata.Store, string) {
	t.Helper()

	runRoot := t.TempDir()
	store, err := metadata.NewFileStore(filepath.Join(t.TempDir(), "registry"))
	require.NoError(t, err)

	clock := &testClock{base: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	reg := New(Config{
		Store:    store,
		Backend:  artifact.NewLocalBackend(filepath.Join(t.TempDir(), "artifacts")),
		Resolver: tracking.NewDirResolver(runRoot),
		Now:      clock.Now,
	})
	return reg, store, runRoot
}

func TestRegisterRoundTrip(t *testing.T) {
	reg, _, runRoot := newTestRegistry(t)
	ctx := context.Background()

	metrics := map[string]float64{"auc": 0.91, "loss": 0.12}
	params := map[string]string{"max_depth": "6", "eta": "0.3"}
	writeTestRun(t, runRoot, "run-1", metrics, params)

	created, err := reg.Register(ctx, RegisterRequest{
		RunID:       "run-1",
		ModelName:   "churn",
		Description: "gradient boosted churn model",
		Tags:        map[string]string{"team": "growth"},
		Metadata:    models.JSONMap{"requirements": []any{"xgboost"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageStaging, created.Stage, "stage defaults to staging")
	assert.NotEmpty(t, created.StorageLocation)

	got, err := reg.Get(ctx, "churn", created.Version)
	require.NoError(t, err)
	assert.Equal(t, metrics, got.Metrics)
	assert.Equal(t, params, got.Params)
	assert.Equal(t, map[string]string{"team": "growth"}, got.Tags)
	assert.Equal(t, "run-1", got.SourceRunID)
	assert.Equal(t, "gradient boosted churn model", got.Description)
}

func TestRegisterProducesDistinctVersions(t *testing.T) {
	reg, _, runRoot := newTestRegistry(t)
	ctx := context.Background()
	writeTestRun(t, runRoot, "run-1", nil, nil)

	a, err := reg.Register(ctx, RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)
	b, err := reg.Register(ctx, RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Version, b.Version, "identical inputs must still get distinct version ids")
}

func TestRegisterRunNotFound(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Register(context.Background(), RegisterRequest{RunID: "missing", ModelName: "churn"})
	assert.ErrorIs(t, err, tracking.ErrRunNotFound)
}

func TestRegisterUploadFailureWritesNoMetadata(t *testing.T) {
	runRoot := t.TempDir()
	store, err := metadata.NewFileStore(t.TempDir())
	require.NoError(t, err)
	reg := New(Config{
		Store:    store,
		Backend:  failingBackend{},
		Resolver: tracking.NewDirResolver(runRoot),
	})
	writeTestRun(t, runRoot, "run-1", nil, nil)

	_, err = reg.Register(context.Background(), RegisterRequest{RunID: "run-1", ModelName: "churn"})

	var uploadErr *ArtifactUploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "churn", uploadErr.ModelName)

	// No record may reference the failed (possibly partial) upload.
	_, err = store.ReadAll(context.Background(), "churn")
	assert.ErrorIs(t, err, metadata.ErrModelNotFound)

	all, err := reg.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPromoteArchivesPriorProduction(t *testing.T) {
	reg, _, runRoot := newTestRegistry(t)
	ctx := context.Background()
	writeTestRun(t, runRoot, "run-1", map[string]float64{"auc": 0.90}, nil)
	writeTestRun(t, runRoot, "run-2", map[string]float64{"auc": 0.93}, nil)

	v1, err := reg.Register(ctx, RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)

	promoted, err := reg.Transition(ctx, "churn", v1.Version, models.StageProduction, true)
	require.NoError(t, err)
	assert.Equal(t, models.StageProduction, promoted.Stage)
	assert.NotNil(t, promoted.StageTransitionedAt)

	inProd, err := reg.List(ctx, models.StageProduction)
	require.NoError(t, err)
	require.Len(t, inProd, 1)
	assert.Equal(t, v1.Version, inProd[0].Version)

	v2, err := reg.Register(ctx, RegisterRequest{RunID: "run-2", ModelName: "churn"})
	require.NoError(t, err)
	_, err = reg.Transition(ctx, "churn", v2.Version, models.StageProduction, true)
	require.NoError(t, err)

	// Exactly one production version, and the prior one is archived.
	inProd, err = reg.List(ctx, models.StageProduction)
	require.NoError(t, err)
	require.Len(t, inProd, 1)
	assert.Equal(t, v2.Version, inProd[0].Version)

	prior, err := reg.Get(ctx, "churn", v1.Version)
	require.NoError(t, err)
	assert.Equal(t, models.StageArchived, prior.Stage)
}

func TestTransitionUnknownVersion(t *testing.T) {
	reg, _, runRoot := newTestRegistry(t)
	ctx := context.Background()
	writeTestRun(t, runRoot, "run-1", nil, nil)

	_, err := reg.Register(ctx, RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)

	_, err = reg.Transition(ctx, "churn", "v00000000_deadbeef", models.StageProduction, true)
	assert.ErrorIs(t, err, metadata.ErrVersionNotFound)
}

func TestGetLatestIsLastAppended(t *testing.T) {
	reg, _, runRoot := newTestRegistry(t)
	ctx := context.Background()
	writeTestRun(t, runRoot, "run-1", nil, nil)
	writeTestRun(t, runRoot, "run-2", nil, nil)

	_, err := reg.Register(ctx, RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)
	v2, err := reg.Register(ctx, RegisterRequest{RunID: "run-2", ModelName: "churn"})
	require.NoError(t, err)

	latest, err := reg.Get(ctx, "churn", "")
	require.NoError(t, err)
	assert.Equal(t, v2.Version, latest.Version)
}

func TestListSortedNewestFirst(t *testing.T) {
	reg, _, runRoot := newTestRegistry(t)
	ctx := context.Background()
	writeTestRun(t, runRoot, "run-1", nil, nil)
	writeTestRun(t, runRoot, "run-2", nil, nil)

	older, err := reg.Register(ctx, RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)
	newer, err := reg.Register(ctx, RegisterRequest{RunID: "run-2", ModelName: "fraud"})
	require.NoError(t, err)

	all, err := reg.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.Version, all[0].Version)
	assert.Equal(t, older.Version, all[1].Version)
}

func TestRegisterValidation(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, req := range []RegisterRequest{
		{RunID: "run-1", ModelName: ""},
		{RunID: "run-1", ModelName: "a/b"},
		{RunID: "", ModelName: "churn"},
		{RunID: "run-1", ModelName: "churn", Stage: models.Stage("live")},
	} {
		_, err := reg.Register(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "request %+v", req)
	}
}

func TestRegisterWithoutBackendLeavesLocationEmpty(t *testing.T) {
	runRoot := t.TempDir()
	store, err := metadata.NewFileStore(t.TempDir())
	require.NoError(t, err)
	reg := New(Config{Store: store, Resolver: tracking.NewDirResolver(runRoot)})
	writeTestRun(t, runRoot, "run-1", nil, nil)

	mv, err := reg.Register(context.Background(), RegisterRequest{RunID: "run-1", ModelName: "churn"})
	require.NoError(t, err)
	assert.Empty(t, mv.StorageLocation)
}
