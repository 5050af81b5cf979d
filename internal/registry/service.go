package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"model_registry/internal/artifact"
	"model_registry/internal/metadata"
	"model_registry/internal/models"
	"model_registry/internal/tracking"
	"model_registry/internal/utils"
)

// Registry orchestrates registration, stage transitions and the read-only
// query surface. All operations are synchronous; the metadata store for one
// model name is the only shared mutable resource, and concurrent writer
// processes against the same name are not serialized (see metadata.Store).
type Registry struct {
	store    metadata.Store
	backend  artifact.Backend
	resolver tracking.Resolver
	now      func() time.Time
	logger   *utils.Logger
}

// Config holds the registry's collaborators.
type Config struct {
	Store    metadata.Store
	Backend  artifact.Backend // nil disables artifact persistence
	Resolver tracking.Resolver

	// Now overrides the clock, used by tests. Defaults to time.Now.
	Now func() time.Time
}

// New creates a registry service.
func New(cfg Config) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store:    cfg.Store,
		backend:  cfg.Backend,
		resolver: cfg.Resolver,
		now:      now,
		logger:   utils.NewLogger("registry"),
	}
}

// RegisterRequest describes one registration.
type RegisterRequest struct {
	RunID     string
	ModelName string

	// Stage defaults to staging when empty.
	Stage models.Stage

	Description string
	Tags        map[string]string
	Metadata    models.JSONMap
}

// Register pulls the artifact bundle from the source run, uploads it
// through the storage backend, and appends a new ModelVersion to the
// metadata store. The metadata commit happens strictly after the upload
// fully succeeds, so a failed registration never leaves a record pointing
// at a missing or partial artifact location.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*models.ModelVersion, error) {
	if err := validateModelName(req.ModelName); err != nil {
		return nil, err
	}
	if req.RunID == "" {
		return nil, fmt.Errorf("run id is required: %w", ErrInvalidRequest)
	}

	stage := req.Stage
	if stage == "" {
		stage = models.StageStaging
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("invalid stage %q: %w", stage, ErrInvalidRequest)
	}

	snap, err := r.resolver.Resolve(ctx, req.RunID)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", req.ModelName, err)
	}

	now := r.now().UTC()
	version := NewVersionID(req.ModelName, req.RunID, now)

	location := ""
	if r.backend != nil {
		location, err = r.backend.UploadDirectory(ctx, snap.ArtifactDir, req.ModelName+"/"+version)
		if err != nil {
			return nil, &ArtifactUploadError{ModelName: req.ModelName, Version: version, Err: err}
		}
	}

	mv := models.ModelVersion{
		ModelName:       req.ModelName,
		Version:         version,
		Stage:           stage,
		SourceRunID:     req.RunID,
		RegisteredAt:    now,
		StorageLocation: location,
		Metrics:         models.CloneFloatMap(snap.Metrics),
		Params:          models.CloneStringMap(snap.Params),
		Description:     req.Description,
		Tags:            models.CloneStringMap(req.Tags),
		CustomMetadata:  req.Metadata.Clone(),
	}

	if err := r.store.Append(ctx, req.ModelName, mv); err != nil {
		return nil, fmt.Errorf("commit metadata for %s %s: %w", req.ModelName, version, err)
	}

	r.logger.Info("Registered model version",
		"model", req.ModelName, "version", version, "stage", stage, "run", req.RunID)
	return &mv, nil
}

// Transition moves one version to a new stage. Promoting to production with
// archiveExisting archives every version currently in production, one
// independently committed update per version, before the target is
// promoted. An error part-way through leaves the target unpromoted.
func (r *Registry) Transition(ctx context.Context, modelName, version string, newStage models.Stage, archiveExisting bool) (*models.ModelVersion, error) {
	versions, err := r.store.ReadAll(ctx, modelName)
	if err != nil {
		return nil, err
	}

	plan, err := PlanStageChange(versions, version, newStage, archiveExisting)
	if err != nil {
		return nil, fmt.Errorf("transition %q: %w", modelName, err)
	}

	at := r.now().UTC()
	for _, m := range plan {
		if err := r.store.UpdateStage(ctx, modelName, m.Version, m.NewStage, at); err != nil {
			return nil, err
		}
	}

	r.logger.Info("Transitioned model version",
		"model", modelName, "version", version, "stage", newStage, "archived", len(plan)-1)

	for _, mv := range versions {
		if mv.Version == version {
			updated := mv.Clone()
			updated.Stage = newStage
			updated.StageTransitionedAt = &at
			return &updated, nil
		}
	}
	// Unreachable: PlanStageChange verified the version exists.
	return nil, fmt.Errorf("transition %q version %q: %w", modelName, version, metadata.ErrVersionNotFound)
}

// List returns every registered version across all models, newest first.
// An empty stage filter matches everything.
func (r *Registry) List(ctx context.Context, stageFilter models.Stage) ([]models.ModelVersion, error) {
	names, err := r.store.ModelNames(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.ModelVersion
	for _, name := range names {
		versions, err := r.store.ReadAll(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, mv := range versions {
			if stageFilter == "" || mv.Stage == stageFilter {
				out = append(out, mv)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, nil
}

// Get returns one version of a model, the latest registered one when
// version is empty. Append order is chronological, so latest means the last
// element of the model's history.
func (r *Registry) Get(ctx context.Context, modelName, version string) (*models.ModelVersion, error) {
	versions, err := r.store.ReadAll(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("model %q has no versions: %w", modelName, metadata.ErrModelNotFound)
	}

	if version == "" {
		mv := versions[len(versions)-1]
		return &mv, nil
	}
	for _, mv := range versions {
		if mv.Version == version {
			mv := mv
			return &mv, nil
		}
	}
	return nil, fmt.Errorf("model %q version %q: %w", modelName, version, metadata.ErrVersionNotFound)
}

func validateModelName(name string) error {
	if name == "" {
		return fmt.Errorf("model name is required: %w", ErrInvalidRequest)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid model name %q: %w", name, ErrInvalidRequest)
	}
	return nil
}
