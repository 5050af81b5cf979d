package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"model_registry/internal/artifact"
	"model_registry/internal/metadata"
	"model_registry/internal/tracking"
	"model_registry/internal/utils"
)

// UnloadableArtifactError reports that every deserialization strategy
// failed, keeping each strategy's error for diagnosability.
type UnloadableArtifactError struct {
	ModelName string
	Version   string
	Attempts  []StrategyAttempt
}

// StrategyAttempt is one failed strategy in the fallback chain.
type StrategyAttempt struct {
	Strategy string
	Err      error
}

func (e *UnloadableArtifactError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Strategy, a.Err)
	}
	return fmt.Sprintf("cannot load model %s %s, attempted strategies: [%s]",
		e.ModelName, e.Version, strings.Join(parts, "; "))
}

// Loader is the read path: it resolves a version record, materializes the
// artifact directory locally, and walks the strategy chain until one
// deserializes it.
type Loader struct {
	store      metadata.Store
	backend    artifact.Backend
	resolver   tracking.Resolver
	strategies []Strategy
	logger     *utils.Logger
}

// New creates a loader with the default strategy chain.
func New(store metadata.Store, backend artifact.Backend, resolver tracking.Resolver) *Loader {
	return &Loader{
		store:      store,
		backend:    backend,
		resolver:   resolver,
		strategies: DefaultStrategies(),
		logger:     utils.NewLogger("loader"),
	}
}

// Load loads a model version, the latest one when version is empty.
func (l *Loader) Load(ctx context.Context, modelName, version string) (*ModelHandle, error) {
	versions, err := l.store.ReadAll(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("model %q has no versions: %w", modelName, metadata.ErrModelNotFound)
	}

	idx := len(versions) - 1
	if version != "" {
		idx = -1
		for i := range versions {
			if versions[i].Version == version {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("model %q version %q: %w", modelName, version, metadata.ErrVersionNotFound)
		}
	}
	mv := versions[idx]

	dir, err := l.materialize(ctx, mv.ModelName, mv.Version, mv.StorageLocation, mv.SourceRunID)
	if err != nil {
		return nil, err
	}

	var attempts []StrategyAttempt
	for _, s := range l.strategies {
		handle, err := s.Attempt(dir)
		if err == nil {
			l.logger.Info("Loaded model", "model", mv.ModelName, "version", mv.Version, "format", handle.Format)
			return handle, nil
		}
		attempts = append(attempts, StrategyAttempt{Strategy: s.Name(), Err: err})
	}

	return nil, &UnloadableArtifactError{ModelName: mv.ModelName, Version: mv.Version, Attempts: attempts}
}

// materialize returns a local directory holding the artifact files.
// Remote locations are downloaded into a transient directory; records
// without a storage location fall back to the source run's artifact dir.
func (l *Loader) materialize(ctx context.Context, modelName, version, location, runID string) (string, error) {
	switch {
	case artifact.IsS3URI(location):
		if l.backend == nil {
			return "", fmt.Errorf("model %s %s is stored at %s but no storage backend is configured",
				modelName, version, location)
		}
		dir := filepath.Join(os.TempDir(), "model_registry-"+uuid.NewString())
		if err := l.backend.DownloadDirectory(ctx, location, dir); err != nil {
			return "", fmt.Errorf("download %s: %w", location, err)
		}
		return dir, nil

	case strings.HasPrefix(location, "file://"):
		return filepath.FromSlash(strings.TrimPrefix(location, "file://")), nil

	case location == "":
		snap, err := l.resolver.Resolve(ctx, runID)
		if err != nil {
			return "", fmt.Errorf("load %s %s: %w", modelName, version, err)
		}
		return snap.ArtifactDir, nil

	default:
		return "", fmt.Errorf("unsupported storage location %q", location)
	}
}
