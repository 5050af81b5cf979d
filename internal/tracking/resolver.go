package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRunNotFound is returned when a source run cannot be read
var ErrRunNotFound = errors.New("source run not found")

// RunSnapshot is what the registry consumes from a tracking run: the
// directory of artifact files plus a read-only copy of the run's metrics,
// params and tags. The registry never interprets run internals beyond this.
type RunSnapshot struct {
	RunID       string
	ArtifactDir string
	Metrics     map[string]float64
	Params      map[string]string
	Tags        map[string]string
}

// Resolver resolves an opaque run id into a RunSnapshot.
type Resolver interface {
	Resolve(ctx context.Context, runID string) (*RunSnapshot, error)
}

// DirResolver reads runs from a local tracking directory laid out as
// <root>/<run-id>/artifacts/ plus optional metrics.json, params.json and
// tags.json next to the artifacts directory.
type DirResolver struct {
	root string
}

// NewDirResolver returns a resolver over a local tracking directory.
func NewDirResolver(root string) *DirResolver {
	return &DirResolver{root: root}
}

// Resolve implements Resolver.
func (r *DirResolver) Resolve(ctx context.Context, runID string) (*RunSnapshot, error) {
	runDir := filepath.Join(r.root, runID)
	if _, err := os.Stat(runDir); err != nil {
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}

	artifactDir := filepath.Join(runDir, "artifacts")
	if _, err := os.Stat(artifactDir); err != nil {
		return nil, fmt.Errorf("run %q has no artifacts directory: %w", runID, ErrRunNotFound)
	}

	snap := &RunSnapshot{
		RunID:       runID,
		ArtifactDir: artifactDir,
		Metrics:     map[string]float64{},
		Params:      map[string]string{},
		Tags:        map[string]string{},
	}

	if err := readJSONIfPresent(filepath.Join(runDir, "metrics.json"), &snap.Metrics); err != nil {
		return nil, fmt.Errorf("run %q: %w", runID, err)
	}
	if err := readJSONIfPresent(filepath.Join(runDir, "params.json"), &snap.Params); err != nil {
		return nil, fmt.Errorf("run %q: %w", runID, err)
	}
	if err := readJSONIfPresent(filepath.Join(runDir, "tags.json"), &snap.Tags); err != nil {
		return nil, fmt.Errorf("run %q: %w", runID, err)
	}

	return snap, nil
}

func readJSONIfPresent(path string, into any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
