package metadata

import (
	"context"
	"errors"
	"time"

	"model_registry/internal/models"
)

var (
	// ErrModelNotFound is returned when no registry record exists for a model name
	ErrModelNotFound = errors.New("model not found in registry")

	// ErrVersionNotFound is returned when a version id is absent from a model's history
	ErrVersionNotFound = errors.New("model version not found")
)

// Store is the durable per-model-name record of registered versions.
//
// Every mutation is a full read-modify-write of one model's document, so a
// single process always observes its own writes. Concurrent writers against
// the same model name are NOT serialized: the last writer wins. The
// contract assumes one writer process per model name at a time.
type Store interface {
	// Append loads the existing version list for modelName (empty if none),
	// appends mv and writes the full list back.
	Append(ctx context.Context, modelName string, mv models.ModelVersion) error

	// ReadAll returns every registered version in insertion order.
	// Returns ErrModelNotFound if no record exists.
	ReadAll(ctx context.Context, modelName string) ([]models.ModelVersion, error)

	// UpdateStage sets the stage and transition timestamp of one version.
	// Returns ErrVersionNotFound if the version id is absent.
	UpdateStage(ctx context.Context, modelName, version string, stage models.Stage, at time.Time) error

	// ModelNames lists every model name with a registry record.
	ModelNames(ctx context.Context) ([]string, error)
}

// registryDocument is the on-disk/on-object shape of one model's history.
type registryDocument struct {
	Models []models.ModelVersion `json:"models"`
}

func applyStage(doc *registryDocument, version string, stage models.Stage, at time.Time) error {
	for i := range doc.Models {
		if doc.Models[i].Version == version {
			t := at
			doc.Models[i].Stage = stage
			doc.Models[i].StageTransitionedAt = &t
			return nil
		}
	}
	return ErrVersionNotFound
}
