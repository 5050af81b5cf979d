package models

import "time"

//
// ModelVersion (one entry per registration in the per-model registry file)
//

type ModelVersion struct {
	ModelName string `json:"model_name"`
	Version   string `json:"version"`
	Stage     Stage  `json:"stage"`

	SourceRunID         string     `json:"source_run_id"`
	RegisteredAt        time.Time  `json:"registered_at"`
	StageTransitionedAt *time.Time `json:"stage_transitioned_at,omitempty"`

	// StorageLocation is empty when no remote backend is configured;
	// otherwise a backend URI such as s3://bucket/prefix/model/version.
	StorageLocation string `json:"storage_location,omitempty"`

	// Immutable snapshot copied from the source run at registration time.
	Metrics map[string]float64 `json:"metrics"`
	Params  map[string]string  `json:"params"`

	Description    string            `json:"description"`
	Tags           map[string]string `json:"tags,omitempty"`
	CustomMetadata JSONMap           `json:"custom_metadata,omitempty"`
}

// Clone returns a deep copy so callers can hand out records without
// exposing the store's internal slices to mutation.
func (mv ModelVersion) Clone() ModelVersion {
	out := mv
	if mv.StageTransitionedAt != nil {
		at := *mv.StageTransitionedAt
		out.StageTransitionedAt = &at
	}
	out.Metrics = CloneFloatMap(mv.Metrics)
	out.Params = CloneStringMap(mv.Params)
	out.Tags = CloneStringMap(mv.Tags)
	out.CustomMetadata = mv.CustomMetadata.Clone()
	return out
}
