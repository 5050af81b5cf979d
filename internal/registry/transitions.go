package registry

import (
	"fmt"

	"model_registry/internal/metadata"
	"model_registry/internal/models"
)

// StageMutation is one stage update to apply to the metadata store.
type StageMutation struct {
	Version  string
	NewStage models.Stage
}

// PlanStageChange computes the ordered list of stage mutations for moving
// one version to newStage. Pure function, no I/O.
//
// When promoting to production with archiveExisting set, every version
// currently in production is archived first, not just the most recent one.
// If more than one is live (a state that only arises when the single-writer
// contract was violated) all of them are still archived, so a stale
// production version is never silently left behind. The target mutation is
// always last, so an error applying an earlier mutation means the promotion
// was never committed.
func PlanStageChange(current []models.ModelVersion, version string, newStage models.Stage, archiveExisting bool) ([]StageMutation, error) {
	if !newStage.Valid() {
		return nil, fmt.Errorf("invalid target stage %q", newStage)
	}

	found := false
	for _, mv := range current {
		if mv.Version == version {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("version %q: %w", version, metadata.ErrVersionNotFound)
	}

	var plan []StageMutation
	if newStage == models.StageProduction && archiveExisting {
		for _, mv := range current {
			if mv.Stage == models.StageProduction && mv.Version != version {
				plan = append(plan, StageMutation{Version: mv.Version, NewStage: models.StageArchived})
			}
		}
	}
	plan = append(plan, StageMutation{Version: version, NewStage: newStage})
	return plan, nil
}
