package models

import "fmt"

//
// Stage (model lifecycle)
//

// Stage is the lifecycle state of a registered model version.
type Stage string

const (
	StageStaging    Stage = "staging"
	StageProduction Stage = "production"
	StageArchived   Stage = "archived"
)

// ParseStage validates a stage string and returns the typed value.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageStaging, StageProduction, StageArchived:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("invalid stage %q (want staging, production or archived)", s)
	}
}

// Valid reports whether the stage is one of the known lifecycle states.
func (s Stage) Valid() bool {
	_, err := ParseStage(string(s))
	return err == nil
}
