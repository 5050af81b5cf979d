package registry

import (
	"fmt"
	"time"

	"model_registry/internal/utils"
)

// NewVersionID derives a deterministic version id of the form
// v<YYYYMMDD>_<8 hex chars>. The timestamp participates in the digest down
// to the nanosecond, so repeated registrations with identical inputs still
// produce distinct ids.
func NewVersionID(modelName, sourceRunID string, now time.Time) string {
	now = now.UTC()
	digest := utils.HashString(fmt.Sprintf("%s:%s:%s", modelName, sourceRunID, now.Format(time.RFC3339Nano)))
	return fmt.Sprintf("v%s_%s", now.Format("20060102"), digest[:8])
}
