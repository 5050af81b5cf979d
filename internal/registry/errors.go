package registry

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a registration or transition request
// fails validation before any I/O happens
var ErrInvalidRequest = errors.New("invalid request")

// ArtifactUploadError is returned when the storage backend fails while
// uploading a registration's artifact directory. No metadata is written
// when this error is returned; the upload may have left a partial object
// set behind, which the registry never references.
type ArtifactUploadError struct {
	ModelName string
	Version   string
	Err       error
}

func (e *ArtifactUploadError) Error() string {
	return fmt.Sprintf("artifact upload failed for %s %s: %v", e.ModelName, e.Version, e.Err)
}

func (e *ArtifactUploadError) Unwrap() error {
	return e.Err
}
