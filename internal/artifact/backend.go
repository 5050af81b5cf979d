package artifact

import (
	"context"
	"fmt"
	"strings"
)

// Backend abstracts where model artifact directories are persisted.
//
// UploadDirectory writes every file under localPath to a destination named
// by destKey and returns the backend-specific location URI. A destination
// key is never reused, so implementations do not need to clean up on
// failure; callers must treat a failed upload as fatal for the attempt.
//
// DownloadDirectory materializes a previously uploaded directory at
// localPath, creating parent directories as needed.
type Backend interface {
	UploadDirectory(ctx context.Context, localPath, destKey string) (string, error)
	DownloadDirectory(ctx context.Context, locationURI, localPath string) error
}

// IsS3URI reports whether the location URI points at object storage.
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI splits s3://bucket/key into its bucket and key parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an s3 URI: %q", uri)
	}
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 URI: %q", uri)
	}
	return parts[0], parts[1], nil
}
