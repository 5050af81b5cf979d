package artifact

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"model_registry/internal/utils"
)

// LocalBackend stores artifact directories under a base path on the local
// filesystem. Upload and download are recursive copies.
type LocalBackend struct {
	basePath string
	logger   *utils.Logger
}

// NewLocalBackend creates a local backend rooted at basePath.
func NewLocalBackend(basePath string) *LocalBackend {
	return &LocalBackend{
		basePath: basePath,
		logger:   utils.NewLogger("local-backend"),
	}
}

// UploadDirectory copies localPath into <basePath>/<destKey> and returns a
// file:// URI for the destination. The destination is fresh per version, so
// the first I/O error simply propagates.
func (b *LocalBackend) UploadDirectory(ctx context.Context, localPath, destKey string) (string, error) {
	dest := filepath.Join(b.basePath, filepath.FromSlash(destKey))
	if err := copyTree(ctx, localPath, dest); err != nil {
		return "", fmt.Errorf("copy artifact to %s: %w", dest, err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve artifact path: %w", err)
	}

	b.logger.Info("Stored artifact directory", "dest", abs)
	return "file://" + filepath.ToSlash(abs), nil
}

// DownloadDirectory copies a previously stored directory back to localPath.
func (b *LocalBackend) DownloadDirectory(ctx context.Context, locationURI, localPath string) error {
	src := strings.TrimPrefix(locationURI, "file://")
	src = filepath.FromSlash(src)
	if err := copyTree(ctx, src, localPath); err != nil {
		return fmt.Errorf("copy artifact from %s: %w", src, err)
	}
	return nil
}

// copyTree recursively copies every regular file under src to dst,
// preserving relative paths.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
