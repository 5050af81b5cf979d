package artifact

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"model_registry/internal/utils"
)

// s3Client is the subset of the S3 API the backend uses. Satisfied by
// *s3.Client and by fakes in tests.
type s3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Backend stores artifact directories in an S3 bucket, one object per
// file under <prefix>/<destKey>/<relative path>.
type S3Backend struct {
	client s3Client
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Backend creates an S3 backend using the default AWS credential chain.
func NewS3Backend(ctx context.Context, bucket, region, prefix string) (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newS3Backend(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Backend(client s3Client, bucket, prefix string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: utils.NewLogger("s3-backend"),
	}
}

// UploadDirectory puts one object per file under localPath. The operation
// is not transactional: a failure partway through leaves a partial object
// set under the destination key, and the error is returned so the caller
// can abort before committing any metadata that references the location.
func (b *S3Backend) UploadDirectory(ctx context.Context, localPath, destKey string) (string, error) {
	destPrefix := b.objectKey(destKey)

	uploaded := 0
	err := filepath.WalkDir(localPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localPath, p)
		if err != nil {
			return err
		}
		key := destPrefix + "/" + filepath.ToSlash(rel)

		if err := b.putFile(ctx, key, p); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return "", err
	}

	location := fmt.Sprintf("s3://%s/%s", b.bucket, destPrefix)
	b.logger.Info("Uploaded artifact directory", "location", location, "files", uploaded)
	return location, nil
}

func (b *S3Backend) putFile(ctx context.Context, key, localFile string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", localFile, err)
	}
	defer f.Close()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// DownloadDirectory lists every object under the location's key prefix,
// following continuation tokens until the listing is exhausted, and fetches
// each object to the matching local relative path.
func (b *S3Backend) DownloadDirectory(ctx context.Context, locationURI, localPath string) error {
	bucket, keyPrefix, err := ParseS3URI(locationURI)
	if err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(keyPrefix + "/"),
	})

	fetched := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", locationURI, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, keyPrefix+"/")
			if rel == "" {
				continue
			}
			if err := b.getFile(ctx, bucket, key, filepath.Join(localPath, filepath.FromSlash(rel))); err != nil {
				return err
			}
			fetched++
		}
	}

	if fetched == 0 {
		return fmt.Errorf("no objects found under %s", locationURI)
	}
	b.logger.Info("Downloaded artifact directory", "location", locationURI, "files", fetched)
	return nil
}

func (b *S3Backend) getFile(ctx context.Context, bucket, key, localFile string) error {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localFile), 0o755); err != nil {
		return err
	}
	f, err := os.Create(localFile)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", localFile, err)
	}
	return f.Close()
}

func (b *S3Backend) objectKey(destKey string) string {
	if b.prefix == "" {
		return destKey
	}
	return path.Join(b.prefix, destKey)
}
