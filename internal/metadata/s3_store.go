package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"model_registry/internal/models"
	"model_registry/internal/utils"
)

// s3Client is the subset of the S3 API the store uses.
type s3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps one JSON document per model name at
// <prefix>/registry/<model>.json in an S3 bucket. Same read-modify-write
// contract as FileStore: no conditional writes, last writer wins.
type S3Store struct {
	client s3Client
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Store creates an S3-backed store using the default credential chain.
func NewS3Store(ctx context.Context, bucket, region, prefix string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Store(client s3Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: utils.NewLogger("s3-store"),
	}
}

// Append implements Store.
func (s *S3Store) Append(ctx context.Context, modelName string, mv models.ModelVersion) error {
	doc, err := s.load(ctx, modelName)
	if err != nil && !errors.Is(err, ErrModelNotFound) {
		return err
	}
	doc.Models = append(doc.Models, mv)
	return s.write(ctx, modelName, doc)
}

// ReadAll implements Store.
func (s *S3Store) ReadAll(ctx context.Context, modelName string) ([]models.ModelVersion, error) {
	doc, err := s.load(ctx, modelName)
	if err != nil {
		return nil, err
	}
	out := make([]models.ModelVersion, len(doc.Models))
	for i, mv := range doc.Models {
		out[i] = mv.Clone()
	}
	return out, nil
}

// UpdateStage implements Store.
func (s *S3Store) UpdateStage(ctx context.Context, modelName, version string, stage models.Stage, at time.Time) error {
	doc, err := s.load(ctx, modelName)
	if err != nil {
		return err
	}
	if err := applyStage(&doc, version, stage, at); err != nil {
		return fmt.Errorf("model %q version %q: %w", modelName, version, err)
	}
	return s.write(ctx, modelName, doc)
}

// ModelNames implements Store.
func (s *S3Store) ModelNames(ctx context.Context) ([]string, error) {
	keyPrefix := s.key("")

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list registry objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), keyPrefix)
			if !strings.HasSuffix(name, ".json") || strings.Contains(name, "/") {
				continue
			}
			names = append(names, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *S3Store) key(modelName string) string {
	base := path.Join(s.prefix, "registry") + "/"
	if modelName == "" {
		return base
	}
	return base + modelName + ".json"
}

func (s *S3Store) load(ctx context.Context, modelName string) (registryDocument, error) {
	var doc registryDocument

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(modelName)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return doc, fmt.Errorf("model %q: %w", modelName, ErrModelNotFound)
		}
		return doc, fmt.Errorf("failed to fetch registry object for %q: %w", modelName, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return doc, fmt.Errorf("failed to read registry object for %q: %w", modelName, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse registry object for %q: %w", modelName, err)
	}
	return doc, nil
}

func (s *S3Store) write(ctx context.Context, modelName string, doc registryDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry object for %q: %w", modelName, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(modelName)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write registry object for %q: %w", modelName, err)
	}

	s.logger.Debug("Wrote registry object", "model", modelName, "versions", len(doc.Models))
	return nil
}
