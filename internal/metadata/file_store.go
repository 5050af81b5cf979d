package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"model_registry/internal/models"
	"model_registry/internal/utils"
)

// FileStore keeps one JSON document per model name under a base directory.
type FileStore struct {
	dir    string
	logger *utils.Logger
}

// NewFileStore creates the base directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: utils.NewLogger("file-store"),
	}, nil
}

// Append implements Store.
func (s *FileStore) Append(ctx context.Context, modelName string, mv models.ModelVersion) error {
	doc, err := s.load(modelName)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	doc.Models = append(doc.Models, mv)
	return s.write(modelName, doc)
}

// ReadAll implements Store.
func (s *FileStore) ReadAll(ctx context.Context, modelName string) ([]models.ModelVersion, error) {
	doc, err := s.load(modelName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model %q: %w", modelName, ErrModelNotFound)
		}
		return nil, err
	}

	out := make([]models.ModelVersion, len(doc.Models))
	for i, mv := range doc.Models {
		out[i] = mv.Clone()
	}
	return out, nil
}

// UpdateStage implements Store.
func (s *FileStore) UpdateStage(ctx context.Context, modelName, version string, stage models.Stage, at time.Time) error {
	doc, err := s.load(modelName)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("model %q: %w", modelName, ErrModelNotFound)
		}
		return err
	}

	if err := applyStage(&doc, version, stage, at); err != nil {
		return fmt.Errorf("model %q version %q: %w", modelName, version, err)
	}
	return s.write(modelName, doc)
}

// ModelNames implements Store.
func (s *FileStore) ModelNames(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read registry directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) path(modelName string) string {
	return filepath.Join(s.dir, modelName+".json")
}

func (s *FileStore) load(modelName string) (registryDocument, error) {
	var doc registryDocument
	data, err := os.ReadFile(s.path(modelName))
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse registry file for %q: %w", modelName, err)
	}
	return doc, nil
}

// write rewrites the whole document through a temp file and rename, so a
// crash mid-write never leaves a structurally corrupt registry file.
func (s *FileStore) write(modelName string, doc registryDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry file for %q: %w", modelName, err)
	}

	target := s.path(modelName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry file for %q: %w", modelName, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace registry file for %q: %w", modelName, err)
	}

	s.logger.Debug("Wrote registry file", "model", modelName, "versions", len(doc.Models))
	return nil
}
