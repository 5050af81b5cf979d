package loader

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"model_registry/internal/models"
)

// ModelHandle is a loaded model artifact: the format that decoded it, the
// file it came from, and the decoded payload.
type ModelHandle struct {
	Format string
	Path   string
	Model  any
}

// Strategy is one deserialization attempt in the loader's fallback chain.
type Strategy interface {
	Name() string
	Attempt(dir string) (*ModelHandle, error)
}

// DefaultStrategies returns the fallback chain in priority order:
// manifest marker first, then single-file formats by extension.
func DefaultStrategies() []Strategy {
	return []Strategy{
		manifestStrategy{},
		gobStrategy{},
		gzipGobStrategy{},
	}
}

func init() {
	// Payload types the gob strategies can decode without the encoding
	// binary's help. Training-side encoders use the same container shapes.
	gob.Register(map[string]any{})
	gob.Register(map[string]float64{})
	gob.Register(map[string]string{})
	gob.Register([]any{})
	gob.Register([]float64{})
}

//
// manifest: generic format, marked by a manifest.json file
//

type manifestStrategy struct{}

func (manifestStrategy) Name() string { return "manifest" }

func (manifestStrategy) Attempt(dir string) (*ModelHandle, error) {
	marker := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(marker)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no manifest.json marker in %s", dir)
		}
		return nil, err
	}

	var manifest models.JSONMap
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest.json: %w", err)
	}
	return &ModelHandle{Format: "manifest", Path: marker, Model: manifest}, nil
}

//
// gob: serialized-object file
//

type gobStrategy struct{}

func (gobStrategy) Name() string { return "gob" }

func (gobStrategy) Attempt(dir string) (*ModelHandle, error) {
	path, err := findByExtension(dir, ".gob")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var payload map[string]any
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &ModelHandle{Format: "gob", Path: path, Model: payload}, nil
}

//
// gob.gz: compressed-object file
//

type gzipGobStrategy struct{}

func (gzipGobStrategy) Name() string { return "gob.gz" }

func (gzipGobStrategy) Attempt(dir string) (*ModelHandle, error) {
	path, err := findByExtension(dir, ".gob.gz")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	var payload map[string]any
	if err := gob.NewDecoder(zr).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &ModelHandle{Format: "gob.gz", Path: path, Model: payload}, nil
}

// findByExtension returns the lexically first file in dir whose name ends
// with suffix, so repeated loads pick the same file.
func findByExtension(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if suffix == ".gob" && strings.HasSuffix(e.Name(), ".gob.gz") {
			continue
		}
		if strings.HasSuffix(e.Name(), suffix) {
			matches = append(matches, e.Name())
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s file in %s", suffix, dir)
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[0]), nil
}
