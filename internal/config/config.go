package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the registry service.
type Config struct {
	HTTPPort        string
	ShutdownTimeout time.Duration

	Registry RegistryConfig
	Tracking TrackingConfig
	S3       S3Config
}

// RegistryConfig holds metadata and artifact storage settings.
type RegistryConfig struct {
	// MetadataDir holds one registry file per model name.
	MetadataDir string
	// ArtifactDir is the local backend's base path.
	ArtifactDir string
	// MetadataBackend selects where registry files live: "file" or "s3".
	MetadataBackend string
}

// TrackingConfig points at the experiment tracker's run directory.
type TrackingConfig struct {
	Dir string
}

// S3Config holds object storage settings. An empty bucket means the local
// backend is used exclusively.
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// fileConfig is the YAML config file shape. Every field is optional;
// environment variables override file values.
type fileConfig struct {
	HTTPPort        string `yaml:"http_port"`
	MetadataDir     string `yaml:"metadata_dir"`
	ArtifactDir     string `yaml:"artifact_dir"`
	MetadataBackend string `yaml:"metadata_backend"`
	TrackingDir     string `yaml:"tracking_dir"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Region        string `yaml:"s3_region"`
	S3Prefix        string `yaml:"s3_prefix"`
}

// Load reads configuration from an optional YAML file (REGISTRY_CONFIG_FILE)
// and environment variables, with the environment taking precedence.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	base := filepath.Join(home, ".model_registry")

	cfg := &Config{
		HTTPPort:        "8080",
		ShutdownTimeout: 30 * time.Second,
		Registry: RegistryConfig{
			MetadataDir:     filepath.Join(base, "registry"),
			ArtifactDir:     filepath.Join(base, "artifacts"),
			MetadataBackend: "file",
		},
		Tracking: TrackingConfig{
			Dir: filepath.Join(base, "runs"),
		},
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "model-registry/models",
		},
	}

	if path := os.Getenv("REGISTRY_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvString("REGISTRY_HTTP_PORT", cfg.HTTPPort)
	cfg.ShutdownTimeout = getEnvDuration("REGISTRY_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.Registry.MetadataDir = getEnvString("REGISTRY_METADATA_DIR", cfg.Registry.MetadataDir)
	cfg.Registry.ArtifactDir = getEnvString("REGISTRY_ARTIFACT_DIR", cfg.Registry.ArtifactDir)
	cfg.Registry.MetadataBackend = getEnvString("REGISTRY_METADATA_BACKEND", cfg.Registry.MetadataBackend)
	cfg.Tracking.Dir = getEnvString("TRACKING_DIR", cfg.Tracking.Dir)
	cfg.S3.Bucket = getEnvString("REGISTRY_S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getEnvString("REGISTRY_S3_REGION", cfg.S3.Region)
	cfg.S3.Prefix = getEnvString("REGISTRY_S3_PREFIX", cfg.S3.Prefix)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIfPresent(&cfg.HTTPPort, fc.HTTPPort)
	setIfPresent(&cfg.Registry.MetadataDir, fc.MetadataDir)
	setIfPresent(&cfg.Registry.ArtifactDir, fc.ArtifactDir)
	setIfPresent(&cfg.Registry.MetadataBackend, fc.MetadataBackend)
	setIfPresent(&cfg.Tracking.Dir, fc.TrackingDir)
	setIfPresent(&cfg.S3.Bucket, fc.S3Bucket)
	setIfPresent(&cfg.S3.Region, fc.S3Region)
	setIfPresent(&cfg.S3.Prefix, fc.S3Prefix)
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Registry.MetadataBackend {
	case "file":
	case "s3":
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("REGISTRY_S3_BUCKET is required when the metadata backend is s3")
		}
	default:
		return fmt.Errorf("invalid metadata backend %q (want file or s3)", cfg.Registry.MetadataBackend)
	}
	return nil
}

func setIfPresent(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}
