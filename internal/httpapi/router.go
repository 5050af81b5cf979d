package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"model_registry/internal/artifact"
	"model_registry/internal/config"
	"model_registry/internal/loader"
	"model_registry/internal/metadata"
	"model_registry/internal/registry"
	"model_registry/internal/tracking"
	"model_registry/internal/utils"
)

// Dependencies aggregates the services the HTTP layer exposes.
type Dependencies struct {
	Registry *registry.Registry
	Loader   *loader.Loader
	Store    metadata.Store
	Backend  artifact.Backend
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	ctx := context.Background()

	// Artifact backend: object storage when a bucket is configured,
	// local filesystem otherwise.
	var backend artifact.Backend
	if cfg.S3.Bucket != "" {
		s3b, err := artifact.NewS3Backend(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 backend: %w", err)
		}
		backend = s3b
	} else {
		backend = artifact.NewLocalBackend(cfg.Registry.ArtifactDir)
	}

	// Metadata store: one registry document per model name.
	var store metadata.Store
	switch cfg.Registry.MetadataBackend {
	case "s3":
		s3s, err := metadata.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 metadata store: %w", err)
		}
		store = s3s
	default:
		fs, err := metadata.NewFileStore(cfg.Registry.MetadataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize metadata store: %w", err)
		}
		store = fs
	}

	resolver := tracking.NewDirResolver(cfg.Tracking.Dir)

	deps := &Dependencies{
		Registry: registry.New(registry.Config{Store: store, Backend: backend, Resolver: resolver}),
		Loader:   loader.New(store, backend, resolver),
		Store:    store,
		Backend:  backend,
	}

	handler := NewModelsHandler(deps.Registry)
	accessLogger := utils.NewLogger("http")

	mux := http.NewServeMux()
	mux.Handle("/v1/models", logRequests(accessLogger, http.HandlerFunc(handler.List)))
	mux.Handle("/v1/models/register", logRequests(accessLogger, http.HandlerFunc(handler.Register)))
	mux.Handle("/v1/models/transition", logRequests(accessLogger, http.HandlerFunc(handler.Transition)))
	mux.Handle("/v1/models/", logRequests(accessLogger, http.HandlerFunc(handler.Get)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux, deps, nil
}

// logRequests tags each request with an id and logs method, path and
// duration.
func logRequests(logger *utils.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r)

		logger.Info("Handled request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}
