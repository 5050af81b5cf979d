package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"model_registry/internal/metadata"
	"model_registry/internal/models"
	"model_registry/internal/registry"
	"model_registry/internal/tracking"
	"model_registry/internal/utils"
)

// ModelsHandler exposes the registry over JSON endpoints.
type ModelsHandler struct {
	registry *registry.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(reg *registry.Registry) *ModelsHandler {
	return &ModelsHandler{registry: reg}
}

// RegisterRequest is the POST /v1/models/register body.
type RegisterRequest struct {
	RunID       string            `json:"run_id"`
	ModelName   string            `json:"model_name"`
	Stage       string            `json:"stage,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Metadata    models.JSONMap    `json:"metadata,omitempty"`
}

// TransitionRequest is the POST /v1/models/transition body.
type TransitionRequest struct {
	ModelName       string `json:"model_name"`
	Version         string `json:"version"`
	Stage           string `json:"stage"`
	ArchiveExisting *bool  `json:"archive_existing,omitempty"` // default true
}

// Register handles POST /v1/models/register
func (h *ModelsHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req RegisterRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	mv, err := h.registry.Register(r.Context(), registry.RegisterRequest{
		RunID:       req.RunID,
		ModelName:   req.ModelName,
		Stage:       models.Stage(req.Stage),
		Description: req.Description,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, mv)
}

// Transition handles POST /v1/models/transition
func (h *ModelsHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TransitionRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	archiveExisting := true
	if req.ArchiveExisting != nil {
		archiveExisting = *req.ArchiveExisting
	}

	mv, err := h.registry.Transition(r.Context(), req.ModelName, req.Version, stage, archiveExisting)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, mv)
}

// List handles GET /v1/models with an optional ?stage= filter.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var stage models.Stage
	if s := r.URL.Query().Get("stage"); s != "" {
		parsed, err := models.ParseStage(s)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		stage = parsed
	}

	versions, err := h.registry.List(r.Context(), stage)
	if err != nil {
		respondRegistryError(w, err)
		return
	}
	if versions == nil {
		versions = []models.ModelVersion{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"models": versions})
}

// Get handles GET /v1/models/{name} and GET /v1/models/{name}/loading-code,
// with an optional ?version= (latest when omitted).
func (h *ModelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/models/")
	name, sub, _ := strings.Cut(rest, "/")
	if name == "" || (sub != "" && sub != "loading-code") {
		utils.RespondWithError(w, http.StatusNotFound, "not found")
		return
	}

	mv, err := h.registry.Get(r.Context(), name, r.URL.Query().Get("version"))
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if sub == "loading-code" {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{
			"model_name": mv.ModelName,
			"version":    mv.Version,
			"code":       registry.GenerateLoadingCode(*mv),
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, mv)
}

// respondRegistryError maps registry error taxonomy to HTTP status codes.
func respondRegistryError(w http.ResponseWriter, err error) {
	var uploadErr *registry.ArtifactUploadError

	switch {
	case errors.Is(err, registry.ErrInvalidRequest):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, metadata.ErrModelNotFound),
		errors.Is(err, metadata.ErrVersionNotFound),
		errors.Is(err, tracking.ErrRunNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &uploadErr):
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
