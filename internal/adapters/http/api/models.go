package api

import (
	"context"
	"net/http"

	"github.com/okian/furlong/internal/domain/types"
)

// ModelsDependencies defines the interface for the model catalog.
type ModelsDependencies interface {
	Models(ctx context.Context, tier string) types.ModelCatalog
}

// ModelsHandler handles model catalog requests.
type ModelsHandler struct {
	deps ModelsDependencies
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelsDependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

// HandleModels handles GET /v1/models requests.
func (h *ModelsHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Models(r.Context(), r.Header.Get(TierHeader)))
}
