package api

import (
	"context"
	"net/http"

	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/internal/validation"
	"github.com/okian/furlong/pkg/logger"
)

// StreakDependencies defines the interface for streak operations.
type StreakDependencies interface {
	Streak(ctx context.Context, tier string, races []model.RawEntry) (*types.StreakResult, error)
}

type streakRequest struct {
	Races []model.RawEntry `json:"races"`
}

// StreakHandler handles streak requests.
type StreakHandler struct {
	deps      StreakDependencies
	bodyLimit int64
	log       logger.Logger
}

// NewStreakHandler creates a new streak handler.
func NewStreakHandler(deps StreakDependencies, cfg serverConfig) *StreakHandler {
	return &StreakHandler{deps: deps, bodyLimit: cfg.bodyLimit, log: cfg.log}
}

// HandleStreak handles POST /v1/streak requests.
func (h *StreakHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	const op = "api.streak"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	body, err := readBody(w, r, h.bodyLimit, validation.Streak)
	if err != nil {
		fail(ctx, w, h.log, Wrap(op, err))
		return
	}
	var req streakRequest
	if err := decode(body, &req); err != nil {
		fail(ctx, w, h.log, Wrap(op, err))
		return
	}
	res, err := h.deps.Streak(ctx, r.Header.Get(TierHeader), req.Races)
	if err != nil {
		fail(ctx, w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
