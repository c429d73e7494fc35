package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/furlong/internal/domain/engine"
	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/internal/validation"
	"github.com/okian/furlong/pkg/logger"
)

// BatchDependencies defines the interface for rank and predict operations.
type BatchDependencies interface {
	Rank(ctx context.Context, tier string, entries []model.RawEntry, opts types.BatchOptions) (*types.Result, error)
	Predict(ctx context.Context, tier string, entries []model.RawEntry, opts types.BatchOptions) (*types.Result, error)
	MaxBatchSize() int
}

// batchRequest mirrors the OpenAPI schema for POST /v1/rank and /v1/predict.
type batchRequest struct {
	Entries             []model.RawEntry `json:"entries"`
	ConfidenceThreshold float64          `json:"confidence_threshold,omitempty"`
	Impute              bool             `json:"impute,omitempty"`
}

// BatchHandler serves one batch mode.
type BatchHandler struct {
	deps      BatchDependencies
	mode      string
	bodyLimit int64
	log       logger.Logger
}

// NewBatchHandler creates a handler for mode (rank or predict).
func NewBatchHandler(deps BatchDependencies, mode string, cfg serverConfig) *BatchHandler {
	return &BatchHandler{deps: deps, mode: mode, bodyLimit: cfg.bodyLimit, log: cfg.log}
}

// HandleBatch handles POST /v1/rank and POST /v1/predict.
func (h *BatchHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	op := "api." + h.mode
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	body, err := readBody(w, r, h.bodyLimit, validation.Batch)
	if err != nil {
		fail(ctx, w, h.log, Wrap(op, err))
		return
	}
	var req batchRequest
	if err := decode(body, &req); err != nil {
		fail(ctx, w, h.log, Wrap(op, err))
		return
	}
	if limit := h.deps.MaxBatchSize(); len(req.Entries) > limit {
		fail(ctx, w, h.log, WrapKind(op, ErrBatchTooLarge, fmt.Errorf("%d entries, limit %d", len(req.Entries), limit)))
		return
	}

	tier := r.Header.Get(TierHeader)
	opts := types.BatchOptions{Threshold: req.ConfidenceThreshold, Impute: req.Impute}
	var res *types.Result
	if h.mode == engine.ModePredict {
		res, err = h.deps.Predict(ctx, tier, req.Entries, opts)
	} else {
		res, err = h.deps.Rank(ctx, tier, req.Entries, opts)
	}
	if err != nil {
		fail(ctx, w, h.log, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
