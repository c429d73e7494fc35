// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/furlong/internal/app"
	"github.com/okian/furlong/internal/domain/engine"
	"github.com/okian/furlong/internal/domain/ensemble"
	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/validation"
	"github.com/okian/furlong/pkg/logger"
)

// TierHeader carries the caller's subscription tier, set by an upstream auth
// stage.
const TierHeader = "X-Tier"

const defaultBodyLimit = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	BatchDependencies
	StreakDependencies
	ModelsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	rankHandler    *BatchHandler
	predictHandler *BatchHandler
	streakHandler  *StreakHandler
	modelsHandler  *ModelsHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	bodyLimit int64
	log       logger.Logger
}

// WithBodyLimit caps request bodies in bytes.
func WithBodyLimit(n int64) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.bodyLimit = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{bodyLimit: defaultBodyLimit, log: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		rankHandler:    NewBatchHandler(deps, engine.ModeRank, cfg),
		predictHandler: NewBatchHandler(deps, engine.ModePredict, cfg),
		streakHandler:  NewStreakHandler(deps, cfg),
		modelsHandler:  NewModelsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.Handle(path, RequestID(MetricsMiddleware(h, endpoint)))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/v1/rank", "rank", s.rankHandler.HandleBatch)
	route("/v1/predict", "predict", s.predictHandler.HandleBatch)
	route("/v1/streak", "streak", s.streakHandler.HandleStreak)
	route("/v1/models", "models", s.modelsHandler.HandleModels)
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: w.Header().Get(RequestIDHeader)})
}

// fail maps err onto a status and error code and writes it. Server-side
// failures are logged with the request id.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := classify(err)
	if status >= statusInternalError {
		log.Error(ctx, "request failed",
			logger.String("request_id", GetRequestID(ctx)), logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// classify translates domain errors to HTTP.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, ErrBatchTooLarge), errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusBadRequest, "batch_too_large"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, validation.ErrInvalidDocument),
		errors.Is(err, model.ErrMalformedInput),
		errors.Is(err, engine.ErrEmptyBatch),
		errors.Is(err, engine.ErrStreakLength):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, engine.ErrUnknownModel):
		return http.StatusBadRequest, "unknown_model"
	case errors.Is(err, service.ErrNotEntitled), errors.Is(err, engine.ErrNoModels):
		return http.StatusForbidden, "not_entitled"
	case errors.Is(err, engine.ErrNoProbabilityModel):
		return http.StatusUnprocessableEntity, "no_probability_model"
	case errors.Is(err, ensemble.ErrNoScoresAvailable):
		return http.StatusServiceUnavailable, "no_scores_available"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// readBody reads at most limit bytes and validates them against document.
func readBody(w http.ResponseWriter, r *http.Request, limit int64, document string) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := validation.JSON(document, body); err != nil {
		return nil, err
	}
	return body, nil
}

// decode unmarshals a validated body.
func decode(body []byte, into any) error {
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
