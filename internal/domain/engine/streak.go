package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/scoring"
	"github.com/okian/furlong/internal/domain/signal"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/pkg/logger"
	"github.com/okian/furlong/pkg/metrics"
)

// StreakRequest names one entry per consecutive race, in race order.
type StreakRequest struct {
	Entries []model.RawEntry
	// Models follows Request.Models; the first probability-style model is used.
	Models []string
}

// Streak estimates the chance of winning every race in the request, treating
// the races as independent.
func (e *Engine) Streak(ctx context.Context, req StreakRequest) (*types.StreakResult, error) {
	start := time.Now()
	res, err := e.streak(ctx, req)
	status := "error"
	if err == nil {
		status = types.StatusOK
	}
	e.finishStreak(status, start)
	return res, err
}

func (e *Engine) streak(ctx context.Context, req StreakRequest) (*types.StreakResult, error) {
	if len(req.Entries) != e.streakLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStreakLength, len(req.Entries), e.streakLength)
	}
	scorers, err := e.selectScorers(req.Models, isProbability)
	if err != nil {
		return nil, err
	}
	s := scorers[0]
	schema := s.Schema()

	vectors := make([]features.Vector, len(req.Entries))
	for i, entry := range req.Entries {
		if err := entry.Validate(false); err != nil {
			return nil, fmt.Errorf("race %d: %w", i+1, err)
		}
		var hist *model.HistoricalContext
		if e.history != nil {
			asOf, _ := model.ParseDate(entry.Date)
			if h, err := e.history.History(ctx, entry.EntityID, asOf); err == nil {
				hist = h
			} else {
				e.log.Warn(ctx, "history unavailable for streak race", logger.Int("race", i+1), logger.Error(err))
			}
		}
		v, _, err := e.deriver.Derive(entry, schema, hist)
		if err != nil {
			return nil, fmt.Errorf("race %d: %w", i+1, err)
		}
		vectors[i] = v
	}

	m, err := scoring.NewMatrix(schema, vectors)
	if err != nil {
		return nil, err
	}
	probs, err := s.Score(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", s.ID(), err)
	}
	if len(probs) != len(vectors) {
		return nil, fmt.Errorf("model %s returned %d scores for %d races", s.ID(), len(probs), len(vectors))
	}

	st, err := signal.StreakProbability(probs)
	if err != nil {
		return nil, err
	}
	res := &types.StreakResult{
		Model:                   s.ID(),
		Probability:             st.Probability,
		Odds:                    st.Odds,
		IndividualProbabilities: probs,
		Detail:                  make([]types.RaceProbability, len(probs)),
		Interpretation:          st.Interpretation,
	}
	for i, p := range probs {
		res.Detail[i] = types.RaceProbability{RaceNumber: i + 1, EntityID: req.Entries[i].EntityID, WinProbability: p}
	}
	return res, nil
}

func (e *Engine) finishStreak(status string, start time.Time) {
	metrics.RecordBatch(ModeStreak, status, sinceMs(start))
}
