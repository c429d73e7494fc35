// Package engine runs the ranking pipeline for one batch: derive features,
// score with every selected model, fuse, rank within each race, then attach
// confidence and signals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/furlong/internal/domain/confidence"
	"github.com/okian/furlong/internal/domain/ensemble"
	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/ranking"
	"github.com/okian/furlong/internal/domain/scoring"
	"github.com/okian/furlong/internal/domain/signal"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/pkg/logger"
	"github.com/okian/furlong/pkg/metrics"
)

// Batch modes.
const (
	ModeRank    = "rank"
	ModePredict = "predict"
	ModeStreak  = "streak"
)

// Registry resolves model ids to scorers. Scorers are shared and read-only.
type Registry interface {
	Scorer(id string) (scoring.Scorer, bool)
	IDs() []string
}

// HistoryProvider supplies prior runs of an entity. Implementations may
// return records at or after asOf; the engine filters them.
type HistoryProvider interface {
	History(ctx context.Context, entityID string, asOf time.Time) (*model.HistoricalContext, error)
}

// Request is one batch of raw entries.
type Request struct {
	Entries []model.RawEntry
	// Models is the entitled subset in preference order. Nil selects every
	// registered model; an empty non-nil slice selects none.
	Models []string
	// Threshold overrides the engine's confidence threshold when positive.
	Threshold float64
}

// Engine holds only immutable collaborators and is safe for concurrent use.
type Engine struct {
	registry     Registry
	history      HistoryProvider
	deriver      *features.Deriver
	fuser        *ensemble.Fuser
	ranker       *ranking.GroupRanker
	log          logger.Logger
	threshold    float64
	concurrency  int
	fallback     bool
	streakLength int
}

// New creates an engine over a model registry.
func New(reg Registry, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("engine: registry is required")
	}
	e := &Engine{
		registry:     reg,
		deriver:      features.NewDeriver(),
		fuser:        ensemble.NewFuser(),
		ranker:       ranking.NewGroupRanker(),
		log:          logger.Nop(),
		threshold:    signal.DefaultThreshold,
		concurrency:  defaultConcurrency,
		streakLength: defaultStreakLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Threshold returns the default confidence threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// FieldSize returns the deriver's fallback field size.
func (e *Engine) FieldSize() int { return e.deriver.FieldSize() }

// Strategy returns the active fusion strategy.
func (e *Engine) Strategy() ensemble.Strategy { return e.fuser.Strategy() }

// StreakLength returns how many races a streak request must carry.
func (e *Engine) StreakLength() int { return e.streakLength }

// row is one valid entry with its derived profile.
type row struct {
	index   int
	entry   model.RawEntry
	profile features.Profile
}

// batch is the scored, fused state shared by the rank and predict modes.
type batch struct {
	id       string
	rows     []row
	byModel  map[string][]float64
	fused    ensemble.Fused
	failures []types.ModelFailure
	errs     []types.EntityError
	diag     types.Diagnostics
	selected int
}

// Rank scores the batch and ranks entities within their race.
func (e *Engine) Rank(ctx context.Context, req Request) (*types.Result, error) {
	start := time.Now()
	res, err := e.rank(ctx, req)
	e.finish(ModeRank, res, err, start)
	return res, err
}

func (e *Engine) rank(ctx context.Context, req Request) (*types.Result, error) {
	scorers, err := e.selectScorers(req.Models, nil)
	if err != nil {
		return nil, err
	}
	b, err := e.run(ctx, req.Entries, true, scorers)
	fallback := false
	if errors.Is(err, ensemble.ErrNoScoresAvailable) && e.fallback {
		fallback = true
	} else if err != nil {
		return nil, err
	}

	gen := e.generator(req.Threshold)
	res := e.newResult(b, ModeRank, gen.Threshold())
	if len(b.rows) == 0 {
		return res, nil
	}

	if fallback {
		e.placeholder(b, res)
		return res, nil
	}

	var items []ranking.Item
	var itemRow []int
	for i, r := range b.rows {
		if ensemble.IsMissing(b.fused.Scores[i]) {
			continue
		}
		items = append(items, ranking.Item{EntityID: r.entry.EntityID, GroupID: r.entry.GroupID, Score: b.fused.Scores[i]})
		itemRow = append(itemRow, i)
	}

	for _, g := range e.ranker.Groups(items) {
		scores := make([]float64, len(g.Members))
		for pos, idx := range g.Members {
			scores[pos] = items[idx].Score
		}
		if confidence.Degenerate(scores) {
			res.Diagnostics.DegenerateGroups++
		}
		confs := confidence.Scores(scores)

		gr := types.GroupResult{
			GroupID:               g.ID,
			Difficulty:            signal.RaceDifficulty(scores),
			OverallRecommendation: gen.Overall(confs[0]),
			Predictions:           make([]types.Prediction, len(g.Members)),
		}
		for pos, idx := range g.Members {
			i := itemRow[idx]
			sig := gen.Generate(pos+1, confs[pos])
			gr.Predictions[pos] = types.Prediction{
				EntityID:       b.rows[i].entry.EntityID,
				GroupID:        g.ID,
				FusedScore:     scores[pos],
				Rank:           pos + 1,
				Confidence:     confs[pos],
				Signal:         sig.Label,
				Recommendation: sig.Recommendation,
				ConfidenceTier: sig.Tier,
				ExpectedReturn: sig.ExpectedReturn,
				ModelScores:    b.modelScores(i),
				ModelsUsed:     b.fused.Used[i],
			}
		}
		res.Groups = append(res.Groups, gr)
	}
	return res, nil
}

// Predict classifies each entity on its own using probability-style models.
func (e *Engine) Predict(ctx context.Context, req Request) (*types.Result, error) {
	start := time.Now()
	res, err := e.predict(ctx, req)
	e.finish(ModePredict, res, err, start)
	return res, err
}

func (e *Engine) predict(ctx context.Context, req Request) (*types.Result, error) {
	scorers, err := e.selectScorers(req.Models, isProbability)
	if err != nil {
		return nil, err
	}
	b, err := e.run(ctx, req.Entries, false, scorers)
	if err != nil {
		return nil, err
	}
	res := e.newResult(b, ModePredict, e.generator(req.Threshold).Threshold())
	for i, r := range b.rows {
		p := b.fused.Scores[i]
		if ensemble.IsMissing(p) {
			continue
		}
		p = math.Max(0, math.Min(1, p))
		c := types.Classification{
			EntityID:    r.entry.EntityID,
			GroupID:     r.entry.GroupID,
			Probability: p,
			Confidence:  math.Max(p, 1-p),
			ModelScores: b.modelScores(i),
			ModelsUsed:  b.fused.Used[i],
		}
		if p >= 0.5 {
			c.Prediction = 1
		}
		res.Classifications = append(res.Classifications, c)
	}
	return res, nil
}

// run validates, derives, scores and fuses. It returns the partial batch with
// ensemble.ErrNoScoresAvailable when no scorer produced anything.
func (e *Engine) run(ctx context.Context, entries []model.RawEntry, requireGroup bool, scorers []scoring.Scorer) (*batch, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	b := &batch{id: uuid.NewString(), selected: len(scorers)}

	if err := e.prepare(ctx, b, entries, requireGroup); err != nil {
		return nil, err
	}
	if len(b.rows) == 0 {
		return b, nil
	}

	if err := e.score(ctx, b, scorers); err != nil {
		return nil, err
	}

	fuseStart := time.Now()
	fused, err := e.fuser.Fuse(len(b.rows), b.byModel)
	metrics.RecordFusionLatency(sinceMs(fuseStart))
	b.fused = fused
	if err != nil {
		if errors.Is(err, ensemble.ErrNoScoresAvailable) {
			e.log.Error(ctx, "no model produced a score",
				logger.String("batch_id", b.id), logger.Int("models", len(scorers)), logger.Int("entities", len(b.rows)))
			return b, fmt.Errorf("batch %s: %w (%d of %d models failed)", b.id, err, len(b.failures), len(scorers))
		}
		return nil, err
	}

	for i, r := range b.rows {
		if ensemble.IsMissing(fused.Scores[i]) {
			b.entityError(types.EntityError{
				Index: r.index, EntityID: r.entry.EntityID, Kind: KindNoScore,
				Message: "no model produced a usable score",
			})
		}
	}
	metrics.RecordEntitiesScored(len(b.rows))
	return b, nil
}

// prepare validates entries, fetches history and derives one profile per
// valid entry. Profiles are projected per model later.
func (e *Engine) prepare(ctx context.Context, b *batch, entries []model.RawEntry, requireGroup bool) error {
	profiles := make([]features.Profile, len(entries))
	diags := make([]features.Diagnostics, len(entries))
	errs := make([]error, len(entries))
	histFailed := make([]bool, len(entries))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range entries {
		entry := entries[i]
		if err := entry.Validate(requireGroup); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			var hist *model.HistoricalContext
			if e.history != nil {
				asOf, _ := model.ParseDate(entry.Date)
				h, err := e.history.History(ctx, entry.EntityID, asOf)
				switch {
				case err != nil:
					histFailed[i] = true
					metrics.RecordHistoryLookup("error")
				case h == nil:
					metrics.RecordHistoryLookup("miss")
				default:
					hist = h
					metrics.RecordHistoryLookup("hit")
				}
			}
			profiles[i], diags[i], errs[i] = e.deriver.Prepare(entry, hist)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, entry := range entries {
		if histFailed[i] {
			b.diag.HistoryUnavailable++
		}
		if errs[i] != nil {
			b.entityError(types.EntityError{Index: i, EntityID: entry.EntityID, Kind: KindMalformedInput, Message: errs[i].Error()})
			continue
		}
		b.diag.TemporalExcluded += diags[i].Temporal.Excluded
		b.rows = append(b.rows, row{index: i, entry: entry, profile: profiles[i]})
	}
	if b.diag.TemporalExcluded > 0 {
		metrics.RecordTemporalExclusions(b.diag.TemporalExcluded)
		e.log.Debug(ctx, "historical values excluded",
			logger.String("batch_id", b.id), logger.Int("excluded", b.diag.TemporalExcluded))
	}
	if b.diag.HistoryUnavailable > 0 {
		e.log.Warn(ctx, "history unavailable, deriving without it",
			logger.String("batch_id", b.id), logger.Int("entities", b.diag.HistoryUnavailable))
	}
	return nil
}

// score runs every scorer on its own projection of the batch. A failing
// scorer is excluded and recorded; it never fails the batch by itself.
func (e *Engine) score(ctx context.Context, b *batch, scorers []scoring.Scorer) error {
	matrices := make(map[string]scoring.Matrix)
	projErr := make(map[string]error)
	for _, s := range scorers {
		schema := s.Schema()
		key := schema.Key()
		if _, ok := matrices[key]; ok {
			continue
		}
		if _, ok := projErr[key]; ok {
			continue
		}
		m, err := b.project(schema)
		if err != nil {
			projErr[key] = err
			continue
		}
		matrices[key] = m
	}

	outs := make([][]float64, len(scorers))
	errs := make([]error, len(scorers))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, s := range scorers {
		key := s.Schema().Key()
		if err := projErr[key]; err != nil {
			errs[i] = err
			continue
		}
		m := matrices[key]
		g.Go(func() error {
			start := time.Now()
			out, err := s.Score(ctx, m)
			metrics.RecordScorerLatency(s.ID(), sinceMs(start))
			if err == nil && len(out) != m.Len() {
				err = fmt.Errorf("model %s returned %d scores for %d rows", s.ID(), len(out), m.Len())
			}
			outs[i], errs[i] = out, err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	b.byModel = make(map[string][]float64, len(scorers))
	for i, s := range scorers {
		if errs[i] != nil {
			kind := failureKind(errs[i])
			b.failures = append(b.failures, types.ModelFailure{ModelID: s.ID(), Kind: kind, Message: errs[i].Error()})
			metrics.RecordScorerFailure(s.ID(), kind)
			e.log.Warn(ctx, "scorer excluded from ensemble",
				logger.String("batch_id", b.id), logger.String("model", s.ID()), logger.String("kind", kind), logger.Error(errs[i]))
			continue
		}
		b.byModel[s.ID()] = outs[i]
	}
	return nil
}

// project lays every row out on schema.
func (b *batch) project(schema features.Schema) (scoring.Matrix, error) {
	vectors := make([]features.Vector, len(b.rows))
	for i, r := range b.rows {
		v, err := r.profile.Project(schema)
		if err != nil {
			return scoring.Matrix{}, err
		}
		vectors[i] = v
	}
	return scoring.NewMatrix(schema, vectors)
}

func (b *batch) modelScores(i int) map[string]float64 {
	out := make(map[string]float64, len(b.byModel))
	for id, s := range b.byModel {
		if v := s[i]; !ensemble.IsMissing(v) && !math.IsInf(v, 0) {
			out[id] = v
		}
	}
	return out
}

func (b *batch) entityError(ee types.EntityError) {
	b.errs = append(b.errs, ee)
	metrics.RecordEntityError(ee.Kind)
}

func (e *Engine) newResult(b *batch, mode string, threshold float64) *types.Result {
	res := &types.Result{
		BatchID:     b.id,
		Status:      types.StatusOK,
		Mode:        mode,
		Strategy:    string(e.fuser.Strategy()),
		Threshold:   threshold,
		Models:      append([]string{}, b.fused.Models...),
		Errors:      b.errs,
		Diagnostics: b.diag,
	}
	if len(b.failures) > 0 {
		res.Status = types.StatusDegraded
		res.Degradation = &types.Degradation{
			Reason:         fmt.Sprintf("%d of %d models excluded from the ensemble", len(b.failures), b.selected),
			ExcludedModels: b.failures,
		}
	}
	return res
}

// placeholder ranks each race by input order with zero scores. The result is
// labeled so callers never mistake it for model output.
func (e *Engine) placeholder(b *batch, res *types.Result) {
	res.Status = types.StatusFallback
	res.Models = []string{}
	res.Degradation = &types.Degradation{
		Reason:         "no model produced a score; placeholder ranking by input order",
		ExcludedModels: b.failures,
	}
	items := make([]ranking.Item, len(b.rows))
	for i, r := range b.rows {
		items[i] = ranking.Item{EntityID: r.entry.EntityID, GroupID: r.entry.GroupID}
	}
	for _, g := range e.ranker.Groups(items) {
		gr := types.GroupResult{
			GroupID:               g.ID,
			Difficulty:            signal.Unknown,
			OverallRecommendation: signal.HoldBet,
			Predictions:           make([]types.Prediction, len(g.Members)),
		}
		for pos, idx := range g.Members {
			gr.Predictions[pos] = types.Prediction{
				EntityID:       b.rows[idx].entry.EntityID,
				GroupID:        g.ID,
				Rank:           pos + 1,
				Signal:         signal.Wait,
				Recommendation: "Placeholder ranking - no model output",
				ConfidenceTier: signal.ConfidenceTier(0),
				ExpectedReturn: signal.ExpectedReturn(0),
			}
		}
		res.Groups = append(res.Groups, gr)
	}
}

func (e *Engine) generator(threshold float64) *signal.Generator {
	if threshold > 0 && threshold <= 1 {
		return signal.NewGenerator(signal.WithThreshold(threshold))
	}
	return signal.NewGenerator(signal.WithThreshold(e.threshold))
}

// selectScorers resolves ids in order, dropping duplicates and scorers the
// filter rejects.
func (e *Engine) selectScorers(ids []string, keep func(scoring.Scorer) bool) ([]scoring.Scorer, error) {
	if ids == nil {
		ids = e.registry.IDs()
	}
	seen := make(map[string]struct{}, len(ids))
	var out []scoring.Scorer
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s, ok := e.registry.Scorer(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
		}
		if keep != nil && !keep(s) {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		if keep != nil {
			return nil, ErrNoProbabilityModel
		}
		return nil, ErrNoModels
	}
	return out, nil
}

func (e *Engine) finish(mode string, res *types.Result, err error, start time.Time) {
	status := "error"
	if err == nil && res != nil {
		status = res.Status
		if res.Degraded() {
			metrics.RecordDegradedResult(res.Status)
		}
	}
	metrics.RecordBatch(mode, status, sinceMs(start))
}

func isProbability(s scoring.Scorer) bool { return s.Kind() == scoring.Probability }

func failureKind(err error) string {
	switch {
	case errors.Is(err, scoring.ErrSchemaMismatch), errors.Is(err, features.ErrInvalidSchema):
		return KindSchemaMismatch
	case errors.Is(err, scoring.ErrRemote):
		return KindRemote
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindScorerError
	}
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
