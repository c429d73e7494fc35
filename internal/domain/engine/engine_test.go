package engine_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/okian/furlong/internal/domain/engine"
	"github.com/okian/furlong/internal/domain/ensemble"
	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/scoring"
	"github.com/okian/furlong/internal/domain/signal"
	"github.com/okian/furlong/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeRegistry map[string]scoring.Scorer

func (r fakeRegistry) Scorer(id string) (scoring.Scorer, bool) {
	s, ok := r[id]
	return s, ok
}

func (r fakeRegistry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeScorer struct {
	id     string
	kind   scoring.Kind
	schema features.Schema
	fn     func(m scoring.Matrix) ([]float64, error)
}

func (f *fakeScorer) ID() string              { return f.id }
func (f *fakeScorer) Kind() scoring.Kind      { return f.kind }
func (f *fakeScorer) Schema() features.Schema { return f.schema }
func (f *fakeScorer) Score(_ context.Context, m scoring.Matrix) ([]float64, error) {
	return f.fn(m)
}

type fakeHistory struct {
	byEntity map[string]*model.HistoricalContext
	err      error
}

func (h *fakeHistory) History(_ context.Context, entityID string, _ time.Time) (*model.HistoricalContext, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.byEntity[entityID], nil
}

func weightModel(t *testing.T) scoring.Scorer {
	m, err := scoring.NewLinearModel("weight_ranker", scoring.Ranking, features.Schema{features.Weight},
		scoring.LinearArtifact{Weights: map[string]float64{features.Weight: 1}})
	if err != nil {
		t.Fatalf("building model: %v", err)
	}
	return m
}

func failing(id string, err error) scoring.Scorer {
	return &fakeScorer{id: id, kind: scoring.Probability, schema: features.Schema{features.Weight},
		fn: func(scoring.Matrix) ([]float64, error) { return nil, err }}
}

func entry(name, race string, weight float64) model.RawEntry {
	return model.RawEntry{EntityID: name, GroupID: race, Date: "2024-03-10", Weight: model.Float(weight)}
}

func card() []model.RawEntry {
	return []model.RawEntry{
		entry("C", "R1", 50),
		entry("X", "R2", 58),
		entry("A", "R1", 60),
		entry("B", "R1", 55),
		entry("Y", "R2", 58),
	}
}

func TestRank(t *testing.T) {
	Convey("Given an engine with one ranking model", t, func() {
		reg := fakeRegistry{"weight_ranker": weightModel(t)}
		e, err := engine.New(reg)
		So(err, ShouldBeNil)

		Convey("When a two-race card is ranked", func() {
			res, err := e.Rank(context.Background(), engine.Request{Entries: card()})

			Convey("Then each race is ranked on its own, best first", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, types.StatusOK)
				So(res.Mode, ShouldEqual, engine.ModeRank)
				So(res.BatchID, ShouldNotBeEmpty)
				So(res.Models, ShouldResemble, []string{"weight_ranker"})
				So(len(res.Groups), ShouldEqual, 2)

				r1 := res.Groups[0]
				So(r1.GroupID, ShouldEqual, "R1")
				So(r1.Predictions[0].EntityID, ShouldEqual, "A")
				So(r1.Predictions[1].EntityID, ShouldEqual, "B")
				So(r1.Predictions[2].EntityID, ShouldEqual, "C")
				for i, p := range r1.Predictions {
					So(p.Rank, ShouldEqual, i+1)
					So(p.Confidence, ShouldBeBetweenOrEqual, 0.0, 1.0)
				}
			})

			Convey("Then a single model's raw score is the fused score", func() {
				So(res.Groups[0].Predictions[0].FusedScore, ShouldEqual, 60)
				So(res.Groups[0].Predictions[0].ModelScores["weight_ranker"], ShouldEqual, 60)
				So(res.Groups[0].Predictions[0].ModelsUsed, ShouldEqual, 1)
			})

			Convey("Then signals and group labels follow the confidence", func() {
				top := res.Groups[0].Predictions[0]
				So(top.Confidence, ShouldAlmostEqual, 1.0, 1e-12)
				So(top.Signal, ShouldEqual, signal.StrongBuy)
				So(res.Groups[0].Difficulty, ShouldEqual, signal.Easy)
				So(res.Groups[0].OverallRecommendation, ShouldEqual, signal.StrongBet)
			})

			Convey("Then a tied race keeps input order and counts as degenerate", func() {
				r2 := res.Groups[1]
				So(r2.Predictions[0].EntityID, ShouldEqual, "X")
				So(r2.Predictions[0].Confidence, ShouldEqual, 0.5)
				So(r2.Difficulty, ShouldEqual, signal.Difficult)
				So(res.Diagnostics.DegenerateGroups, ShouldEqual, 1)
			})
		})

		Convey("When one entry has no race id", func() {
			entries := card()
			entries[3].GroupID = ""
			res, err := e.Rank(context.Background(), engine.Request{Entries: entries})

			Convey("Then only that entry fails", func() {
				So(err, ShouldBeNil)
				So(len(res.Errors), ShouldEqual, 1)
				So(res.Errors[0].Index, ShouldEqual, 3)
				So(res.Errors[0].Kind, ShouldEqual, engine.KindMalformedInput)
				So(len(res.Groups[0].Predictions), ShouldEqual, 2)
			})
		})

		Convey("When the request is empty or names unknown models", func() {
			_, errEmpty := e.Rank(context.Background(), engine.Request{})
			_, errUnknown := e.Rank(context.Background(), engine.Request{Entries: card(), Models: []string{"nope"}})
			_, errNone := e.Rank(context.Background(), engine.Request{Entries: card(), Models: []string{}})

			Convey("Then the batch is rejected", func() {
				So(errors.Is(errEmpty, engine.ErrEmptyBatch), ShouldBeTrue)
				So(errors.Is(errUnknown, engine.ErrUnknownModel), ShouldBeTrue)
				So(errors.Is(errNone, engine.ErrNoModels), ShouldBeTrue)
			})
		})

		Convey("When the caller supplies a stricter threshold", func() {
			res, err := e.Rank(context.Background(), engine.Request{Entries: card(), Threshold: 0.99})

			Convey("Then it is echoed and applied", func() {
				So(err, ShouldBeNil)
				So(res.Threshold, ShouldEqual, 0.99)
			})
		})
	})
}

func TestRankDegraded(t *testing.T) {
	Convey("Given one healthy model and one whose schema does not match", t, func() {
		mismatch := &scoring.SchemaMismatchError{ModelID: "xgboost", Missing: []string{"odds"}}
		reg := fakeRegistry{"weight_ranker": weightModel(t), "xgboost": failing("xgboost", mismatch)}
		e, err := engine.New(reg)
		So(err, ShouldBeNil)

		res, err := e.Rank(context.Background(), engine.Request{Entries: card()})

		Convey("Then the failing model is excluded and the result is labeled", func() {
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, types.StatusDegraded)
			So(res.Degraded(), ShouldBeTrue)
			So(res.Degradation.ExcludedModels, ShouldHaveLength, 1)
			So(res.Degradation.ExcludedModels[0].ModelID, ShouldEqual, "xgboost")
			So(res.Degradation.ExcludedModels[0].Kind, ShouldEqual, engine.KindSchemaMismatch)
		})

		Convey("Then the mean is over the models that did score", func() {
			So(res.Groups[0].Predictions[0].FusedScore, ShouldEqual, 60)
			So(res.Models, ShouldResemble, []string{"weight_ranker"})
		})
	})

	Convey("Given models that all fail", t, func() {
		reg := fakeRegistry{"a": failing("a", errors.New("boom")), "b": failing("b", scoring.ErrRemote)}

		Convey("When fallback is disabled", func() {
			e, err := engine.New(reg)
			So(err, ShouldBeNil)
			_, err = e.Rank(context.Background(), engine.Request{Entries: card()})

			Convey("Then the batch fails with no scores available", func() {
				So(errors.Is(err, ensemble.ErrNoScoresAvailable), ShouldBeTrue)
			})
		})

		Convey("When fallback is enabled", func() {
			e, err := engine.New(reg, engine.WithFallback(true))
			So(err, ShouldBeNil)
			res, err := e.Rank(context.Background(), engine.Request{Entries: card()})

			Convey("Then a labeled placeholder ranks by input order", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, types.StatusFallback)
				So(res.Degradation.Reason, ShouldContainSubstring, "placeholder")
				So(res.Degradation.ExcludedModels, ShouldHaveLength, 2)
				r1 := res.Groups[0].Predictions
				So(r1[0].EntityID, ShouldEqual, "C")
				So(r1[0].FusedScore, ShouldEqual, 0)
				So(r1[0].Signal, ShouldEqual, signal.Wait)
			})
		})
	})
}

func TestRankWithHistory(t *testing.T) {
	Convey("Given a history provider that leaks a future run", t, func() {
		hist := &fakeHistory{byEntity: map[string]*model.HistoricalContext{
			"A": {Records: []model.HistoricalRecord{
				{Date: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Position: 1},
				{Date: time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), Position: 1},
			}},
		}}
		e, err := engine.New(fakeRegistry{"weight_ranker": weightModel(t)}, engine.WithHistory(hist))
		So(err, ShouldBeNil)

		res, err := e.Rank(context.Background(), engine.Request{Entries: card()})

		Convey("Then the future run is excluded and counted", func() {
			So(err, ShouldBeNil)
			So(res.Diagnostics.TemporalExcluded, ShouldEqual, 1)
			So(res.Diagnostics.HistoryUnavailable, ShouldEqual, 0)
		})
	})

	Convey("Given a history provider that is down", t, func() {
		hist := &fakeHistory{err: errors.New("connection refused")}
		e, err := engine.New(fakeRegistry{"weight_ranker": weightModel(t)}, engine.WithHistory(hist))
		So(err, ShouldBeNil)

		res, err := e.Rank(context.Background(), engine.Request{Entries: card()})

		Convey("Then ranking proceeds without history and says so", func() {
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, types.StatusOK)
			So(res.Diagnostics.HistoryUnavailable, ShouldEqual, 5)
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given a probability model and a ranking model", t, func() {
		prob := &fakeScorer{id: "lightgbm", kind: scoring.Probability, schema: features.Schema{features.Weight},
			fn: func(m scoring.Matrix) ([]float64, error) {
				out := make([]float64, m.Len())
				for i, r := range m.Rows {
					out[i] = r[0] / 100
				}
				return out, nil
			}}
		e, err := engine.New(fakeRegistry{"lightgbm": prob, "weight_ranker": weightModel(t)})
		So(err, ShouldBeNil)

		Convey("When entries are classified without race ids", func() {
			res, err := e.Predict(context.Background(), engine.Request{Entries: []model.RawEntry{
				entry("A", "", 60), entry("B", "", 30),
			}})

			Convey("Then only the probability model is used", func() {
				So(err, ShouldBeNil)
				So(res.Mode, ShouldEqual, engine.ModePredict)
				So(res.Models, ShouldResemble, []string{"lightgbm"})
				So(res.Classifications, ShouldHaveLength, 2)
			})

			Convey("Then each entity gets a probability, a class and a confidence", func() {
				a, b := res.Classifications[0], res.Classifications[1]
				So(a.Probability, ShouldEqual, 0.6)
				So(a.Prediction, ShouldEqual, 1)
				So(a.Confidence, ShouldEqual, 0.6)
				So(b.Prediction, ShouldEqual, 0)
				So(b.Confidence, ShouldAlmostEqual, 0.7, 1e-12)
			})
		})

		Convey("When only ranking models are entitled", func() {
			_, err := e.Predict(context.Background(), engine.Request{Entries: card(), Models: []string{"weight_ranker"}})

			Convey("Then there is nothing to classify with", func() {
				So(errors.Is(err, engine.ErrNoProbabilityModel), ShouldBeTrue)
			})
		})
	})
}

func TestStreak(t *testing.T) {
	Convey("Given a probability model that knows each race", t, func() {
		probs := map[float64]float64{50: 0.5, 51: 0.4, 52: 0.3, 53: 0.2}
		prob := &fakeScorer{id: "lightgbm", kind: scoring.Probability, schema: features.Schema{features.Weight},
			fn: func(m scoring.Matrix) ([]float64, error) {
				out := make([]float64, m.Len())
				for i, r := range m.Rows {
					out[i] = probs[r[0]]
				}
				return out, nil
			}}
		e, err := engine.New(fakeRegistry{"lightgbm": prob})
		So(err, ShouldBeNil)
		So(e.StreakLength(), ShouldEqual, 4)

		races := []model.RawEntry{entry("Winx", "", 50), entry("Winx", "", 51), entry("Winx", "", 52), entry("Winx", "", 53)}

		Convey("When four races are given", func() {
			res, err := e.Streak(context.Background(), engine.StreakRequest{Entries: races})

			Convey("Then the streak is the product of the wins", func() {
				So(err, ShouldBeNil)
				So(res.Model, ShouldEqual, "lightgbm")
				So(res.Probability, ShouldAlmostEqual, 0.012, 1e-12)
				So(*res.Odds, ShouldAlmostEqual, 83.33, 0.01)
				So(res.IndividualProbabilities, ShouldResemble, []float64{0.5, 0.4, 0.3, 0.2})
				So(res.Detail[3].RaceNumber, ShouldEqual, 4)
			})
		})

		Convey("When the number of races is wrong", func() {
			_, err := e.Streak(context.Background(), engine.StreakRequest{Entries: races[:3]})

			Convey("Then the request is rejected", func() {
				So(errors.Is(err, engine.ErrStreakLength), ShouldBeTrue)
			})
		})
	})
}
