package signal_test

import (
	"errors"
	"testing"

	"github.com/okian/furlong/internal/domain/signal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given the default threshold of 0.65", t, func() {
		g := signal.NewGenerator()
		So(g.Threshold(), ShouldEqual, 0.65)

		Convey("Then the bands are applied in order", func() {
			So(g.Generate(1, 0.70).Label, ShouldEqual, signal.StrongBuy)
			So(g.Generate(2, 0.60).Label, ShouldEqual, signal.Buy)
			So(g.Generate(3, 0.52).Label, ShouldEqual, signal.Hold)
			So(g.Generate(3, 0.40).Label, ShouldEqual, signal.Wait)
		})

		Convey("Then a top pick below the threshold falls to BUY", func() {
			s := g.Generate(1, 0.60)
			So(s.Label, ShouldEqual, signal.Buy)
			So(s.Recommendation, ShouldEqual, "Place PLACE or EXACTA bet")
		})

		Convey("Then descriptors follow the confidence", func() {
			s := g.Generate(1, 0.9)
			So(s.Recommendation, ShouldEqual, "Place WIN bet")
			So(s.Tier, ShouldEqual, "VERY_HIGH")
			So(s.ExpectedReturn, ShouldEqual, "15-25%")
			So(g.Generate(4, 0.1).Recommendation, ShouldEqual, "Insufficient confidence - wait for better odds")
		})
	})

	Convey("Given a stricter threshold", t, func() {
		g := signal.NewGenerator(signal.WithThreshold(0.8), signal.WithThreshold(5))

		Convey("Then only valid thresholds apply", func() {
			So(g.Threshold(), ShouldEqual, 0.8)
			So(g.Generate(1, 0.75).Label, ShouldEqual, signal.Buy)
		})
	})
}

func TestDescriptors(t *testing.T) {
	Convey("Given confidence breakpoints", t, func() {
		So(signal.ConfidenceTier(0.5), ShouldEqual, "VERY_LOW")
		So(signal.ConfidenceTier(0.55), ShouldEqual, "LOW")
		So(signal.ConfidenceTier(0.7), ShouldEqual, "MODERATE")
		So(signal.ConfidenceTier(0.8), ShouldEqual, "HIGH")
		So(signal.ExpectedReturn(0.6), ShouldEqual, "0-5%")
		So(signal.ExpectedReturn(0.1), ShouldEqual, "Negative expected value")
	})

	Convey("Given top-two score gaps", t, func() {
		So(signal.RaceDifficulty([]float64{0.9, 0.5}), ShouldEqual, signal.Easy)
		So(signal.RaceDifficulty([]float64{0.7, 0.5}), ShouldEqual, signal.Moderate)
		So(signal.RaceDifficulty([]float64{0.55, 0.5, 0.1}), ShouldEqual, signal.Difficult)
		So(signal.RaceDifficulty([]float64{0.55}), ShouldEqual, signal.Unknown)
	})

	Convey("Given the top confidence of a race", t, func() {
		g := signal.NewGenerator()
		So(g.Overall(0.7), ShouldEqual, signal.StrongBet)
		So(g.Overall(0.6), ShouldEqual, signal.Bet)
		So(g.Overall(0.5), ShouldEqual, signal.CautiousBet)
		So(g.Overall(0.3), ShouldEqual, signal.HoldBet)
	})
}

func TestStreakProbability(t *testing.T) {
	Convey("Given four independent win probabilities", t, func() {
		s, err := signal.StreakProbability([]float64{0.5, 0.4, 0.3, 0.2})

		Convey("Then the streak is their product and the odds its inverse", func() {
			So(err, ShouldBeNil)
			So(s.Probability, ShouldAlmostEqual, 0.012, 1e-12)
			So(s.Odds, ShouldNotBeNil)
			So(*s.Odds, ShouldAlmostEqual, 83.33, 0.01)
			So(s.Interpretation, ShouldContainSubstring, "1 in 83")
		})
	})

	Convey("Given a race the horse cannot win", t, func() {
		s, err := signal.StreakProbability([]float64{0.5, 0, 0.3, 0.2})

		Convey("Then the odds are undefined rather than a division by zero", func() {
			So(err, ShouldBeNil)
			So(s.Probability, ShouldEqual, 0)
			So(s.Odds, ShouldBeNil)
			So(s.Interpretation, ShouldEqual, "Streak probability is zero")
		})
	})

	Convey("Given invalid input", t, func() {
		_, err := signal.StreakProbability([]float64{0.5, 1.2})
		So(errors.Is(err, signal.ErrInvalidProbability), ShouldBeTrue)
		_, err = signal.StreakProbability(nil)
		So(errors.Is(err, signal.ErrEmptyStreak), ShouldBeTrue)
	})
}
