package confidence_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/okian/furlong/internal/domain/confidence"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScore(t *testing.T) {
	Convey("Given a group with a clear leader", t, func() {
		group := []float64{0.9, 0.5, 0.1}

		Convey("Then the leader combines full standing and its margin", func() {
			// norm 1, separation 0.4/0.8 = 0.5, boosted to 1
			So(confidence.Score(0.9, group), ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("Then the middle entity gets half standing plus its margin", func() {
			So(confidence.Score(0.5, group), ShouldAlmostEqual, 0.7*0.5+0.3*1.0, 1e-12)
		})

		Convey("Then the lowest entity has no separation", func() {
			So(confidence.Score(0.1, group), ShouldEqual, 0)
		})
	})

	Convey("Given a group where every score is equal", t, func() {
		group := []float64{0.4, 0.4, 0.4}

		Convey("Then every member gets the neutral 0.5", func() {
			for _, c := range confidence.Scores(group) {
				So(c, ShouldEqual, 0.5)
			}
			So(confidence.Degenerate(group), ShouldBeTrue)
		})
	})

	Convey("Given a single entity", t, func() {
		So(confidence.Score(3.2, []float64{3.2}), ShouldEqual, 0.5)
		So(confidence.Degenerate([]float64{3.2}), ShouldBeTrue)
	})

	Convey("Given two entities tied at the top", t, func() {
		group := []float64{0.8, 0.8, 0.2}

		Convey("Then neither has any separation", func() {
			So(confidence.Score(0.8, group), ShouldAlmostEqual, 0.7, 1e-12)
			So(confidence.Degenerate(group), ShouldBeFalse)
		})
	})

	Convey("Given arbitrary groups including missing scores", t, func() {
		rng := rand.New(rand.NewSource(11))
		for n := 0; n < 100; n++ {
			group := make([]float64, 1+rng.Intn(12))
			for i := range group {
				group[i] = rng.NormFloat64() * 10
			}
			group[0] = math.NaN()

			for _, c := range confidence.Scores(group) {
				So(c, ShouldBeBetweenOrEqual, 0.0, 1.0)
			}
		}
	})
}
