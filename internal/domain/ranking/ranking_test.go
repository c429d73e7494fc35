package ranking_test

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/okian/furlong/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGroupRanker(t *testing.T) {
	Convey("Given a ranker", t, func() {
		r := ranking.NewGroupRanker()

		Convey("When two races are interleaved", func() {
			items := []ranking.Item{
				{EntityID: "a", GroupID: "R1", Score: 0.2},
				{EntityID: "x", GroupID: "R2", Score: 5},
				{EntityID: "b", GroupID: "R1", Score: 0.9},
				{EntityID: "y", GroupID: "R2", Score: 7},
				{EntityID: "c", GroupID: "R1", Score: 0.5},
			}
			ranks := r.Rank(items)
			groups := r.Groups(items)

			Convey("Then each race is ranked on its own", func() {
				So(ranks, ShouldResemble, []int{3, 2, 1, 1, 2})
			})

			Convey("Then groups keep first-seen order and list members best first", func() {
				So(len(groups), ShouldEqual, 2)
				So(groups[0].ID, ShouldEqual, "R1")
				So(groups[0].Members, ShouldResemble, []int{2, 4, 0})
				So(groups[1].Members, ShouldResemble, []int{3, 1})
			})
		})

		Convey("When scores tie", func() {
			items := []ranking.Item{
				{EntityID: "first", GroupID: "R", Score: 0.5},
				{EntityID: "top", GroupID: "R", Score: 0.8},
				{EntityID: "second", GroupID: "R", Score: 0.5},
			}

			Convey("Then the first presented wins the tie", func() {
				So(r.Rank(items), ShouldResemble, []int{2, 1, 3})
			})
		})

		Convey("When a score is missing", func() {
			items := []ranking.Item{
				{EntityID: "nan", GroupID: "R", Score: math.NaN()},
				{EntityID: "low", GroupID: "R", Score: -3},
			}

			Convey("Then it ranks last", func() {
				So(r.Rank(items), ShouldResemble, []int{2, 1})
			})
		})

		Convey("When groups of many sizes are ranked", func() {
			rng := rand.New(rand.NewSource(7))
			var items []ranking.Item
			sizes := map[string]int{}
			for i := 0; i < 200; i++ {
				g := fmt.Sprintf("R%d", rng.Intn(9))
				sizes[g]++
				items = append(items, ranking.Item{EntityID: fmt.Sprint(i), GroupID: g, Score: float64(rng.Intn(5))})
			}
			ranks := r.Rank(items)

			Convey("Then every group gets exactly the ranks 1..N", func() {
				byGroup := map[string][]int{}
				for i, it := range items {
					byGroup[it.GroupID] = append(byGroup[it.GroupID], ranks[i])
				}
				for g, rs := range byGroup {
					sort.Ints(rs)
					for i, rk := range rs {
						So(rk, ShouldEqual, i+1)
					}
					So(len(rs), ShouldEqual, sizes[g])
				}
			})

			Convey("Then ranking is reproducible", func() {
				So(r.Rank(items), ShouldResemble, ranks)
			})
		})

		Convey("When the input is empty", func() {
			So(r.Rank(nil), ShouldBeEmpty)
		})
	})
}
