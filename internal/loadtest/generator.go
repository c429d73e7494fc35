package loadtest

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/furlong/internal/domain/model"
)

var (
	tracks     = []string{"Randwick", "Flemington", "Rosehill", "Caulfield", "Eagle Farm", "Morphettville"}
	conditions = []string{"Firm", "Good", "Good 4", "Soft 5", "Soft 7", "Heavy 8", "Heavy 10"}
	classes    = []string{"Maiden", "Class 1", "Class 3", "Benchmark 72", "Listed", "Group 3", "Group 1"}
	distances  = []int{1000, 1200, 1400, 1600, 2000, 2400, 3200}
	positions  = []string{"1st", "2nd", "3rd", "4th", "5th", "8th", "12th"}
	jockeys    = []string{"J. McDonald", "H. Bowman", "K. McEvoy", "C. Williams", "D. Lane", "T. Berry"}
	trainers   = []string{"C. Waller", "G. Waterhouse", "J. Cummings", "P. Snowden", "C. Maher"}
)

// Generator builds random but plausible race cards.
type Generator struct {
	rnd  *rand.Rand
	date time.Time
}

// NewGenerator creates a generator. Cards generated from the same seed are
// identical apart from their uuid race ids.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		rnd:  rand.New(rand.NewPCG(seed, seed>>1|1)),
		date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
}

// Cards generates n race cards of runners entries each.
func (g *Generator) Cards(n, runners int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = g.card(i, runners)
	}
	return cards
}

func (g *Generator) card(index, runners int) Card {
	raceID := uuid.NewString()
	date := g.date.AddDate(0, 0, index/8)
	track := pick(g.rnd, tracks)
	distance := pick(g.rnd, distances)
	class := pick(g.rnd, classes)
	condition := pick(g.rnd, conditions)
	stakes := fmt.Sprintf("$%d", (1+g.rnd.IntN(20))*25000)

	entries := make([]model.RawEntry, runners)
	for j := range entries {
		e := model.RawEntry{
			EntityID:       fmt.Sprintf("Runner %d-%d", index+1, j+1),
			GroupID:        raceID,
			Track:          track,
			Date:           date.Format(time.DateOnly),
			RaceType:       "Thoroughbred",
			Distance:       model.Measure(strconv.Itoa(distance) + "m"),
			Details:        class,
			Stakes:         stakes,
			TrackCondition: condition,
			Barrier:        model.Float(float64(j + 1)),
			Weight:         model.Float(round1(52 + g.rnd.Float64()*10)),
			Age:            model.Float(float64(2 + g.rnd.IntN(7))),
			Jockey:         pick(g.rnd, jockeys),
			Trainer:        pick(g.rnd, trainers),
		}
		// Most runners have a previous start; first-starters do not.
		if g.rnd.IntN(5) > 0 {
			e.PrevDate = date.AddDate(0, 0, -(7 + g.rnd.IntN(60))).Format(time.DateOnly)
			e.PrevPosition = pick(g.rnd, positions)
			e.PrevWeight = model.Float(round1(*e.Weight + g.rnd.Float64()*4 - 2))
		}
		// Some fields arrive blank, as they do from scraped cards.
		if g.rnd.IntN(10) == 0 {
			e.Weight = nil
		}
		entries[j] = e
	}
	return Card{RaceID: raceID, Entries: entries}
}

func pick[T any](rnd *rand.Rand, xs []T) T {
	return xs[rnd.IntN(len(xs))]
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
