package loadtest

import (
	"errors"
	"fmt"

	"github.com/okian/furlong/internal/domain/signal"
	"github.com/okian/furlong/internal/domain/types"
)

// Verify checks a ranked response against the cards that produced it:
//   - every race comes back as one group and no unknown group appears
//   - ranks run 1..N without gaps and never put a lower score ahead
//   - confidence lies in [0, 1]
//   - signals come from the known ladder
//
// Races whose entries all failed may be absent; they must then show up in
// the result's entity errors.
func Verify(cards []Card, res *types.Result) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	switch res.Status {
	case types.StatusOK, types.StatusDegraded, types.StatusFallback:
	default:
		fail("unknown status %q", res.Status)
	}

	sent := make(map[string]int, len(cards))
	for _, c := range cards {
		sent[c.RaceID] = len(c.Entries)
	}
	seen := make(map[string]bool, len(res.Groups))
	for _, g := range res.Groups {
		n, ok := sent[g.GroupID]
		if !ok {
			fail("unexpected race %s", g.GroupID)
			continue
		}
		if seen[g.GroupID] {
			fail("race %s returned twice", g.GroupID)
		}
		seen[g.GroupID] = true
		if len(g.Predictions) > n {
			fail("race %s: %d predictions for %d entries", g.GroupID, len(g.Predictions), n)
		}
		errs = append(errs, verifyGroup(g)...)
	}
	if len(res.Errors) == 0 {
		for id := range sent {
			if !seen[id] {
				fail("race %s missing without entity errors", id)
			}
		}
	}
	return errors.Join(errs...)
}

func verifyGroup(g types.GroupResult) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: race %s: "+format, append([]any{ErrInconsistent, g.GroupID}, args...)...))
	}

	for i, p := range g.Predictions {
		if p.Confidence < 0 || p.Confidence > 1 {
			fail("%s confidence %v outside [0,1]", p.EntityID, p.Confidence)
		}
		if !knownSignal(p.Signal) {
			fail("%s unknown signal %q", p.EntityID, p.Signal)
		}
		if p.Rank != i+1 {
			fail("%s at position %d has rank %d", p.EntityID, i+1, p.Rank)
		}
		if i > 0 && p.FusedScore > g.Predictions[i-1].FusedScore {
			fail("%s scores above %s but ranks below", p.EntityID, g.Predictions[i-1].EntityID)
		}
	}
	return errs
}

func knownSignal(s string) bool {
	switch s {
	case signal.StrongBuy, signal.Buy, signal.Hold, signal.Wait:
		return true
	}
	return false
}
