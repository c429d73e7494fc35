// Package ranking assigns dense, per-group ranks from fused scores.
package ranking

import (
	"math"
	"sort"
)

// Item is one entity presented to the ranker. Input order is significant: it
// breaks ties.
type Item struct {
	EntityID string
	GroupID  string
	Score    float64
}

// Group lists the members of one group by index into the ranked items, best
// first.
type Group struct {
	ID      string
	Members []int
}

// GroupRanker orders entities within their group.
//
// Ordering: score DESC, then input position ASC. A score that is NaN sorts
// after every real score. Ranks are 1..N per group with no gaps.
type GroupRanker struct{}

// NewGroupRanker creates a ranker.
func NewGroupRanker() *GroupRanker { return &GroupRanker{} }

// Rank returns the rank of every item, aligned with the input.
func (r *GroupRanker) Rank(items []Item) []int {
	ranks := make([]int, len(items))
	for _, g := range r.Groups(items) {
		for pos, idx := range g.Members {
			ranks[idx] = pos + 1
		}
	}
	return ranks
}

// Groups partitions items by group id in first-seen order and sorts each
// group best first.
func (r *GroupRanker) Groups(items []Item) []Group {
	var groups []Group
	byID := make(map[string]int)
	for i, it := range items {
		g, ok := byID[it.GroupID]
		if !ok {
			g = len(groups)
			byID[it.GroupID] = g
			groups = append(groups, Group{ID: it.GroupID})
		}
		groups[g].Members = append(groups[g].Members, i)
	}
	for _, g := range groups {
		members := g.Members
		sort.SliceStable(members, func(a, b int) bool {
			return before(items[members[a]].Score, members[a], items[members[b]].Score, members[b])
		})
	}
	return groups
}

// before reports whether (aScore, aIdx) ranks ahead of (bScore, bIdx).
func before(aScore float64, aIdx int, bScore float64, bIdx int) bool {
	aNaN, bNaN := math.IsNaN(aScore), math.IsNaN(bScore)
	switch {
	case aNaN && bNaN:
		return aIdx < bIdx
	case aNaN:
		return false
	case bNaN:
		return true
	case aScore != bScore:
		return aScore > bScore // higher score ranks earlier
	default:
		return aIdx < bIdx // tie-breaker by input order
	}
}
