package scoring

import (
	"context"
	"fmt"

	"github.com/okian/furlong/internal/domain/features"
)

// TreeArtifact is the serialized form of a boosted tree ensemble.
type TreeArtifact struct {
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// Tree is a flat list of nodes; node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split or a leaf. A split sends rows whose value is below
// Threshold to Left, others to Right. Children always follow their parent.
type Node struct {
	Feature   string   `json:"feature,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Left      int      `json:"left,omitempty"`
	Right     int      `json:"right,omitempty"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

type compiledNode struct {
	column    int
	threshold float64
	left      int
	right     int
	leaf      float64
	isLeaf    bool
}

// TreeEnsemble sums leaf values over its trees. Probability models pass the
// sum through a sigmoid.
type TreeEnsemble struct {
	base
	baseScore float64
	trees     [][]compiledNode
}

// NewTreeEnsemble resolves split features against schema and checks that
// every tree terminates.
func NewTreeEnsemble(id string, kind Kind, schema features.Schema, art TreeArtifact, opts ...Option) (*TreeEnsemble, error) {
	b, err := newBase(id, kind, schema, opts)
	if err != nil {
		return nil, err
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: model %s has no trees", ErrInvalidArtifact, id)
	}
	index := make(map[string]int, len(schema))
	for i, name := range schema {
		index[name] = i
	}

	t := &TreeEnsemble{base: b, baseScore: art.BaseScore, trees: make([][]compiledNode, len(art.Trees))}
	for ti, tree := range art.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("%w: model %s tree %d is empty", ErrInvalidArtifact, id, ti)
		}
		nodes := make([]compiledNode, len(tree.Nodes))
		for ni, n := range tree.Nodes {
			if n.Leaf != nil {
				nodes[ni] = compiledNode{leaf: *n.Leaf, isLeaf: true}
				continue
			}
			col, ok := index[n.Feature]
			if !ok {
				return nil, fmt.Errorf("%w: model %s tree %d splits on unknown feature %q", ErrInvalidArtifact, id, ti, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("%w: model %s tree %d node %d has bad children", ErrInvalidArtifact, id, ti, ni)
			}
			nodes[ni] = compiledNode{column: col, threshold: n.Threshold, left: n.Left, right: n.Right}
		}
		t.trees[ti] = nodes
	}
	return t, nil
}

// Score implements Scorer.
func (t *TreeEnsemble) Score(ctx context.Context, x Matrix) ([]float64, error) {
	rows, err := t.prepare(ctx, x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		sum := t.baseScore
		for _, nodes := range t.trees {
			sum += walk(nodes, row)
		}
		out[i] = t.finish(sum)
	}
	return out, nil
}

func walk(nodes []compiledNode, row []float64) float64 {
	i := 0
	for !nodes[i].isLeaf {
		n := nodes[i]
		if row[n.column] < n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return nodes[i].leaf
}
