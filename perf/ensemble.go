package perf

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

// A Node is either a split of the form "x[Feature] <= Threshold ?" or a leaf.
type Node struct {
	// Feature is the index of the feature tested by a split node
	Feature int `yaml:"feature,omitempty"`
	// Threshold separates the left (<=) and right (>) subtrees
	Threshold float64 `yaml:"threshold,omitempty"`
	// Left and Right index the children in Tree.Nodes
	Left  int `yaml:"left,omitempty"`
	Right int `yaml:"right,omitempty"`
	// Leaf marks a terminal node; Value is its prediction
	Leaf  bool    `yaml:"leaf,omitempty"`
	Value float64 `yaml:"value,omitempty"`
}

// Tree is a regression tree stored as a flat node list rooted at Nodes[0].
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// Evaluate drops x down the tree and returns the leaf value it lands in.
func (t *Tree) Evaluate(x []float64) float64 {
	if len(t.Nodes) == 0 {
		panic("tree not initialized")
	}
	cur := t.Nodes[0]
	for !cur.Leaf {
		if x[cur.Feature] <= cur.Threshold {
			cur = t.Nodes[cur.Left]
		} else {
			cur = t.Nodes[cur.Right]
		}
	}
	return cur.Value
}

// Depth returns the number of split nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// Leaves counts terminal nodes.
func (t *Tree) Leaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Leaf {
			n++
		}
	}
	return n
}

// Ensemble is a fitted predictor: Bias + sum over trees of Weight * tree(x).
// Weight is always 1/len(Trees); Bias is always 0.0 for ensembles built by
// NewEnsemble.
type Ensemble struct {
	Trees    []*Tree  `yaml:"trees"`
	Weight   float64  `yaml:"weight"`
	Bias     float64  `yaml:"bias"`
	Features []string `yaml:"features,omitempty"`
}

// NewEnsemble wraps trees with the uniform weight 1/N and a zero bias.
func NewEnsemble(trees []*Tree, features []string) *Ensemble {
	return &Ensemble{
		Trees:    trees,
		Weight:   1.0 / float64(len(trees)),
		Bias:     0.0,
		Features: features,
	}
}

// Predict evaluates the ensemble on one feature vector.
func (e *Ensemble) Predict(x []float64) float64 {
	result := e.Bias
	for _, t := range e.Trees {
		result += e.Weight * t.Evaluate(x)
	}
	return result
}

// === Capability interfaces ===

// Strategy selects how each tree of an ensemble is randomized.
type Strategy string

const (
	// StrategyBagged fits each tree on a bootstrap resample with optimal thresholds.
	StrategyBagged Strategy = "bagged"
	// StrategyExtra fits each tree on the full set with random candidate thresholds.
	StrategyExtra Strategy = "extra"
)

// Criterion selects the impurity measure used to score a split.
type Criterion string

const (
	CriterionMSE Criterion = "mse"
	CriterionMAE Criterion = "mae"
)

// ValidStrategies is the set of recognized strategy names.
var ValidStrategies = map[Strategy]bool{StrategyBagged: true, StrategyExtra: true}

// ValidCriteria is the set of recognized split criteria.
var ValidCriteria = map[Criterion]bool{CriterionMSE: true, CriterionMAE: true}

// FitConfig groups the knobs of one ensemble fit.
type FitConfig struct {
	Strategy  Strategy
	Criterion Criterion
	// TreeCount must be at least 1.
	TreeCount int
	// Concurrency bounds the number of trees fitted at once; <= 0 means GOMAXPROCS.
	Concurrency int
	// Seed derives one independent RNG stream per tree.
	Seed int64
}

// EnsembleTrainer fits a tree ensemble on a feature matrix and target vector.
type EnsembleTrainer interface {
	Fit(ctx context.Context, features [][]float64, targets []float64, cfg FitConfig) (*Ensemble, error)
}

// NewTrainerFunc builds the trainer for a strategy. Set by perf/ensemble's init();
// callers must import that package (directly or blank) before using it.
var NewTrainerFunc func(strategy Strategy) (EnsembleTrainer, error)

// NewTrainer returns the registered trainer for strategy.
func NewTrainer(strategy Strategy) (EnsembleTrainer, error) {
	if NewTrainerFunc == nil {
		return nil, fmt.Errorf("no ensemble trainer registered; import perf/ensemble")
	}
	return NewTrainerFunc(strategy)
}

// TreeCodeGenerator translates trees into native source text. It returns one
// reader per generated file: one per tree plus one holding the combining logic,
// in any order.
type TreeCodeGenerator interface {
	Generate(trees []*Tree, weight, bias float64) ([]io.Reader, error)
}

// FormatFloat renders v in the shortest form that parses back to the same float64.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
