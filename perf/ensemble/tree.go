package ensemble

import (
	"math/rand"
	"slices"

	"github.com/sstperf/forestc/perf"
)

// treeBuilder grows one regression tree depth-first. It owns its RNG and node
// slice; the feature matrix and targets are shared read-only between builders.
type treeBuilder struct {
	x         [][]float64
	y         []float64
	criterion perf.Criterion
	// extra draws one random threshold per feature instead of scanning all cut points
	extra bool
	rng   *rand.Rand
	nodes []perf.Node
}

// split is a candidate cut "x[feature] <= threshold" and its weighted child impurity.
type split struct {
	feature   int
	threshold float64
	impurity  float64
}

func (b *treeBuilder) build(rows []int) *perf.Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows)
	return &perf.Tree{Nodes: slices.Clip(b.nodes)}
}

// grow appends the subtree for rows and returns its root index.
func (b *treeBuilder) grow(rows []int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, perf.Node{})

	if len(rows) < 2 || b.pure(rows) {
		b.nodes[id] = perf.Node{Leaf: true, Value: b.leafValue(rows)}
		return id
	}
	best, ok := b.bestSplit(rows)
	if !ok {
		b.nodes[id] = perf.Node{Leaf: true, Value: b.leafValue(rows)}
		return id
	}

	var left, right []int
	for _, r := range rows {
		if b.x[r][best.feature] <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	l := b.grow(left)
	rt := b.grow(right)
	b.nodes[id] = perf.Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: rt}
	return id
}

func (b *treeBuilder) pure(rows []int) bool {
	first := b.y[rows[0]]
	for _, r := range rows[1:] {
		if b.y[r] != first {
			return false
		}
	}
	return true
}

// bestSplit scans features in a random order, so ties resolve differently per tree.
func (b *treeBuilder) bestSplit(rows []int) (split, bool) {
	best := split{}
	found := false
	for _, f := range b.rng.Perm(len(b.x[0])) {
		var cand split
		var ok bool
		if b.extra {
			cand, ok = b.randomCut(rows, f)
		} else {
			cand, ok = b.optimalCut(rows, f)
		}
		if ok && (!found || cand.impurity < best.impurity) {
			best, found = cand, true
		}
	}
	return best, found
}

// randomCut draws a threshold uniformly in [min, max) of feature f over rows.
func (b *treeBuilder) randomCut(rows []int, f int) (split, bool) {
	lo, hi := b.x[rows[0]][f], b.x[rows[0]][f]
	for _, r := range rows[1:] {
		lo = min(lo, b.x[r][f])
		hi = max(hi, b.x[r][f])
	}
	if lo == hi {
		return split{}, false
	}
	threshold := lo + b.rng.Float64()*(hi-lo)
	if threshold >= hi {
		threshold = lo
	}
	var left, right []float64
	for _, r := range rows {
		if b.x[r][f] <= threshold {
			left = append(left, b.y[r])
		} else {
			right = append(right, b.y[r])
		}
	}
	return split{feature: f, threshold: threshold, impurity: b.impurity(left) + b.impurity(right)}, true
}

// optimalCut tries every midpoint between consecutive distinct values of feature f.
func (b *treeBuilder) optimalCut(rows []int, f int) (split, bool) {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(i, j int) int {
		switch {
		case b.x[i][f] < b.x[j][f]:
			return -1
		case b.x[i][f] > b.x[j][f]:
			return 1
		}
		return 0
	})
	ys := make([]float64, len(sorted))
	for i, r := range sorted {
		ys[i] = b.y[r]
	}

	best := split{}
	found := false
	score := b.scanner(ys)
	for i := 1; i < len(sorted); i++ {
		a, c := b.x[sorted[i-1]][f], b.x[sorted[i]][f]
		if a == c {
			continue
		}
		imp := score(i)
		if !found || imp < best.impurity {
			threshold := a + (c-a)/2
			// rounding can push the midpoint onto the upper value
			if threshold >= c {
				threshold = a
			}
			best, found = split{feature: f, threshold: threshold, impurity: imp}, true
		}
	}
	return best, found
}

// scanner returns a function giving the weighted child impurity of cutting
// ys (sorted by feature) into ys[:i] and ys[i:].
func (b *treeBuilder) scanner(ys []float64) func(i int) float64 {
	if b.criterion == perf.CriterionMAE {
		left, right := absDeviationScan(ys)
		return func(i int) float64 { return left[i] + right[i] }
	}
	// squared error from prefix sums
	n := len(ys)
	sum := make([]float64, n+1)
	sq := make([]float64, n+1)
	for i, v := range ys {
		sum[i+1] = sum[i] + v
		sq[i+1] = sq[i] + v*v
	}
	sse := func(lo, hi int) float64 {
		s := sum[hi] - sum[lo]
		return (sq[hi] - sq[lo]) - s*s/float64(hi-lo)
	}
	return func(i int) float64 { return sse(0, i) + sse(i, n) }
}

// absDeviationScan returns the total absolute deviation from the median of
// every prefix ys[:i] (left[i]) and suffix ys[i:] (right[i]). Each side keeps
// one sorted buffer grown by binary insertion, so a full scan is O(n^2)
// instead of a sort per cut.
func absDeviationScan(ys []float64) (left, right []float64) {
	n := len(ys)
	left = make([]float64, n+1)
	right = make([]float64, n+1)
	sorted := make([]float64, 0, n)
	for i, v := range ys {
		pos, _ := slices.BinarySearch(sorted, v)
		sorted = slices.Insert(sorted, pos, v)
		left[i+1] = sortedAbsDeviation(sorted)
	}
	sorted = sorted[:0]
	for i := n - 1; i >= 0; i-- {
		pos, _ := slices.BinarySearch(sorted, ys[i])
		sorted = slices.Insert(sorted, pos, ys[i])
		right[i] = sortedAbsDeviation(sorted)
	}
	return left, right
}

// sortedAbsDeviation is sum |v - median| over sorted s: the upper half's sum
// minus the lower half's, the middle element of an odd count cancelling out.
func sortedAbsDeviation(s []float64) float64 {
	total := 0.0
	for _, v := range s[(len(s)+1)/2:] {
		total += v
	}
	for _, v := range s[:len(s)/2] {
		total -= v
	}
	return total
}

// impurity is the total (not mean) squared or absolute deviation of ys.
func (b *treeBuilder) impurity(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	center := centerOf(b.criterion, ys)
	total := 0.0
	for _, v := range ys {
		d := v - center
		if b.criterion == perf.CriterionMAE {
			total += max(d, -d)
		} else {
			total += d * d
		}
	}
	return total
}

func (b *treeBuilder) leafValue(rows []int) float64 {
	ys := make([]float64, len(rows))
	for i, r := range rows {
		ys[i] = b.y[r]
	}
	return centerOf(b.criterion, ys)
}

// centerOf is the mean for squared error and the median for absolute error.
func centerOf(c perf.Criterion, ys []float64) float64 {
	if c == perf.CriterionMAE {
		s := slices.Clone(ys)
		slices.Sort(s)
		mid := len(s) / 2
		if len(s)%2 == 1 {
			return s[mid]
		}
		return (s[mid-1] + s[mid]) / 2
	}
	total := 0.0
	for _, v := range ys {
		total += v
	}
	return total / float64(len(ys))
}
