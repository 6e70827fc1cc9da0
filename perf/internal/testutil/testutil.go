// Package testutil provides shared test infrastructure for forestc: toy
// ensembles, a scripted tree-code generator, golden source files and float
// assertions used across the perf/ test packages.
package testutil

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/sstperf/forestc/perf"
)

// Stump returns a depth-one tree "f[0] <= threshold ? left : right".
func Stump(threshold, left, right float64) *perf.Tree {
	return &perf.Tree{Nodes: []perf.Node{
		{Feature: 0, Threshold: threshold, Left: 1, Right: 2},
		{Leaf: true, Value: left},
		{Leaf: true, Value: right},
	}}
}

// ToyEnsemble returns n stumps with thresholds 1.5, 2.5, ... and leaves 3, 6,
// weighted 1/n with zero bias. The golden files under testdata/golden are the
// emission of ToyEnsemble(3) named "foo".
func ToyEnsemble(n int) *perf.Ensemble {
	trees := make([]*perf.Tree, n)
	for i := range trees {
		trees[i] = Stump(float64(i)+1.5, 3, 6)
	}
	return perf.NewEnsemble(trees, []string{"arg1"})
}

// ScriptedGenerator returns fixed blocks regardless of its input, for
// exercising the emitter's handling of malformed generator output.
type ScriptedGenerator struct {
	Blocks []string
	Err    error
}

func (g *ScriptedGenerator) Generate(_ []*perf.Tree, _, _ float64) ([]io.Reader, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	out := make([]io.Reader, len(g.Blocks))
	for i, b := range g.Blocks {
		out[i] = strings.NewReader(b)
	}
	return out, nil
}

// Golden reads testdata/golden/<name>.
// The path is resolved relative to this source file: perf/internal/testutil/ → testdata/.
func Golden(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden file: %v", err)
	}
	return string(data)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
