package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstperf/forestc/perf"
	"github.com/sstperf/forestc/perf/emit"
	"github.com/sstperf/forestc/perf/report"
)

// writeSamples writes three repeats of time = 10*arg1 + arg2 (+0..2 jitter)
// for arg1 in 1..20 and arg2 in {1,2}.
func writeSamples(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("arg1,arg2,time\n")
	for rep := 0; rep < 3; rep++ {
		for a1 := 1; a1 <= 20; a1++ {
			for a2 := 1; a2 <= 2; a2++ {
				fmt.Fprintf(&b, "%d,%d,%d\n", a1, a2, 10*a1+a2+rep)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Inputs = []string{writeSamples(t)}
	cfg.Trees = 4
	cfg.Jobs = 2
	cfg.Name = "foo"
	cfg.OutputDir = "out"
	seed := int64(42)
	cfg.Seed = &seed
	return cfg
}

func TestRun_EmitsSourcesDescriptorAndReport(t *testing.T) {
	// GIVEN 40 signatures with 3 samples each
	fs := afero.NewMemMapFs()
	cfg := testConfig(t)
	cfg.Report = true

	// WHEN compiled
	res, err := Run(context.Background(), cfg, fs)
	require.NoError(t, err)

	// THEN the aggregate has one median row per signature
	assert.Len(t, res.Aggregate.Records, 40)
	assert.Equal(t, 32, res.TrainSize)
	assert.Equal(t, []string{"arg1", "arg2"}, res.Ensemble.Features)

	// AND foo.cpp, foo_0..3.cpp and CMakeLists.txt are on disk
	require.Len(t, res.Units, 5)
	for _, name := range []string{"foo.cpp", "foo_0.cpp", "foo_1.cpp", "foo_2.cpp", "foo_3.cpp", emit.BuildDescriptorFile, report.FileName, report.EnsembleFileName} {
		exists, err := afero.Exists(fs, filepath.Join("out", name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
	assert.Equal(t, filepath.Join("out", report.FileName), res.ReportPath)
	assert.Equal(t, filepath.Join("out", report.EnsembleFileName), res.EnsemblePath)

	// AND the held-out rows were scored
	assert.Equal(t, 8, res.Report.Count)
}

func TestRun_WithoutReport_WritesNoYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	res, err := Run(context.Background(), testConfig(t), fs)
	require.NoError(t, err)
	assert.Empty(t, res.ReportPath)
	assert.Empty(t, res.EnsemblePath)
	for _, name := range []string{report.FileName, report.EnsembleFileName} {
		exists, err := afero.Exists(fs, filepath.Join("out", name))
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
}

func TestRun_SameSeed_IdenticalSources(t *testing.T) {
	cfg := testConfig(t)
	fsA, fsB := afero.NewMemMapFs(), afero.NewMemMapFs()

	a, err := Run(context.Background(), cfg, fsA)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg, fsB)
	require.NoError(t, err)

	require.Equal(t, len(a.Units), len(b.Units))
	for i := range a.Units {
		assert.Equal(t, a.Units[i].Content(), b.Units[i].Content(), a.Units[i].Path)
	}
	assert.Equal(t, a.Key, b.Key)
}

func TestRun_DecileAggregationAddsPercentileFeature(t *testing.T) {
	cfg := testConfig(t)
	cfg.Aggregation = "decile"
	cfg.Strategy = "extra"

	res, err := Run(context.Background(), cfg, afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Len(t, res.Aggregate.Records, 400)
	assert.Equal(t, []string{"arg1", "arg2", perf.PercentileColumn}, res.Ensemble.Features)
}

func TestRun_PropagatesStageErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metric = "latency"
	_, err := Run(context.Background(), cfg, afero.NewMemMapFs())
	assert.True(t, errors.Is(err, perf.ErrMissingColumn), "got %v", err)

	cfg = testConfig(t)
	cfg.Trees = 0
	_, err = Run(context.Background(), cfg, afero.NewMemMapFs())
	assert.Error(t, err)
}

func TestAggregate_LoadsAndAggregates(t *testing.T) {
	cfg := testConfig(t)
	agg, err := Aggregate(cfg)
	require.NoError(t, err)
	assert.Len(t, agg.Records, 40)
	// 3 repeats with jitter 0,1,2: the median adds 1
	for _, r := range agg.Records {
		if r.Key[0] == "5" && r.Key[1] == "2" {
			assert.Equal(t, 53.0, r.Value)
		}
	}
}
