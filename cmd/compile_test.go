package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstperf/forestc/perf/pipeline"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestApplyCompileFlags_OnlyChangedFlagsOverride(t *testing.T) {
	// GIVEN a config file that sets trees and strategy
	path := filepath.Join(t.TempDir(), "forestc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs: [a.csv]\ntrees: 30\nstrategy: extra\n"), 0o644))
	cfg, err := pipeline.LoadConfig(path)
	require.NoError(t, err)

	// WHEN only --trees and --seed are given on the command line
	compileTrees, compileSeed = 5, 9
	compileStrategy = "bagged" // flag default, not set by the user
	applyCompileFlags(&cfg, changedSet("trees", "seed"))

	// THEN the explicit flags win and the file keeps the rest
	assert.Equal(t, 5, cfg.Trees)
	assert.Equal(t, "extra", cfg.Strategy)
	assert.Equal(t, []string{"a.csv"}, cfg.Inputs)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(9), *cfg.Seed)
}

func TestApplyCompileFlags_NoSeedFlag_LeavesRunUnseeded(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	compileSeed = 0
	applyCompileFlags(&cfg, changedSet())
	assert.Nil(t, cfg.Seed)
}

func TestApplyCompileFlags_ZeroSeedIsExplicit(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	compileSeed = 0
	applyCompileFlags(&cfg, changedSet("seed"))
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(0), *cfg.Seed)
}

func TestCompileCmd_FlagDefaultsMatchDefaultConfig(t *testing.T) {
	defaults := pipeline.DefaultConfig()
	flags := compileCmd.Flags()
	for name, want := range map[string]string{
		"mode":           defaults.Aggregation,
		"metric":         defaults.Metric,
		"strategy":       defaults.Strategy,
		"criterion":      defaults.Criterion,
		"trees":          "10",
		"train-fraction": "0.8",
		"lib":            defaults.Library,
	} {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, want, f.DefValue, name)
	}
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["aggregate"])
	assert.True(t, names["compile"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log"))
}

func TestWriteAggregateFile(t *testing.T) {
	// GIVEN a samples file with two signatures
	dir := t.TempDir()
	in := filepath.Join(dir, "samples.csv")
	require.NoError(t, os.WriteFile(in, []byte("arg1,time\n1,10\n1,20\n2,5\n"), 0o644))
	cfg := pipeline.DefaultConfig()
	cfg.Inputs = []string{in}
	agg, err := pipeline.Aggregate(cfg)
	require.NoError(t, err)

	// WHEN written as CSV
	out := filepath.Join(dir, "agg.csv")
	require.NoError(t, writeAggregateFile(out, agg.ToTable()))

	// THEN the medians are in the file
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "arg1,time\n1,15\n2,5\n", string(data))
}

func TestAggregateCmd_FlagDefaultsMatchCompile(t *testing.T) {
	// GIVEN both subcommands registered
	// THEN shared flags carry the same defaults
	for _, name := range []string{"mode", "metric"} {
		agg := aggregateCmd.Flags().Lookup(name)
		cmp := compileCmd.Flags().Lookup(name)
		require.NotNil(t, agg, name)
		require.NotNil(t, cmp, name)
		assert.Equal(t, cmp.DefValue, agg.DefValue, name)
	}
	assert.Equal(t, pipeline.DefaultConfig().Metric, aggregateCmd.Flags().Lookup("metric").DefValue)
}
