package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sstperf/forestc/perf"
	"github.com/sstperf/forestc/perf/emit"
	"github.com/sstperf/forestc/perf/pipeline"
)

var (
	compileConfigPath    string   // Optional YAML config; flags given explicitly override it
	compileInputs        []string // Sample CSV files
	compileMode          string   // median or decile
	compileMetric        string   // Metric column
	compileStrategy      string   // bagged or extra
	compileCriterion     string   // mse or mae
	compileTrees         int      // Number of trees
	compileJobs          int      // Parallel tree fits; 0 means all cores
	compileTrainFraction float64  // Share of aggregate rows used for training
	compileSeed          int64    // Run seed; unseeded runs draw from the clock
	compileName          string   // Function and file stem of the emitted sources
	compileOutputDir     string   // Directory receiving sources and CMakeLists.txt
	compileLibrary       string   // CMake module library name
	compileReport        bool     // Also write report.yaml
)

// compileCmd runs the full aggregate → train → emit pipeline.
var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Train a tree ensemble on aggregated samples and emit C++ sources",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := pipeline.DefaultConfig()
		if compileConfigPath != "" {
			loaded, err := pipeline.LoadConfig(compileConfigPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			cfg = loaded
		}
		applyCompileFlags(&cfg, cmd.Flags().Changed)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := pipeline.Run(ctx, cfg, nil)
		if err != nil {
			logrus.Fatalf("Compile failed: %v", err)
		}
		logrus.Infof("Emitted %d source files to %s (seed %d)", len(res.Units), cfg.OutputDir, res.Key)
		if res.ReportPath != "" {
			logrus.Infof("Held-out report written to %s", res.ReportPath)
		}
	},
}

// applyCompileFlags copies every flag the user set onto cfg, leaving
// config-file and default values in place for the rest.
func applyCompileFlags(cfg *pipeline.Config, changed func(name string) bool) {
	if changed("input") {
		cfg.Inputs = compileInputs
	}
	if changed("mode") {
		cfg.Aggregation = compileMode
	}
	if changed("metric") {
		cfg.Metric = compileMetric
	}
	if changed("strategy") {
		cfg.Strategy = compileStrategy
	}
	if changed("criterion") {
		cfg.Criterion = compileCriterion
	}
	if changed("trees") {
		cfg.Trees = compileTrees
	}
	if changed("jobs") {
		cfg.Jobs = compileJobs
	}
	if changed("train-fraction") {
		cfg.TrainFraction = compileTrainFraction
	}
	if changed("seed") {
		seed := compileSeed
		cfg.Seed = &seed
	}
	if changed("name") {
		cfg.Name = compileName
	}
	if changed("output-dir") {
		cfg.OutputDir = compileOutputDir
	}
	if changed("lib") {
		cfg.Library = compileLibrary
	}
	if changed("report") {
		cfg.Report = compileReport
	}
}

func init() {
	defaults := pipeline.DefaultConfig()

	compileCmd.Flags().StringVar(&compileConfigPath, "config", "", "YAML compile config; explicit flags override its values")
	compileCmd.Flags().StringSliceVar(&compileInputs, "input", nil, "Sample CSV file(s); repeat or comma-separate")
	compileCmd.Flags().StringVar(&compileMode, "mode", defaults.Aggregation, "Aggregation mode (median, decile)")
	compileCmd.Flags().StringVar(&compileMetric, "metric", defaults.Metric, "Metric column to model")

	// Training
	compileCmd.Flags().StringVar(&compileStrategy, "strategy", defaults.Strategy, "Ensemble strategy ("+string(perf.StrategyBagged)+", "+string(perf.StrategyExtra)+")")
	compileCmd.Flags().StringVar(&compileCriterion, "criterion", defaults.Criterion, "Split criterion (mse, mae)")
	compileCmd.Flags().IntVar(&compileTrees, "trees", defaults.Trees, "Number of trees")
	compileCmd.Flags().IntVar(&compileJobs, "jobs", defaults.Jobs, "Parallel tree fits (0 = all cores)")
	compileCmd.Flags().Float64Var(&compileTrainFraction, "train-fraction", defaults.TrainFraction, "Fraction of aggregate rows used for training")
	compileCmd.Flags().Int64Var(&compileSeed, "seed", 0, "Seed for splitting and training (default: drawn from the clock)")

	// Output
	compileCmd.Flags().StringVar(&compileName, "name", "", "Name of the emitted entry function and file stem")
	compileCmd.Flags().StringVar(&compileOutputDir, "output-dir", defaults.OutputDir, "Directory for emitted sources")
	compileCmd.Flags().StringVar(&compileLibrary, "lib", emit.DefaultModuleName, "Library name in CMakeLists.txt")
	compileCmd.Flags().BoolVar(&compileReport, "report", false, "Write held-out accuracy to report.yaml")

	rootCmd.AddCommand(compileCmd)
}
