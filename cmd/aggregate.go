package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/sstperf/forestc/perf"
	"github.com/sstperf/forestc/perf/pipeline"
	"github.com/sstperf/forestc/perf/samples"
)

var (
	aggregateInputs []string // Sample CSV files, concatenated in order
	aggregateMode   string   // median or decile
	aggregateMetric string   // Column holding the measured value
	aggregateOutput string   // Destination CSV; stdout when empty
)

// aggregateCmd prints the per-signature aggregate without training.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate samples per argument signature and write them as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := pipeline.DefaultConfig()
		cfg.Inputs = aggregateInputs
		cfg.Aggregation = aggregateMode
		cfg.Metric = aggregateMetric
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("%v", err)
		}

		agg, err := pipeline.Aggregate(cfg)
		if err != nil {
			logrus.Fatalf("Aggregation failed: %v", err)
		}

		if aggregateOutput == "" {
			if err := samples.WriteCSV(os.Stdout, agg.ToTable()); err != nil {
				logrus.Fatalf("Failed to write aggregate: %v", err)
			}
			return
		}
		if err := writeAggregateFile(aggregateOutput, agg.ToTable()); err != nil {
			logrus.Fatalf("Failed to write aggregate: %v", err)
		}
		logrus.Infof("Aggregate written to %s", aggregateOutput)
	},
}

func writeAggregateFile(path string, t *perf.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return samples.WriteCSV(f, t)
}

func init() {
	defaults := pipeline.DefaultConfig()

	aggregateCmd.Flags().StringSliceVar(&aggregateInputs, "input", nil, "Sample CSV file(s); repeat or comma-separate")
	aggregateCmd.Flags().StringVar(&aggregateMode, "mode", defaults.Aggregation, "Aggregation mode (median, decile)")
	aggregateCmd.Flags().StringVar(&aggregateMetric, "metric", defaults.Metric, "Metric column to aggregate")
	aggregateCmd.Flags().StringVar(&aggregateOutput, "output", "", "Output CSV path (default stdout)")
	_ = aggregateCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(aggregateCmd)
}
