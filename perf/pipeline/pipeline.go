// Package pipeline runs a full compile: aggregate → split → fit → emit →
// build descriptor, then scores the fit on the held-out set. Stages run
// strictly in sequence and every failure is returned as-is, wrapped with the
// stage name.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sstperf/forestc/perf"
	"github.com/sstperf/forestc/perf/codegen"
	"github.com/sstperf/forestc/perf/dataset"
	"github.com/sstperf/forestc/perf/emit"
	_ "github.com/sstperf/forestc/perf/ensemble" // registers perf.NewTrainerFunc
	"github.com/sstperf/forestc/perf/report"
	"github.com/sstperf/forestc/perf/samples"
)

// Result is everything a compile run produced.
type Result struct {
	Key       perf.RunKey
	Aggregate *perf.Aggregate
	TrainSize int
	Ensemble  *perf.Ensemble
	Units     []emit.SourceUnit
	Report    *report.Report
	// ReportPath and EnsemblePath are empty unless Config.Report was set.
	ReportPath   string
	EnsemblePath string
}

// Aggregate loads the configured inputs and aggregates them per signature.
func Aggregate(cfg Config) (*perf.Aggregate, error) {
	table, err := samples.LoadCSV(cfg.Inputs...)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	sigCols := samples.InferArgumentColumns(table)
	logrus.Infof("loaded %d samples; signature columns %v; metric %q", table.Len(), sigCols, cfg.Metric)

	agg, err := samples.Aggregate(table, samples.Mode(cfg.Aggregation), sigCols, cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("aggregate samples: %w", err)
	}
	logrus.Infof("aggregated to %d %s rows", len(agg.Records), cfg.Aggregation)
	return agg, nil
}

// Run executes the whole compile described by cfg, writing through fs
// (the OS filesystem when nil). Concurrent runs into one output directory
// are unsafe. Run has no deadline of its own; cancel ctx to stop the fit.
func Run(ctx context.Context, cfg Config, fs afero.Fs) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	rng := perf.NewPartitionedRNG(perf.NewRunKey(cfg.Seed))
	if cfg.Seed == nil {
		logrus.Infof("no seed configured; using %d (pass it as --seed to reproduce this run)", rng.Key())
	}
	res := &Result{Key: rng.Key()}

	agg, err := Aggregate(cfg)
	if err != nil {
		return nil, err
	}
	res.Aggregate = agg

	train, heldOut, err := dataset.Split(agg, cfg.TrainFraction, rng.ForSubsystem(perf.SubsystemSplit))
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	res.TrainSize = len(train)
	logrus.Infof("split %d rows into %d train / %d held out", len(agg.Records), len(train), len(heldOut))

	trainer, err := perf.NewTrainer(perf.Strategy(cfg.Strategy))
	if err != nil {
		return nil, fmt.Errorf("select trainer: %w", err)
	}
	x, y := perf.Unzip(train)
	ens, err := trainer.Fit(ctx, x, y, perf.FitConfig{
		Strategy:    perf.Strategy(cfg.Strategy),
		Criterion:   perf.Criterion(cfg.Criterion),
		TreeCount:   cfg.Trees,
		Concurrency: cfg.Jobs,
		Seed:        perf.DeriveSeed(int64(rng.Key()), perf.SubsystemFit),
	})
	if err != nil {
		return nil, fmt.Errorf("train ensemble: %w", err)
	}
	ens.Features = agg.Columns
	res.Ensemble = ens

	units, err := emit.NewEmitter(&codegen.CPP{}, fs).Emit(ens, cfg.Name, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("emit sources: %w", err)
	}
	res.Units = units

	if err := emit.WriteBuildDescriptor(fs, cfg.OutputDir, cfg.Library); err != nil {
		return nil, fmt.Errorf("write build descriptor: %w", err)
	}

	rep, err := report.Evaluate(ens, heldOut)
	if err != nil {
		return nil, fmt.Errorf("evaluate held-out set: %w", err)
	}
	res.Report = rep
	logrus.Infof("held-out: n=%d MAPE=%.4f r=%.4f (%s, %s)", rep.Count, rep.MAPE, rep.PearsonR, rep.Quality, rep.BiasDirection)

	if cfg.Report {
		path, err := rep.Write(fs, cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		res.ReportPath = path
		if res.EnsemblePath, err = report.WriteEnsemble(fs, cfg.OutputDir, ens); err != nil {
			return nil, err
		}
	}
	return res, nil
}
