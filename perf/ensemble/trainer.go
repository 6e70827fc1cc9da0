// Package ensemble fits regression-tree ensembles. Two strategies share one
// output shape: bagged trees (bootstrap resample, optimal thresholds) and
// extra-randomized trees (full sample, random thresholds).
package ensemble

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/sstperf/forestc/perf"
)

// Trainer implements perf.EnsembleTrainer for one strategy.
type Trainer struct {
	strategy perf.Strategy
}

// NewTrainer returns the trainer for strategy.
// Returns an error for unrecognized strategy names.
func NewTrainer(strategy perf.Strategy) (perf.EnsembleTrainer, error) {
	if !perf.ValidStrategies[strategy] {
		return nil, fmt.Errorf("unknown ensemble strategy %q", strategy)
	}
	return &Trainer{strategy: strategy}, nil
}

// Fit grows cfg.TreeCount trees, at most cfg.Concurrency at a time. Each tree
// draws from its own RNG stream derived from cfg.Seed and the tree index and
// writes only its own slot, so the result does not depend on scheduling.
// cfg.Strategy is ignored in favour of the trainer's own strategy.
// Fit blocks until every tree is done or ctx is cancelled; it imposes no deadline.
func (t *Trainer) Fit(ctx context.Context, features [][]float64, targets []float64, cfg perf.FitConfig) (*perf.Ensemble, error) {
	if err := validate(features, targets, cfg); err != nil {
		return nil, err
	}
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	trees := make([]*perf.Tree, cfg.TreeCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(perf.DeriveSeed(cfg.Seed, perf.SubsystemTree(i))))
			b := &treeBuilder{
				x:         features,
				y:         targets,
				criterion: cfg.Criterion,
				extra:     t.strategy == perf.StrategyExtra,
				rng:       rng,
			}
			trees[i] = b.build(t.sampleRows(len(features), rng))
			logrus.Debugf("fitted tree %d: %d nodes, %d leaves, depth %d", i, len(trees[i].Nodes), trees[i].Leaves(), trees[i].Depth())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit %s ensemble: %w", t.strategy, err)
	}

	logrus.Infof("fitted %d %s trees on %d samples x %d features in %v",
		cfg.TreeCount, t.strategy, len(features), len(features[0]), time.Since(start))
	return perf.NewEnsemble(trees, nil), nil
}

// sampleRows draws a bootstrap resample for bagged trees and the identity
// otherwise.
func (t *Trainer) sampleRows(n int, rng *rand.Rand) []int {
	rows := make([]int, n)
	for i := range rows {
		if t.strategy == perf.StrategyBagged {
			rows[i] = rng.Intn(n)
		} else {
			rows[i] = i
		}
	}
	return rows
}

// validate rejects anything that would yield a degenerate model.
func validate(features [][]float64, targets []float64, cfg perf.FitConfig) error {
	if cfg.TreeCount < 1 {
		return fmt.Errorf("tree count %d < 1: %w", cfg.TreeCount, perf.ErrInvalidTrainingData)
	}
	if !perf.ValidCriteria[cfg.Criterion] {
		return fmt.Errorf("unknown split criterion %q: %w", cfg.Criterion, perf.ErrInvalidTrainingData)
	}
	if len(features) == 0 {
		return fmt.Errorf("no training samples: %w", perf.ErrInvalidTrainingData)
	}
	if len(targets) != len(features) {
		return fmt.Errorf("%d targets for %d samples: %w", len(targets), len(features), perf.ErrInvalidTrainingData)
	}
	width := len(features[0])
	if width == 0 {
		return fmt.Errorf("samples have no features: %w", perf.ErrInvalidTrainingData)
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("sample %d has %d features, want %d: %w", i, len(row), width, perf.ErrInvalidTrainingData)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("sample %d feature %d is %v: %w", i, j, v, perf.ErrInvalidTrainingData)
			}
		}
		if math.IsNaN(targets[i]) || math.IsInf(targets[i], 0) {
			return fmt.Errorf("target %d is %v: %w", i, targets[i], perf.ErrInvalidTrainingData)
		}
	}
	if centeredRank(features) == 0 {
		return fmt.Errorf("no feature varies across %d samples (rank 0): %w", len(features), perf.ErrInvalidTrainingData)
	}
	return nil
}

// centeredRank is the numerical rank of the column-centred feature matrix.
// Zero means every feature is constant, so no tree can split.
func centeredRank(features [][]float64) int {
	n, p := len(features), len(features[0])
	m := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += features[i][j]
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			m.Set(i, j, features[i][j]-mean)
		}
	}
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return 0
	}
	return svd.Rank(1e-12)
}
