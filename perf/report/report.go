// Package report scores a fitted ensemble against its held-out pairs.
package report

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/afero"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/sstperf/forestc/perf"
)

const (
	// FileName is the report written next to the emitted sources.
	FileName = "report.yaml"
	// EnsembleFileName holds the fitted trees the sources were generated from.
	EnsembleFileName = "ensemble.yaml"
)

// Report compares held-out targets with ensemble predictions.
type Report struct {
	Count         int     `yaml:"count"`
	MAPE          float64 `yaml:"mape"`
	MAE           float64 `yaml:"mae"`
	MeanTarget    float64 `yaml:"mean_target"`
	MeanPredicted float64 `yaml:"mean_predicted"`
	PearsonR      float64 `yaml:"pearson_r"`
	BiasDirection string  `yaml:"bias_direction"` // "over-predict", "under-predict", "neutral"
	Quality       string  `yaml:"quality"`        // "excellent", "good", "fair", "poor"
}

// Evaluate predicts every held-out pair and summarizes the error.
// MAPE skips zero targets; Pearson r needs at least 3 pairs and is 0 otherwise.
func Evaluate(ens *perf.Ensemble, heldOut []perf.TrainingPair) (*Report, error) {
	if len(heldOut) == 0 {
		return nil, fmt.Errorf("evaluate: no held-out pairs: %w", perf.ErrEmptyInput)
	}
	real := make([]float64, len(heldOut))
	pred := make([]float64, len(heldOut))
	for i, p := range heldOut {
		real[i] = p.Target
		pred[i] = ens.Predict(p.Features)
	}

	r := &Report{
		Count:         len(heldOut),
		MeanTarget:    stat.Mean(real, nil),
		MeanPredicted: stat.Mean(pred, nil),
		BiasDirection: "neutral",
	}

	mapeSum, mapeCount, absSum, biasSum := 0.0, 0, 0.0, 0.0
	for i := range real {
		absSum += math.Abs(pred[i] - real[i])
		if real[i] == 0 {
			continue
		}
		mapeSum += math.Abs(real[i]-pred[i]) / math.Abs(real[i])
		mapeCount++
		biasSum += pred[i] - real[i]
	}
	r.MAE = absSum / float64(len(real))
	if mapeCount > 0 {
		r.MAPE = mapeSum / float64(mapeCount)
		if biasSum > 0 {
			r.BiasDirection = "over-predict"
		} else if biasSum < 0 {
			r.BiasDirection = "under-predict"
		}
	}

	if len(real) >= 3 {
		if c := stat.Correlation(real, pred, nil); !math.IsNaN(c) {
			r.PearsonR = c
		}
	}
	r.Quality = qualityRating(r.MAPE, r.PearsonR)
	return r, nil
}

// Write stores the report as YAML at <dir>/report.yaml.
func (r *Report) Write(fs afero.Fs, dir string) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// WriteEnsemble dumps ens as YAML at <dir>/ensemble.yaml, so a report can be
// traced back to the exact trees behind it.
func WriteEnsemble(fs afero.Fs, dir string, ens *perf.Ensemble) (string, error) {
	data, err := yaml.Marshal(ens)
	if err != nil {
		return "", fmt.Errorf("marshal ensemble: %w", err)
	}
	path := filepath.Join(dir, EnsembleFileName)
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write ensemble: %w", err)
	}
	return path, nil
}

func qualityRating(mape, pearsonR float64) string {
	if mape < 0.10 && pearsonR > 0.95 {
		return "excellent"
	}
	if mape < 0.20 && pearsonR > 0.85 {
		return "good"
	}
	if mape < 0.35 && pearsonR > 0.70 {
		return "fair"
	}
	return "poor"
}
