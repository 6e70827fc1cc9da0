// Package dataset turns an aggregate into training pairs and partitions them
// into train and held-out sets.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/sstperf/forestc/perf"
)

// Pairs converts every aggregate record into a training pair. Each key cell
// must parse as a float64.
func Pairs(agg *perf.Aggregate) ([]perf.TrainingPair, error) {
	pairs := make([]perf.TrainingPair, len(agg.Records))
	for i, r := range agg.Records {
		if len(r.Key) != len(agg.Columns) {
			return nil, fmt.Errorf("record %d has %d key cells for %d columns: %w", i, len(r.Key), len(agg.Columns), perf.ErrSchemaMismatch)
		}
		x := make([]float64, len(r.Key))
		for j, cell := range r.Key {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("record %d: signature column %q value %q is not numeric: %w", i, agg.Columns[j], cell, perf.ErrType)
			}
			x[j] = v
		}
		pairs[i] = perf.TrainingPair{Features: x, Target: r.Value}
	}
	return pairs, nil
}

// Split shuffles the aggregate's rows with rng and cuts them into
// floor(trainFraction*n) training pairs and the rest held out.
// No stratification is done, so a rare signature may land entirely on one side.
// The split is only as reproducible as rng: the pipeline seeds it from the
// clock unless a seed is configured.
func Split(agg *perf.Aggregate, trainFraction float64, rng *rand.Rand) (train, heldOut []perf.TrainingPair, err error) {
	if !(trainFraction > 0 && trainFraction < 1) {
		return nil, nil, fmt.Errorf("split with fraction %v: %w", trainFraction, perf.ErrInvalidFraction)
	}
	pairs, err := Pairs(agg)
	if err != nil {
		return nil, nil, err
	}
	nTrain := int(math.Floor(trainFraction * float64(len(pairs))))
	if nTrain == 0 {
		return nil, nil, fmt.Errorf("fraction %v of %d rows leaves no training rows: %w", trainFraction, len(pairs), perf.ErrEmptyInput)
	}
	rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	return pairs[:nTrain], pairs[nTrain:], nil
}
