// Package samples loads raw timing samples and summarizes them per call
// signature. The signature is every column carrying perf.ArgumentPrefix.
package samples

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/sstperf/forestc/perf"
)

// DecilePoints is the number of percentile points per signature in decile form.
const DecilePoints = 10

// InferArgumentColumns returns every column whose name starts with
// perf.ArgumentPrefix, in header order. Matching is purely textual:
// a non-numeric argument column is still returned.
func InferArgumentColumns(t *perf.Table) []string {
	var cols []string
	for _, c := range t.Columns {
		if strings.HasPrefix(c, perf.ArgumentPrefix) {
			cols = append(cols, c)
		}
	}
	return cols
}

// MedianBySignature groups rows by value equality on sigCols and reduces each
// group's metric to its median (mean of the two middle values for even counts).
// A nil sigCols is inferred with InferArgumentColumns.
func MedianBySignature(t *perf.Table, sigCols []string, metric string) (*perf.Aggregate, error) {
	g, err := groupBySignature(t, sigCols, metric)
	if err != nil {
		return nil, err
	}
	agg := &perf.Aggregate{Columns: g.columns, Metric: metric, Records: make([]perf.AggregateRecord, 0, len(g.keys))}
	for i, key := range g.keys {
		median, err := stats.Median(g.values[i])
		if err != nil {
			return nil, fmt.Errorf("median of %v: %w", key, err)
		}
		agg.Records = append(agg.Records, perf.AggregateRecord{Key: key, Value: median})
	}
	return agg, nil
}

// DecileBySignature expands every signature into DecilePoints rows holding the
// 0th, 10th, ..., 90th percentile of its metric, each tagged with its index in
// perf.PercentileColumn. Percentiles interpolate linearly between order
// statistics at rank p/100*(n-1).
func DecileBySignature(t *perf.Table, sigCols []string, metric string) (*perf.Aggregate, error) {
	g, err := groupBySignature(t, sigCols, metric)
	if err != nil {
		return nil, err
	}
	agg := &perf.Aggregate{
		Columns: append(slices.Clone(g.columns), perf.PercentileColumn),
		Metric:  metric,
		Records: make([]perf.AggregateRecord, 0, len(g.keys)*DecilePoints),
	}
	for i, key := range g.keys {
		sorted := slices.Clone(g.values[i])
		slices.Sort(sorted)
		for p := 0; p < DecilePoints; p++ {
			rowKey := append(slices.Clone(key), strconv.Itoa(p))
			agg.Records = append(agg.Records, perf.AggregateRecord{
				Key:   rowKey,
				Value: percentileFromSorted(sorted, float64(p*100/DecilePoints)),
			})
		}
	}
	return agg, nil
}

// groups holds metric values per distinct signature, in first-seen order.
// keys keep the original cell text of each signature's first row.
type groups struct {
	columns []string
	keys    [][]string
	values  []stats.Float64Data
}

func groupBySignature(t *perf.Table, sigCols []string, metric string) (*groups, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("aggregate samples: %w", perf.ErrEmptyInput)
	}
	if sigCols == nil {
		sigCols = InferArgumentColumns(t)
	}
	if len(sigCols) == 0 {
		return nil, fmt.Errorf("no %q-prefixed signature columns in %v: %w", perf.ArgumentPrefix, t.Columns, perf.ErrMissingColumn)
	}
	sigIdx, err := t.ColumnIndices(sigCols)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	metricIdx := t.ColumnIndex(metric)
	if metricIdx < 0 {
		return nil, fmt.Errorf("metric column %q: %w", metric, perf.ErrMissingColumn)
	}

	g := &groups{columns: slices.Clone(sigCols)}
	index := make(map[string]int)
	for r, row := range t.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[metricIdx]), 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("row %d: metric %q value %q is not numeric: %w", r+1, metric, row[metricIdx], perf.ErrType)
		}
		key := make([]string, len(sigIdx))
		norm := make([]string, len(sigIdx))
		for i, c := range sigIdx {
			key[i] = row[c]
			norm[i] = signatureValue(row[c])
		}
		k := fmt.Sprintf("%q", norm)
		pos, ok := index[k]
		if !ok {
			pos = len(g.keys)
			index[k] = pos
			g.keys = append(g.keys, key)
			g.values = append(g.values, nil)
		}
		g.values[pos] = append(g.values[pos], v)
	}
	return g, nil
}

// signatureValue is the grouping form of one argument cell: numeric cells
// compare by value ("1", "1.0" and "1e0" are one signature), anything else by
// its trimmed text.
func signatureValue(cell string) string {
	text := strings.TrimSpace(cell)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	if v == 0 {
		v = 0 // -0 groups with 0
	}
	return perf.FormatFloat(v)
}

// percentileFromSorted interpolates the p-th percentile of sorted.
func percentileFromSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Mode selects the aggregate form.
type Mode string

const (
	ModeMedian Mode = "median"
	ModeDecile Mode = "decile"
)

// ValidModes is the set of recognized aggregation modes.
var ValidModes = map[Mode]bool{ModeMedian: true, ModeDecile: true}

// Aggregate dispatches to MedianBySignature or DecileBySignature.
func Aggregate(t *perf.Table, mode Mode, sigCols []string, metric string) (*perf.Aggregate, error) {
	switch mode {
	case ModeMedian:
		return MedianBySignature(t, sigCols, metric)
	case ModeDecile:
		return DecileBySignature(t, sigCols, metric)
	default:
		return nil, fmt.Errorf("unknown aggregation mode %q", mode)
	}
}
