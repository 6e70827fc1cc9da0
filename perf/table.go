package perf

import (
	"fmt"
	"strings"
)

const (
	// ArgumentPrefix marks a column as part of the call signature.
	ArgumentPrefix = "arg"

	// DefaultMetricColumn is the measured value column when none is configured.
	DefaultMetricColumn = "time"

	// PercentileColumn tags decile rows with their percentile index (0..9).
	// It carries ArgumentPrefix, so a decile aggregate trains on it as a feature.
	PercentileColumn = "argp"
)

// Table is a concatenation of sample rows under one ordered header.
// Cells are kept as text; numeric interpretation happens where it is needed.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnIndices resolves every name to its header position.
// Returns ErrMissingColumn naming the first absent column.
func (t *Table) ColumnIndices(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.ColumnIndex(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q (have %s): %w", name, strings.Join(t.Columns, ","), ErrMissingColumn)
		}
	}
	return idx, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// AggregateRecord is one derived row: a signature key and its summary value.
type AggregateRecord struct {
	Key   []string
	Value float64
}

// Aggregate is the output of the sample aggregator. Columns names the key
// cells of every record, in order; Metric names the value.
// Record order carries no meaning.
type Aggregate struct {
	Columns []string
	Metric  string
	Records []AggregateRecord
}

// ToTable renders the aggregate as a table with Columns followed by Metric.
func (a *Aggregate) ToTable() *Table {
	t := &Table{
		Columns: append(append([]string{}, a.Columns...), a.Metric),
		Rows:    make([][]string, 0, len(a.Records)),
	}
	for _, r := range a.Records {
		row := append(append(make([]string, 0, len(r.Key)+1), r.Key...), FormatFloat(r.Value))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// TrainingPair is one feature vector and its target, as consumed by a trainer.
type TrainingPair struct {
	Features []float64
	Target   float64
}

// Unzip splits pairs into the feature matrix and target vector a trainer takes.
func Unzip(pairs []TrainingPair) ([][]float64, []float64) {
	x := make([][]float64, len(pairs))
	y := make([]float64, len(pairs))
	for i, p := range pairs {
		x[i] = p.Features
		y[i] = p.Target
	}
	return x, y
}
