package samples

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/sstperf/forestc/perf"
)

// ReadCSV parses one header-first CSV stream into a Table.
// name is used only in error messages.
func ReadCSV(r io.Reader, name string) (*perf.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sample CSV %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sample CSV %s has no header: %w", name, perf.ErrEmptyInput)
	}
	return &perf.Table{Columns: records[0], Rows: records[1:]}, nil
}

// LoadCSV reads every path and concatenates the rows into one table.
// All files must carry the identical header (same names, same order);
// no schema union is attempted.
func LoadCSV(paths ...string) (*perf.Table, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no sample files given: %w", perf.ErrEmptyInput)
	}
	tables := make([]*perf.Table, 0, len(paths))
	for _, path := range paths {
		t, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("loaded %d samples from %s", t.Len(), path)
		tables = append(tables, t)
	}
	return Concat(tables...)
}

func loadFile(path string) (*perf.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample CSV: %w", err)
	}
	defer file.Close()
	return ReadCSV(file, path)
}

// Concat appends the rows of every table under the first table's header.
// A differing header is ErrSchemaMismatch; an all-empty result is ErrEmptyInput.
func Concat(tables ...*perf.Table) (*perf.Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no sample tables: %w", perf.ErrEmptyInput)
	}
	out := &perf.Table{Columns: tables[0].Columns}
	for i, t := range tables {
		if !slices.Equal(t.Columns, out.Columns) {
			return nil, fmt.Errorf("source %d columns %v differ from %v: %w", i, t.Columns, out.Columns, perf.ErrSchemaMismatch)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	if len(out.Rows) == 0 {
		return nil, fmt.Errorf("no sample rows: %w", perf.ErrEmptyInput)
	}
	return out, nil
}

// WriteCSV writes the table header-first.
func WriteCSV(w io.Writer, t *perf.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write CSV rows: %w", err)
	}
	return nil
}
