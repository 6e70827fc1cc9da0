// Package emit turns a fitted ensemble into native source files ready for
// independent compilation, plus the build descriptor that compiles them.
package emit

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/sstperf/forestc/perf"
	"github.com/sstperf/forestc/perf/codegen"
)

// SourceExt is the extension of every emitted source file.
const SourceExt = "cpp"

// Role says what a generated block implements.
type Role int

const (
	// RoleTree is one tree's decision logic, written to <name>_<index>.cpp.
	RoleTree Role = iota
	// RoleCombining sums the trees into the ensemble total, written to <name>.cpp.
	RoleCombining
)

func (r Role) String() string {
	if r == RoleCombining {
		return "combining"
	}
	return "tree"
}

// SourceUnit is one written file: its role, tree index (-1 for the combining
// unit), path and rewritten lines.
type SourceUnit struct {
	Role  Role
	Index int
	Path  string
	Lines []string
}

// Content is the exact text written to Path.
func (u SourceUnit) Content() string {
	return strings.Join(u.Lines, "\n") + "\n"
}

// Emitter drives a TreeCodeGenerator and lays its output out on disk.
type Emitter struct {
	gen perf.TreeCodeGenerator
	fs  afero.Fs
}

// NewEmitter returns an emitter writing through fs. A nil fs means the OS filesystem.
func NewEmitter(gen perf.TreeCodeGenerator, fs afero.Fs) *Emitter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Emitter{gen: gen, fs: fs}
}

// Emit generates one block per tree plus the combining block, rewrites each
// (see RewriteLines) with name as the entry point, and writes the combining
// unit to <outDir>/<name>.cpp and tree units to <outDir>/<name>_<i>.cpp with i
// counting up from 0 in generation order. An empty name keeps the canonical
// entry point name.
//
// The generator's output is validated before anything is written: no blocks,
// other than exactly one combining block, or a tree-block count different
// from the number of trees is ErrGenerationContract.
//
// Existing files are overwritten; concurrent emits into one directory must be
// serialized by the caller.
func (e *Emitter) Emit(ens *perf.Ensemble, name, outDir string) ([]SourceUnit, error) {
	blocks, err := e.gen.Generate(ens.Trees, ens.Weight, ens.Bias)
	if err != nil {
		return nil, fmt.Errorf("generate sources: %w", err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("generator returned no blocks: %w", perf.ErrGenerationContract)
	}

	stem := name
	if stem == "" {
		stem = codegen.EntryPoint
	}
	units := make([]SourceUnit, 0, len(blocks))
	combining, trees := 0, 0
	for i, block := range blocks {
		lines, err := readLines(block)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		unit := SourceUnit{Lines: RewriteLines(lines, name)}
		if isCombining(unit.Lines) {
			unit.Role, unit.Index = RoleCombining, -1
			unit.Path = filepath.Join(outDir, fmt.Sprintf("%s.%s", stem, SourceExt))
			combining++
		} else {
			unit.Role, unit.Index = RoleTree, trees
			unit.Path = filepath.Join(outDir, fmt.Sprintf("%s_%d.%s", stem, trees, SourceExt))
			trees++
		}
		units = append(units, unit)
	}
	if combining != 1 {
		return nil, fmt.Errorf("%d of %d blocks accumulate, want exactly 1: %w", combining, len(blocks), perf.ErrGenerationContract)
	}
	if trees != len(ens.Trees) {
		return nil, fmt.Errorf("%d tree blocks for %d trees: %w", trees, len(ens.Trees), perf.ErrGenerationContract)
	}

	if err := e.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var total uint64
	for _, u := range units {
		if err := writeLines(e.fs, u.Path, u.Lines); err != nil {
			return nil, err
		}
		total += uint64(len(u.Content()))
		logrus.Debugf("wrote %s unit %s", u.Role, u.Path)
	}
	logrus.Infof("emitted %d tree units + 1 combining unit (%s) to %s", trees, humanize.Bytes(total), outDir)
	return units, nil
}

// readLines decodes a generated block as UTF-8 and splits it into lines with
// trailing whitespace removed.
func readLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read generated block: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("generated block is not UTF-8: %w", perf.ErrGenerationContract)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines, nil
}

// writeLines creates path, writes each line newline-terminated and closes it,
// reporting a failed close as an error.
func writeLines(fs afero.Fs, path string, lines []string) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
