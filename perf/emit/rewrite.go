package emit

import (
	"strings"

	"github.com/sstperf/forestc/perf/codegen"
)

// PureHint declares that a function has no effects beyond its return value,
// letting the host compiler merge repeated calls.
const PureHint = "__attribute__((pure))"

// RewriteLines applies the emitter's line rules to generated text, top to bottom:
//
//  1. a line naming the entry point that carries the always-inline hint loses
//     the hint, so numerous trees do not blow up code size and compile time;
//  2. otherwise a line naming the entry point that is not an accumulation line
//     is a declaration and gains PureHint after its indentation;
//  3. when rename is non-empty every occurrence of the entry point name is
//     replaced with it, after the hint rules.
//
// The input slice is not modified.
func RewriteLines(lines []string, rename string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = rewriteLine(line, rename)
	}
	return out
}

func rewriteLine(line, rename string) string {
	if strings.Contains(line, codegen.EntryPoint) {
		if strings.Contains(line, codegen.AlwaysInline) {
			line = strings.ReplaceAll(line, codegen.AlwaysInline+" ", "")
			line = strings.ReplaceAll(line, codegen.AlwaysInline, "")
		} else if !isAccumulation(line) {
			body := strings.TrimLeft(line, " \t")
			line = line[:len(line)-len(body)] + PureHint + " " + body
		}
	}
	if rename != "" {
		line = strings.ReplaceAll(line, codegen.EntryPoint, rename)
	}
	return line
}

func isAccumulation(line string) bool {
	return strings.Contains(line, codegen.AccumulateOp)
}

// isCombining reports whether a block sums per-tree results into the total.
func isCombining(lines []string) bool {
	for _, line := range lines {
		if isAccumulation(line) {
			return true
		}
	}
	return false
}
