// Package codegen translates fitted trees into C++ source text.
//
// The generator is the collaborator the emitter treats as opaque: it returns
// one file per tree plus one combining file, all using the canonical entry
// point name EntryPoint. The emitter renames and annotates the text afterwards.
package codegen

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sstperf/forestc/perf"
)

const (
	// EntryPoint is the canonical name of the ensemble's exported function.
	// Tree i is emitted as EntryPoint_i.
	EntryPoint = "evaluate"

	// AlwaysInline is the hint every generated tree function carries.
	AlwaysInline = "__attribute__((__always_inline__))"

	// AccumulateOp marks the combining file's per-tree accumulation lines.
	AccumulateOp = "+="
)

// CPP generates C++ with extern "C" linkage and double-precision features.
type CPP struct {
	// Indent is the per-level indentation; two spaces when empty.
	Indent string
}

var _ perf.TreeCodeGenerator = (*CPP)(nil)

// TreeFunc returns the canonical function name of tree i.
func TreeFunc(i int) string {
	return fmt.Sprintf("%s_%d", EntryPoint, i)
}

// Generate returns len(trees) tree files followed by the combining file.
// Every leaf value is pre-multiplied by weight; the combining function starts
// from bias and adds each tree's result.
func (g *CPP) Generate(trees []*perf.Tree, weight, bias float64) ([]io.Reader, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("generate C++: no trees")
	}
	out := make([]io.Reader, 0, len(trees)+1)
	for i, t := range trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("generate C++: tree %d has no nodes", i)
		}
		out = append(out, bytes.NewReader(g.tree(i, t, weight)))
	}
	out = append(out, bytes.NewReader(g.combine(len(trees), bias)))
	return out, nil
}

func (g *CPP) indent(depth int) string {
	unit := g.Indent
	if unit == "" {
		unit = "  "
	}
	return strings.Repeat(unit, depth)
}

func (g *CPP) tree(i int, t *perf.Tree, weight float64) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "// tree %d: %d nodes, depth %d\n", i, len(t.Nodes), t.Depth())
	b.WriteString("extern \"C\" {\n")
	fmt.Fprintf(&b, "%s double %s(const double* f) {\n", AlwaysInline, TreeFunc(i))
	g.node(&b, t, 0, weight, 1)
	b.WriteString("}\n")
	b.WriteString("} // extern \"C\"\n")
	return b.Bytes()
}

func (g *CPP) node(b *bytes.Buffer, t *perf.Tree, id int, weight float64, depth int) {
	n := t.Nodes[id]
	pad := g.indent(depth)
	if n.Leaf {
		fmt.Fprintf(b, "%sreturn %s;\n", pad, literal(weight*n.Value))
		return
	}
	fmt.Fprintf(b, "%sif (f[%d] <= %s) {\n", pad, n.Feature, literal(n.Threshold))
	g.node(b, t, n.Left, weight, depth+1)
	fmt.Fprintf(b, "%s} else {\n", pad)
	g.node(b, t, n.Right, weight, depth+1)
	fmt.Fprintf(b, "%s}\n", pad)
}

func (g *CPP) combine(n int, bias float64) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "// ensemble of %d trees\n", n)
	b.WriteString("extern \"C\" {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "double %s(const double* f);\n", TreeFunc(i))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "double %s(const double* f) {\n", EntryPoint)
	fmt.Fprintf(&b, "%sdouble result = %s;\n", g.indent(1), literal(bias))
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%sresult %s %s(f);\n", g.indent(1), AccumulateOp, TreeFunc(i))
	}
	fmt.Fprintf(&b, "%sreturn result;\n", g.indent(1))
	b.WriteString("}\n")
	b.WriteString("} // extern \"C\"\n")
	return b.Bytes()
}

// literal prints v as a C++ double literal that parses back to v exactly.
func literal(v float64) string {
	s := perf.FormatFloat(v)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}
