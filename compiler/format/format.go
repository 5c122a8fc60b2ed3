package format

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/tacc/compiler/frame"
	"github.com/slowlang/tacc/compiler/tac"
)

// Code appends numbered quads one per line.
// Procedure entry labels are preceded by an empty line.
func Code(b []byte, code []tac.Quad) []byte {
	for i, q := range code {
		if i != 0 && q.Op == "label" && tac.LabelOf(q.Arg1).Kind == tac.FuncEntry {
			b = append(b, '\n')
		}

		d := 0
		if !isLabel(q) {
			d = 1
		}

		b = app(b, d, "%4d  %s\n", q.Index, q.String())
	}

	return b
}

// Frames appends the frame table.
func Frames(b []byte, ls []frame.Layout) []byte {
	b = hfmt.Appendf(b, "%-16s %5s %5s %5s %5s %5s %5s\n", "func", "leaf", "total", "out", "local", "saved", "ra")

	for _, l := range ls {
		leaf := "no"
		if l.Leaf {
			leaf = "yes"
		}

		b = hfmt.Appendf(b, "%-16s %5s %5d %5d %5d %5d %5d\n", l.Name, leaf,
			l.TotalWords, l.OutgoingArgSlots, l.LocalDataWords, l.CalleeSavedCount, l.ReturnAddrSlots)
	}

	return b
}

func isLabel(q tac.Quad) bool { return q.Op == "label" }

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
