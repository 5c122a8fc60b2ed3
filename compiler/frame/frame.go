package frame

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

type (
	Input struct {
		Name  string
		Entry bool
		Leaf  bool

		LocalWords      int
		MaxCalleeParams int
	}

	// Layout is a planned stack frame. Sizes are in words.
	Layout struct {
		Name string `json:"name"`
		Leaf bool   `json:"leaf"`

		TotalWords       int `json:"total_words"`
		OutgoingArgSlots int `json:"outgoing_arg_slots"`
		LocalDataWords   int `json:"local_data_words"`
		CalleeSavedCount int `json:"callee_saved_count"`
		ReturnAddrSlots  int `json:"return_addr_slots"`
	}

	Options struct {
		Entry      string
		AssumeLeaf bool

		PlaceholderLocalWords int
		CountLocals           bool
	}

	Table struct {
		list []Layout
	}
)

const (
	WordSize = 4

	MinOutgoing = 4
	MaxSaved    = 8

	// Functions with more local words than that save callee-saved registers.
	SaveThreshold = 10
)

var ErrNoFrame = errors.New("no frame")

// Compute applies the layout formula.
func Compute(in Input) Layout {
	l := Layout{
		Name:           in.Name,
		Leaf:           in.Leaf,
		LocalDataWords: in.LocalWords,
	}

	if !in.Leaf {
		l.OutgoingArgSlots = max(MinOutgoing, in.MaxCalleeParams)
		l.ReturnAddrSlots = 1
	}

	if !in.Entry && l.LocalDataWords > SaveThreshold {
		l.CalleeSavedCount = min(MaxSaved, l.LocalDataWords-8)
	}

	l.TotalWords = l.ReturnAddrSlots + l.LocalDataWords + 2*l.CalleeSavedCount + l.OutgoingArgSlots
	l.TotalWords += l.TotalWords & 1

	return l
}

func (l Layout) Bytes() int { return WordSize * l.TotalWords }

func (l Layout) OutgoingOffset(i int) int { return WordSize * i }

// LocalOffset is the offset of the local data word j.
func (l Layout) LocalOffset(j int) int { return WordSize * (l.OutgoingArgSlots + j) }

func (l Layout) SaveOffset(k int) int {
	return WordSize * (l.OutgoingArgSlots + l.LocalDataWords + k)
}

func (l Layout) ReturnAddrOffset() int { return WordSize * (l.TotalWords - 1) }

// ParamOffset is the caller's outgoing slot of the parameter i.
func (l Layout) ParamOffset(i int) int { return WordSize * (l.TotalWords + i) }

func (l Layout) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 6)

	b = e.AppendString(b, "name")
	b = e.AppendString(b, l.Name)

	b = e.AppendKeyInt(b, "ra", l.ReturnAddrSlots)
	b = e.AppendKeyInt(b, "total", l.TotalWords)
	b = e.AppendKeyInt(b, "out", l.OutgoingArgSlots)
	b = e.AppendKeyInt(b, "local", l.LocalDataWords)
	b = e.AppendKeyInt(b, "saved", l.CalleeSavedCount)

	return b
}

// Plan computes layouts of all the functions of the symbol table.
func Plan(ctx context.Context, table sym.Table, code []tac.Quad, opts Options) (_ *Table, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "frame: plan", "entry", opts.Entry)
	defer tr.Finish("err", &err)

	calls := scanCalls(table, code)

	t := &Table{}

	for _, f := range sym.Funcs(table) {
		in := Input{
			Name:       f.Name,
			Entry:      f.Name == opts.Entry,
			Leaf:       true,
			LocalWords: opts.PlaceholderLocalWords,
		}

		if opts.CountLocals {
			for _, l := range f.Locals {
				in.LocalWords += l.Words()
			}
		}

		if c, ok := calls[f.Name]; ok && !opts.AssumeLeaf {
			in.Leaf = false
			in.MaxCalleeParams = c
		}

		l := Compute(in)

		if tr.If("dump_frames") {
			tr.Printw("frame", "func", f.Name, "layout", l)
		}

		t.list = append(t.list, l)
	}

	return t, nil
}

// scanCalls returns the max callee param count for each function calling anything.
func scanCalls(table sym.Table, code []tac.Quad) map[string]int {
	calls := map[string]int{}
	cur := ""

	for _, q := range code {
		switch q.Op {
		case "label":
			l := tac.LabelOf(q.Arg1)

			switch l.Kind {
			case tac.FuncEntry:
				cur = l.Func
			case tac.FuncExit:
				cur = ""
			}
		case "call":
			if cur == "" {
				continue
			}

			n := 0

			if f, ok := table.Lookup(q.Arg1); ok {
				n = len(f.Params)
			}

			calls[cur] = max(calls[cur], n)
		}
	}

	return calls
}

// Find returns the layout of the named function.
func (t *Table) Find(name string) (Layout, error) {
	for _, l := range t.list {
		if l.Name == name {
			return l, nil
		}
	}

	return Layout{}, errors.Wrap(ErrNoFrame, "%v", name)
}

func (t *Table) Layouts() []Layout { return t.list }
