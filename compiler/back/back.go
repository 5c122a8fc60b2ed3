package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/tacc/compiler/asm"
	"github.com/slowlang/tacc/compiler/desc"
	"github.com/slowlang/tacc/compiler/frame"
	"github.com/slowlang/tacc/compiler/set"
	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

type (
	Options struct {
		// Entry is the program entry function.
		// It uses callee-saved registers without saving them.
		Entry string `toml:"entry"`

		// FlushEachInstr writes back and evicts homed variables after every instruction.
		// Otherwise it happens at control flow boundaries only.
		FlushEachInstr bool `toml:"flush_each_instr"`

		// AssumeLeaf disables call analysis, every function is planned as a leaf.
		AssumeLeaf bool `toml:"assume_leaf"`

		PlaceholderLocalWords int  `toml:"placeholder_local_words"`
		CountLocals           bool `toml:"count_locals"`

		DelaySlots bool `toml:"delay_slots"`

		// Strict makes unresolved references fatal.
		// Otherwise they are collected in Listing.Warnings.
		Strict bool `toml:"strict"`
	}

	Listing struct {
		asm.Buffer

		Frames   []frame.Layout
		Warnings error
	}

	Compiler struct {
		Options
	}

	state int

	array struct {
		kind arrayKind
		off  int
	}

	// spareSlot is a local data word keeping a temporary across calls.
	spareSlot struct {
		word int
		temp string
	}

	arrayKind int

	gen struct {
		Options

		tr tlog.Span

		table  sym.Table
		frames *frame.Table
		code   []tac.Quad
		instrs []tac.Instr

		buf asm.Buffer
		d   *desc.Store

		state state
		fn    *sym.Symbol
		fr    frame.Layout

		at       int
		reserved set.Bits[asm.Reg]
		params   []tac.Operand
		returned bool
		arrays   map[string]array
		spare    []spareSlot

		warns error
	}
)

const (
	idle state = iota
	inProc
)

const (
	globalArray arrayKind = iota
	localArray
	pointerArray
)

var (
	ErrNoRegister = errors.New("no register available")
	ErrUnresolved = errors.New("unresolved reference")
	ErrState      = errors.New("inconsistent generator state")
)

func DefaultOptions() Options {
	return Options{
		Entry:                 "main",
		PlaceholderLocalWords: 4,
		CountLocals:           true,
		Strict:                true,
	}
}

func (o Options) FrameOptions() frame.Options {
	return frame.Options{
		Entry:                 o.Entry,
		AssumeLeaf:            o.AssumeLeaf,
		PlaceholderLocalWords: o.PlaceholderLocalWords,
		CountLocals:           o.CountLocals,
	}
}

func New(opts Options) *Compiler {
	return &Compiler{Options: opts}
}

// GenerateAssembly compiles numbered code into a listing.
func GenerateAssembly(ctx context.Context, code []tac.Quad, table sym.Table, opts Options) (*Listing, error) {
	return New(opts).Compile(ctx, code, table)
}

func (c *Compiler) Compile(ctx context.Context, code []tac.Quad, table sym.Table) (_ *Listing, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: generate", "instrs", len(code), "entry", c.Entry)
	defer tr.Finish("err", &err)

	g, err := newGen(ctx, c.Options, table, code)
	if err != nil {
		return nil, err
	}

	g.globals()

	for i := range code {
		err = g.step(i)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d %v", i, code[i].String())
		}
	}

	if g.state != idle {
		return nil, errors.Wrap(ErrState, "func %v: no exit marker", g.fn.Name)
	}

	if tr.If("dump_asm") {
		tr.Printw("listing", "text", g.buf.AppendText(nil))
	}

	return &Listing{
		Buffer:   g.buf,
		Frames:   g.frames.Layouts(),
		Warnings: g.warns,
	}, nil
}

func (l *Listing) Text() []byte { return l.AppendText(nil) }

func newGen(ctx context.Context, opts Options, table sym.Table, code []tac.Quad) (g *gen, err error) {
	g = &gen{
		Options: opts,
		tr:      tlog.SpanFromContext(ctx),
		table:   table,
		code:    code,
		instrs:  make([]tac.Instr, len(code)),
		d:       desc.New(),
	}

	for i, q := range code {
		if q.Index != i {
			return nil, errors.Wrap(ErrState, "instr %d %v: index %d: code is not numbered", i, q.String(), q.Index)
		}

		g.instrs[i], err = tac.Decode(q)
		if err != nil {
			return nil, errors.Wrap(err, "instr %d", i)
		}
	}

	if g.tr.If("dump_code") {
		for i, q := range code {
			g.tr.Printw("code", "i", i, "q", q, "instr", tlog.FormatNext("%T"), g.instrs[i])
		}
	}

	g.frames, err = frame.Plan(ctx, table, code, opts.FrameOptions())
	if err != nil {
		return nil, errors.Wrap(err, "plan frames")
	}

	return g, nil
}

func (g *gen) step(i int) (err error) {
	g.at = i
	g.reserved.Reset()

	x := g.instrs[i]

	switch x := x.(type) {
	case tac.Nop:
		return nil
	case tac.Label:
		switch x.Kind {
		case tac.FuncEntry:
			return g.enter(x)
		case tac.FuncExit:
			return g.exit(x)
		}

		if g.state == inProc {
			g.flush()
		}

		g.emit("%s:", x.Name)
		g.returned = false

		return nil
	}

	if g.state != inProc {
		return errors.Wrap(ErrState, "instruction outside of function")
	}

	g.returned = false

	switch x := x.(type) {
	case tac.Binary:
		err = g.binary(x)
	case tac.Unary:
		err = g.unary(x)
	case tac.Imm:
		err = g.imm(x)
	case tac.Copy:
		err = g.copy(x)
	case tac.Load:
		err = g.loadIndex(x)
	case tac.Store:
		err = g.storeIndex(x)
	case tac.LoadInd:
		err = g.loadInd(x)
	case tac.StoreInd:
		err = g.storeInd(x)
	case tac.Param:
		g.params = append(g.params, x.X)
	case tac.Call:
		return g.call(x)
	case tac.Branch:
		return g.branch(x)
	case tac.Goto:
		return g.jump(x)
	case tac.Return:
		err = g.ret(x)
		g.returned = true

		return err
	default:
		panic(x)
	}

	if err != nil {
		return err
	}

	if g.FlushEachInstr {
		g.writeBack()
		g.evictHomed()
	}

	if g.tr.If("dump_desc") {
		g.tr.Printw("descriptors", "i", i, "regs", g.d)
	}

	return nil
}

func (g *gen) globals() {
	g.buf.Line(".data")

	for _, s := range g.table.Globals() {
		if s.Kind != sym.Variable {
			continue
		}

		if s.IsArray {
			g.emit("%s: .space %d", s.Name, s.Words()*asm.WordSize)
		} else {
			g.emit("%s: .word 0", s.Name)
		}
	}

	g.buf.Line(".text")
}

func (g *gen) emit(format string, args ...any) {
	g.buf.Emit(format, args...)

	if tlog.If("emit") {
		tlog.Printw("emit", "line", g.buf.Lines()[g.buf.Len()-1], "instr", g.at, "from", loc.Caller(1))
	}
}

// load emits a memory load to the named register.
func (g *gen) load(dst, mem string) {
	g.emit("lw %s, %s", dst, mem)
	g.delay(2)
}

func (g *gen) delay(n int) {
	if !g.DelaySlots {
		return
	}

	for i := 0; i < n; i++ {
		g.emit("nop")
	}
}

// li materializes the immediate.
func (g *gen) li(dst string, imm int64) {
	if imm >= -1<<15 && imm < 1<<15 {
		g.emit("addi %s, %s, %d", dst, asm.Zero, imm)
		return
	}

	g.emit("lui %s, %d", dst, imm>>16)
	g.emit("ori %s, %s, %d", dst, dst, imm&0xffff)
}
