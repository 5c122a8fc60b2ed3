package back

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tacc/compiler/asm"
	"github.com/slowlang/tacc/compiler/desc"
	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

func (g *gen) enter(l tac.Label) (err error) {
	if g.state != idle {
		return errors.Wrap(ErrState, "func %v: entry inside of func %v", l.Func, g.fn.Name)
	}

	f, ok := g.table.Lookup(l.Func)
	if !ok || f.Kind != sym.Func {
		return errors.Wrap(ErrUnresolved, "func %v: not a function", l.Func)
	}

	fr, err := g.frames.Find(f.Name)
	if err != nil {
		return err
	}

	words := 0
	for _, v := range f.Locals {
		words += v.Words()
	}

	if words > fr.LocalDataWords {
		return errors.New("func %v: locals take %d words, frame has %d", f.Name, words, fr.LocalDataWords)
	}

	g.state = inProc
	g.fn = f
	g.fr = fr
	g.params = g.params[:0]
	g.returned = false
	g.arrays = map[string]array{}

	g.d.Reset()

	tlog.V("func").Printw("function", "name", f.Name, "frame", fr)

	g.prologue()

	entry := f.Name == g.Entry

	for r := asm.S0; r < asm.NumRegs; r++ {
		g.d.SetUsable(r, entry || r.SavedIndex() < fr.CalleeSavedCount)
	}

	for i, p := range f.Params {
		g.d.Declare(p.Name, frameAddr(fr.ParamOffset(i)))

		if p.IsArray {
			g.arrays[p.Name] = array{kind: pointerArray}
		}
	}

	w := 0

	for _, v := range f.Locals {
		off := fr.LocalOffset(w)
		w += v.Words()

		if v.IsArray {
			g.arrays[v.Name] = array{kind: localArray, off: off}
			continue
		}

		g.d.Declare(v.Name, frameAddr(off))
	}

	g.spare = g.spare[:0]

	for ; w < fr.LocalDataWords; w++ {
		g.spare = append(g.spare, spareSlot{word: w})
	}

	return nil
}

func (g *gen) exit(l tac.Label) error {
	if g.state != inProc {
		return errors.Wrap(ErrState, "func %v: exit outside of function", l.Func)
	}

	if l.Func != g.fn.Name {
		return errors.Wrap(ErrState, "func %v: exit marker of %v", g.fn.Name, l.Func)
	}

	g.flush()

	if !g.returned {
		g.epilogue()
	}

	g.d.Reset()

	g.state = idle
	g.fn = nil
	g.returned = false

	return nil
}

func (g *gen) prologue() {
	fr := g.fr

	g.emit("%s:", g.fn.Name)

	if fr.TotalWords != 0 {
		g.emit("addi %s, %s, %d", asm.SP, asm.SP, -fr.Bytes())
	}

	if !fr.Leaf {
		g.emit("sw %s, %s", asm.RA, frameAddr(fr.ReturnAddrOffset()))
	}

	for k := 0; k < fr.CalleeSavedCount; k++ {
		g.emit("sw %s, %s", asm.Saved(k).String(), frameAddr(fr.SaveOffset(k)))
	}

	for i := range g.fn.Params {
		if i == asm.ArgRegs {
			break
		}

		g.emit("sw %s, %s", asm.Arg(i), frameAddr(fr.ParamOffset(i)))
	}
}

func (g *gen) epilogue() {
	fr := g.fr

	for k := 0; k < fr.CalleeSavedCount; k++ {
		g.load(asm.Saved(k).String(), frameAddr(fr.SaveOffset(k)))
	}

	if !fr.Leaf {
		g.load(asm.RA, frameAddr(fr.ReturnAddrOffset()))
	}

	if fr.TotalWords != 0 {
		g.emit("addi %s, %s, %d", asm.SP, asm.SP, fr.Bytes())
	}

	g.emit("jr %s", asm.RA)
	g.delay(1)
}

func (g *gen) ret(x tac.Return) error {
	if x.HasValue {
		err := g.value(asm.V0, x.X)
		if err != nil {
			return err
		}
	}

	g.flush()
	g.epilogue()

	return nil
}

// value copies the operand value into the named register outside of the pool.
func (g *gen) value(dst string, x tac.Operand) error {
	if x.Const {
		g.li(dst, x.Imm)
		return nil
	}

	v, ok := g.variable(x.Name)
	if !ok {
		return g.unresolved("%v: undefined", x.Name)
	}

	if r, ok := g.d.Where(v); ok {
		g.emit("mv %s, %s", dst, r.String())
		return nil
	}

	if !g.d.HomeValid(v) {
		return g.unresolved("%v: no valid location", x.Name)
	}

	g.load(dst, g.d.Home(v))

	return nil
}

// writeBack stores every variable whose register copy is newer than its home.
func (g *gen) writeBack() {
	g.d.Vars(func(v desc.Var) bool {
		if !g.d.Dirty(v) {
			return true
		}

		r, _ := g.d.Where(v)
		g.store(r, v)

		return true
	})
}

// flush ends a basic block: nothing stays in registers.
func (g *gen) flush() {
	g.writeBack()
	g.d.ClearAll()
}

// evictHomed drops register copies of variables living in memory.
// Temporaries stay.
func (g *gen) evictHomed() {
	g.d.Vars(func(v desc.Var) bool {
		if g.d.Home(v) == "" {
			return true
		}

		g.d.Locations(v).Copy().Range(func(r asm.Reg) bool {
			g.d.Unbind(r, v)
			return true
		})

		return true
	})
}

func frameAddr(off int) string { return memAddr(off, asm.SP) }

func memAddr(off int, base string) string {
	return string(hfmt.Appendf(nil, "%d(%s)", off, base))
}
