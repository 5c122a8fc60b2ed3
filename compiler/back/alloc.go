package back

import (
	"go.uber.org/multierr"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tacc/compiler/asm"
	"github.com/slowlang/tacc/compiler/desc"
	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

type victim struct {
	reg  asm.Reg
	cost int
}

const unspillable = 1 << 30

func victimLess(d []victim, i, j int) bool {
	if d[i].cost != d[j].cost {
		return d[i].cost < d[j].cost
	}

	return d[i].reg < d[j].reg
}

// variable finds the variable creating global scalars on first reference.
func (g *gen) variable(name string) (desc.Var, bool) {
	if v, ok := g.d.Lookup(name); ok {
		return v, true
	}

	s, ok := g.table.Lookup(name)
	if !ok || s.Kind != sym.Variable || s.IsArray {
		return 0, false
	}

	return g.d.Declare(name, name), true
}

// acquire picks a register for name and reserves it for the current instruction.
// other and res are the other operand and the result of the instruction.
func (g *gen) acquire(name, other, res string) (r asm.Reg, err error) {
	if v, ok := g.variable(name); ok {
		if r, ok := g.d.Where(v); ok {
			g.reserved.Set(r)

			return r, nil
		}
	}

	for r := asm.Reg(0); r < asm.NumRegs; r++ {
		if g.d.Usable(r) && g.d.Free(r) && !g.reserved.IsSet(r) {
			g.reserved.Set(r)

			return r, nil
		}
	}

	h := heap.Heap[victim]{Less: victimLess}

	for r := asm.Reg(0); r < asm.NumRegs; r++ {
		if !g.d.Usable(r) || g.reserved.IsSet(r) {
			continue
		}

		h.Push(victim{reg: r, cost: g.spillCost(r, other, res)})
	}

	if h.Len() == 0 {
		return asm.NoReg, errors.Wrap(ErrNoRegister, "%v: all registers are reserved", name)
	}

	best := h.Pop()

	if tlog.If("spill") {
		tlog.Printw("spill", "var", name, "reg", best.reg, "cost", best.cost, "candidates", h.Len()+1, "instr", g.at)
	}

	if best.cost >= unspillable {
		return asm.NoReg, errors.Wrap(ErrNoRegister, "%v: every register holds a live temporary", name)
	}

	g.spill(best.reg, other, res)
	g.reserved.Set(best.reg)

	return best.reg, nil
}

func (g *gen) spillCost(r asm.Reg, other, res string) (cost int) {
	g.d.Held(r).Range(func(v desc.Var) bool {
		name := g.d.Name(v)

		switch {
		case name == res && name != other:
		case name != other && !g.usedLater(name):
		case g.d.HasOtherCopy(v, r):
		case g.d.Home(v) != "":
			cost++
		default:
			cost = unspillable
			return false
		}

		return true
	})

	return cost
}

// spill stores variables which would lose their only copy and empties r.
func (g *gen) spill(r asm.Reg, other, res string) {
	held := g.d.Held(r).Copy()

	held.Range(func(v desc.Var) bool {
		name := g.d.Name(v)

		if name == res && name != other {
			return true
		}

		if g.d.Home(v) != "" && !g.d.HomeValid(v) && !g.d.HasOtherCopy(v, r) {
			g.store(r, v)
		}

		return true
	})

	g.d.ClearRegister(r)
}

// usedLater reports whether name is referenced by a pending argument
// or by later instructions up to the end of the block of the procedure.
func (g *gen) usedLater(name string) bool {
	for _, p := range g.params {
		if p.Var() == name {
			return true
		}
	}

	for i := g.at + 1; i < len(g.code); i++ {
		q := g.code[i]

		if q.Refers(name) {
			return true
		}

		if q.Op == "return" {
			return false
		}

		if q.Op == "label" && tac.LabelOf(q.Arg1).Kind != tac.Plain {
			return false
		}
	}

	return false
}

// ensureLoaded makes r hold a valid copy of name.
func (g *gen) ensureLoaded(name string, r asm.Reg) error {
	v, ok := g.variable(name)
	if !ok {
		return g.unresolved("%v: undefined", name)
	}

	if g.d.IsResident(r, v) {
		return nil
	}

	if q, ok := g.d.Where(v); ok {
		g.emit("mv %s, %s", r.String(), q.String())
		g.d.Bind(r, v)

		return nil
	}

	if !g.d.HomeValid(v) {
		return g.unresolved("%v: no valid location", name)
	}

	g.load(r.String(), g.d.Home(v))
	g.d.Bind(r, v)

	return nil
}

// reg returns a register holding a valid copy of the variable.
func (g *gen) reg(name, other, res string) (asm.Reg, error) {
	r, err := g.acquire(name, other, res)
	if err != nil {
		return r, err
	}

	return r, g.ensureLoaded(name, r)
}

// operand returns the register name holding the operand value.
// Literals go to scratch, zero is the zero register.
func (g *gen) operand(x tac.Operand, other, res, scratch string) (string, asm.Reg, error) {
	if x.Const {
		if x.Imm == 0 {
			return asm.Zero, asm.NoReg, nil
		}

		g.li(scratch, x.Imm)

		return scratch, asm.NoReg, nil
	}

	r, err := g.reg(x.Name, other, res)
	if err != nil {
		return "", r, err
	}

	return r.String(), r, nil
}

// commit binds the result of the instruction.
func (g *gen) commit(r asm.Reg, name string) {
	v, ok := g.variable(name)
	if !ok {
		v = g.d.Temp(name)
	}

	g.d.Commit(r, v)
}

func (g *gen) store(r asm.Reg, v desc.Var) {
	g.emit("sw %s, %s", r.String(), g.d.Home(v))
	g.d.MarkStored(v)
}

func (g *gen) unresolved(format string, args ...any) error {
	err := errors.Wrap(ErrUnresolved, format, args...)

	if g.Strict {
		return err
	}

	tlog.Printw("unresolved reference", "instr", g.at, "q", g.code[g.at], "err", err)

	g.warns = multierr.Append(g.warns, errors.Wrap(err, "instr %d", g.at))

	return nil
}
