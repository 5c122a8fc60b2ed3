package back

import (
	"tlog.app/go/errors"

	"github.com/slowlang/tacc/compiler/asm"
	"github.com/slowlang/tacc/compiler/tac"
)

func (g *gen) call(x tac.Call) (err error) {
	if _, err = g.frames.Find(x.Func); err != nil {
		return err
	}

	f, _ := g.table.Lookup(x.Func)

	args := g.params
	g.params = nil

	if len(args) != len(f.Params) {
		return errors.New("call %v: %d arguments, want %d", x.Func, len(args), len(f.Params))
	}

	for i, a := range args {
		err = g.arg(i, a)
		if err != nil {
			return errors.Wrap(err, "arg %d", i)
		}
	}

	g.writeBack()

	err = g.keepTemps()
	if err != nil {
		return err
	}

	g.emit("jal %s", x.Func)
	g.delay(1)

	// the callee may change anything having a home
	for r := asm.T0; r < asm.NumRegs; r++ {
		if v, ok := g.d.Holder(r); r < asm.S0 || ok && g.d.Home(v) != "" {
			g.d.ClearRegister(r)
		}
	}

	if x.Res == "" {
		return nil
	}

	r, err := g.acquire(x.Res, "", x.Res)
	if err != nil {
		return errors.Wrap(err, "result")
	}

	g.emit("mv %s, %s", r.String(), asm.V0)
	g.commit(r, x.Res)

	return nil
}

// arg passes the argument i in a register or in the outgoing slot.
func (g *gen) arg(i int, x tac.Operand) error {
	if i < asm.ArgRegs {
		return g.value(asm.Arg(i), x)
	}

	slot := frameAddr(g.fr.OutgoingOffset(i))

	if !x.Const {
		if v, ok := g.variable(x.Name); ok {
			if r, ok := g.d.Where(v); ok {
				g.emit("sw %s, %s", r.String(), slot)
				return nil
			}
		}
	}

	err := g.value(asm.Addr, x)
	if err != nil {
		return err
	}

	g.emit("sw %s, %s", asm.Addr, slot)

	return nil
}

// keepTemps moves temporaries living in caller-saved registers
// and needed after the call to free callee-saved registers.
// With none left they are stored to spare local data words.
func (g *gen) keepTemps() error {
	for r := asm.T0; r < asm.S0; r++ {
		v, ok := g.d.Holder(r)
		if !ok || g.d.Home(v) != "" {
			continue
		}

		name := g.d.Name(v)

		if !g.usedLater(name) {
			continue
		}

		s := g.freeSaved()
		if s != asm.NoReg {
			g.emit("mv %s, %s", s.String(), r.String())
			g.d.Bind(s, v)
			g.reserved.Set(s)

			continue
		}

		home, ok := g.spareWord(name)
		if !ok {
			return errors.Wrap(ErrNoRegister, "keep %v across the call", name)
		}

		g.emit("sw %s, %s", r.String(), home)
		g.d.Declare(name, home)
	}

	return nil
}

// spareWord gives the temporary a local data word not taken by declared locals.
// Words of temporaries not used anymore are reused.
func (g *gen) spareWord(name string) (string, bool) {
	for i := range g.spare {
		s := &g.spare[i]

		if s.temp != "" && g.usedLater(s.temp) {
			continue
		}

		if s.temp != "" {
			if v, ok := g.d.Lookup(s.temp); ok {
				g.d.Drop(v)
			}
		}

		s.temp = name

		return frameAddr(g.fr.LocalOffset(s.word)), true
	}

	return "", false
}

func (g *gen) freeSaved() asm.Reg {
	for r := asm.S0; r < asm.NumRegs; r++ {
		if g.d.Usable(r) && g.d.Free(r) && !g.reserved.IsSet(r) {
			return r
		}
	}

	return asm.NoReg
}
