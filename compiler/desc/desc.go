package desc

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/tacc/compiler/asm"
	"github.com/slowlang/tacc/compiler/set"
)

type (
	// Var is an interned variable id.
	Var int

	// Store keeps register and address descriptors of the current procedure.
	Store struct {
		regs [asm.NumRegs]reg
		vars []variable
		ids  map[string]Var
	}

	reg struct {
		usable bool
		held   set.Bits[Var]
	}

	variable struct {
		name string
		home string

		regs   set.Bits[asm.Reg]
		inHome bool
		dead   bool
	}
)

const initVars = 128

func New() *Store {
	s := &Store{}

	s.Reset()

	return s
}

// Reset forgets every variable and makes every register usable.
func (s *Store) Reset() {
	for r := range s.regs {
		s.regs[r] = reg{usable: true}
	}

	s.vars = make([]variable, 0, initVars)
	s.ids = make(map[string]Var, initVars)
}

// Declare creates the variable or moves it to the new home.
// A declared home holds a valid copy.
func (s *Store) Declare(name, home string) Var {
	v, ok := s.ids[name]
	if !ok {
		v = s.add(name)
	}

	x := &s.vars[v]

	x.home = home
	x.inHome = home != ""

	return v
}

// Temp returns the variable creating it without a home if it's new.
func (s *Store) Temp(name string) Var {
	if v, ok := s.ids[name]; ok {
		return v
	}

	return s.add(name)
}

func (s *Store) Lookup(name string) (Var, bool) {
	v, ok := s.ids[name]

	return v, ok
}

func (s *Store) Name(v Var) string { return s.vars[v].name }
func (s *Store) Home(v Var) string { return s.vars[v].home }

func (s *Store) HomeValid(v Var) bool { return s.vars[v].inHome }

// Dirty reports a register copy newer than the home.
func (s *Store) Dirty(v Var) bool {
	x := &s.vars[v]

	return x.home != "" && !x.inHome && !x.regs.Empty()
}

func (s *Store) MarkStored(v Var) {
	s.vars[v].inHome = s.vars[v].home != ""
}

func (s *Store) Locations(v Var) set.Bits[asm.Reg] { return s.vars[v].regs }

// Where returns the first register in priority order holding v.
func (s *Store) Where(v Var) (asm.Reg, bool) {
	return s.vars[v].regs.First()
}

func (s *Store) IsResident(r asm.Reg, v Var) bool {
	return s.vars[v].regs.IsSet(r)
}

// HasOtherCopy reports whether v stays valid when r is reused.
func (s *Store) HasOtherCopy(v Var, r asm.Reg) bool {
	x := &s.vars[v]

	if x.inHome {
		return true
	}

	n := x.regs.Size()
	if x.regs.IsSet(r) {
		n--
	}

	return n > 0
}

func (s *Store) Held(r asm.Reg) set.Bits[Var] { return s.regs[r].held }

// Holder returns the variable held in r.
func (s *Store) Holder(r asm.Reg) (Var, bool) { return s.regs[r].held.First() }

func (s *Store) Free(r asm.Reg) bool { return s.regs[r].held.Empty() }

func (s *Store) Usable(r asm.Reg) bool { return s.regs[r].usable }

func (s *Store) SetUsable(r asm.Reg, u bool) { s.regs[r].usable = u }

// Bind records that r holds a valid copy of v and nothing else.
func (s *Store) Bind(r asm.Reg, v Var) {
	s.unlink(r, v)

	s.regs[r].held.Only(v)
	s.vars[v].regs.Set(r)
}

func (s *Store) Unbind(r asm.Reg, v Var) {
	s.regs[r].held.Clear(v)
	s.vars[v].regs.Clear(r)
}

// Commit makes r the only valid location of v.
// The home becomes stale.
func (s *Store) Commit(r asm.Reg, v Var) {
	x := &s.vars[v]

	x.regs.Range(func(q asm.Reg) bool {
		if q != r {
			s.regs[q].held.Clear(v)
		}

		return true
	})

	s.Bind(r, v)

	x.regs.Only(r)
	x.inHome = false
}

// ClearRegister empties r.
// Temporaries left without any location are forgotten.
func (s *Store) ClearRegister(r asm.Reg) {
	held := s.regs[r].held.Copy()

	held.Range(func(v Var) bool {
		s.Unbind(r, v)
		s.dropOrphan(v)

		return true
	})
}

func (s *Store) ClearAll() {
	for r := range s.regs {
		s.ClearRegister(asm.Reg(r))
	}
}

// Drop forgets the variable.
func (s *Store) Drop(v Var) {
	x := &s.vars[v]

	x.regs.Range(func(r asm.Reg) bool {
		s.regs[r].held.Clear(v)
		return true
	})

	x.regs.Reset()
	x.dead = true

	if s.ids[x.name] == v {
		delete(s.ids, x.name)
	}
}

// Vars calls f for each live variable in creation order.
func (s *Store) Vars(f func(v Var) bool) {
	for v := range s.vars {
		if s.vars[v].dead {
			continue
		}

		if !f(Var(v)) {
			return
		}
	}
}

// Regs calls f for each register in priority order.
func (s *Store) Regs(f func(r asm.Reg) bool) {
	for r := asm.Reg(0); r < asm.NumRegs; r++ {
		if !f(r) {
			return
		}
	}
}

func (s *Store) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Map, -1)

	for r := range s.regs {
		v, ok := s.regs[r].held.First()
		if !ok {
			continue
		}

		b = e.AppendString(b, asm.Reg(r).String())
		b = e.AppendString(b, s.vars[v].name)
	}

	b = e.AppendBreak(b)

	return b
}

func (s *Store) add(name string) Var {
	v := Var(len(s.vars))

	s.vars = append(s.vars, variable{name: name})
	s.ids[name] = v

	return v
}

func (s *Store) unlink(r asm.Reg, keep Var) {
	held := s.regs[r].held.Copy()

	held.Range(func(v Var) bool {
		if v != keep {
			s.Unbind(r, v)
			s.dropOrphan(v)
		}

		return true
	})
}

func (s *Store) dropOrphan(v Var) {
	x := &s.vars[v]

	if x.home == "" && x.regs.Empty() {
		s.Drop(v)
	}
}
