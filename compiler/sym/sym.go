package sym

import (
	"tlog.app/go/errors"
)

type (
	// Table is the symbol table as the back end sees it.
	Table interface {
		Lookup(name string) (*Symbol, bool)
		// Globals returns global symbols in declaration order.
		Globals() []*Symbol
	}

	Kind int

	Symbol struct {
		Name    string
		Kind    Kind
		Type    string
		Size    int // bytes
		IsArray bool

		Params []Var
		Locals []Var
	}

	Var struct {
		Name    string
		Type    string
		Size    int
		IsArray bool
	}

	Scope struct {
		list  []*Symbol
		index map[string]int
	}
)

const (
	Variable Kind = iota
	Func
)

const WordSize = 4

var ErrRedefined = errors.New("redefined")

func (k Kind) String() string {
	switch k {
	case Variable:
		return "var"
	case Func:
		return "func"
	default:
		return "kind?"
	}
}

// Words is the storage the variable takes in words.
func (v Var) Words() int {
	if !v.IsArray || v.Size <= WordSize {
		return 1
	}

	return (v.Size + WordSize - 1) / WordSize
}

func (s *Symbol) Words() int {
	return Var{Size: s.Size, IsArray: s.IsArray}.Words()
}

// Param returns the index of the named parameter or -1.
func (s *Symbol) Param(name string) int {
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}

	return -1
}

// Local returns the index of the named local or -1.
func (s *Symbol) Local(name string) int {
	for i, l := range s.Locals {
		if l.Name == name {
			return i
		}
	}

	return -1
}

func NewScope() *Scope {
	return &Scope{
		index: make(map[string]int),
	}
}

func (s *Scope) Insert(x *Symbol) error {
	if _, ok := s.index[x.Name]; ok {
		return errors.Wrap(ErrRedefined, "%v", x.Name)
	}

	if err := checkNames(x.Params, x.Locals); err != nil {
		return errors.Wrap(err, "%v", x.Name)
	}

	s.index[x.Name] = len(s.list)
	s.list = append(s.list, x)

	return nil
}

func (s *Scope) Lookup(name string) (*Symbol, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}

	return s.list[i], true
}

func (s *Scope) Globals() []*Symbol { return s.list }

// Funcs returns function symbols of the table in declaration order.
func Funcs(t Table) (r []*Symbol) {
	for _, s := range t.Globals() {
		if s.Kind == Func {
			r = append(r, s)
		}
	}

	return r
}

func checkNames(lists ...[]Var) error {
	seen := map[string]struct{}{}

	for _, l := range lists {
		for _, v := range l {
			if _, ok := seen[v.Name]; ok {
				return errors.Wrap(ErrRedefined, "%v", v.Name)
			}

			seen[v.Name] = struct{}{}
		}
	}

	return nil
}
