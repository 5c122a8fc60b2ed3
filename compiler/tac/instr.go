package tac

import (
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

type (
	Instr interface {
		instr()
	}

	Op int

	// Operand is a variable name or an integer literal.
	Operand struct {
		Name  string
		Imm   int64
		Const bool
	}

	LabelKind int

	Binary struct {
		Op   Op
		L, R Operand
		Res  string
	}

	Unary struct {
		Op  Op
		X   Operand
		Res string
	}

	Imm struct {
		Val int64
		Res string
	}

	Copy struct {
		Src string
		Res string
	}

	// Load is Res = Arr[Index].
	Load struct {
		Arr   string
		Index Operand
		Res   string
	}

	// Store is Arr[Index] = Val.
	Store struct {
		Arr   string
		Index Operand
		Val   Operand
	}

	// LoadInd is Res = *Ptr.
	LoadInd struct {
		Ptr string
		Res string
	}

	// StoreInd is *Ptr = Val.
	StoreInd struct {
		Ptr string
		Val Operand
	}

	Param struct {
		X Operand
	}

	Call struct {
		Func string
		Res  string
	}

	Branch struct {
		Cond   Operand
		IfTrue bool
		Label  string
	}

	Goto struct {
		Label string
	}

	Label struct {
		Name string
		Kind LabelKind
		Func string
	}

	Return struct {
		X        Operand
		HasValue bool
	}

	Nop struct{}
)

const (
	_ Op = iota

	Add
	Sub
	And
	Or
	Xor
	Shl
	Shr
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	Mul
	Div
	Mod

	Neg
	BitNot
	Not
	Plus
)

const (
	Plain LabelKind = iota
	FuncEntry
	FuncExit
)

var ErrUnknownOp = errors.New("unknown opcode")

var binops = map[string]Op{
	"+":   Add,
	"-":   Sub,
	"&":   And,
	"and": And,
	"|":   Or,
	"or":  Or,
	"^":   Xor,
	"<<":  Shl,
	">>":  Shr,
	"==":  Eq,
	"!=":  Ne,
	"<":   Lt,
	">":   Gt,
	"<=":  Le,
	">=":  Ge,
	"*":   Mul,
	"/":   Div,
	"%":   Mod,
}

var unops = map[string]Op{
	"-": Neg,
	"~": BitNot,
	"!": Not,
	"+": Plus,
}

var opnames = [...]string{
	Add: "+", Sub: "-", And: "&", Or: "|", Xor: "^", Shl: "<<", Shr: ">>",
	Eq: "==", Ne: "!=", Lt: "<", Gt: ">", Le: "<=", Ge: ">=",
	Mul: "*", Div: "/", Mod: "%",
	Neg: "-", BitNot: "~", Not: "!", Plus: "+",
}

func (Binary) instr()   {}
func (Unary) instr()    {}
func (Imm) instr()      {}
func (Copy) instr()     {}
func (Load) instr()     {}
func (Store) instr()    {}
func (LoadInd) instr()  {}
func (StoreInd) instr() {}
func (Param) instr()    {}
func (Call) instr()     {}
func (Branch) instr()   {}
func (Goto) instr()     {}
func (Label) instr()    {}
func (Return) instr()   {}
func (Nop) instr()      {}

func (op Op) String() string {
	if op <= 0 || int(op) >= len(opnames) {
		return "op" + strconv.Itoa(int(op))
	}

	return opnames[op]
}

func (x Operand) String() string {
	if x.Const {
		return strconv.FormatInt(x.Imm, 10)
	}

	return x.Name
}

// Var returns the variable name or "" for literals.
func (x Operand) Var() string {
	if x.Const {
		return ""
	}

	return x.Name
}

func ParseOperand(s string) Operand {
	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return Operand{Imm: v, Const: true}
	}

	return Operand{Name: s}
}

func LabelOf(name string) Label {
	switch {
	case strings.HasPrefix(name, FuncPrefix):
		return Label{Name: name, Kind: FuncEntry, Func: name[len(FuncPrefix):]}
	case strings.HasPrefix(name, EndPrefix):
		return Label{Name: name, Kind: FuncExit, Func: name[len(EndPrefix):]}
	default:
		return Label{Name: name}
	}
}

// Decode converts the raw quad into a typed instruction.
func Decode(q Quad) (Instr, error) {
	for _, a := range [...]string{q.Arg1, q.Arg2, q.Res} {
		if x := ParseOperand(a); x.Const && (x.Imm < math.MinInt32 || x.Imm > math.MaxInt32) {
			return nil, errors.Wrap(ErrSyntax, "%v: %v: immediate out of range", q, a)
		}
	}

	switch q.Op {
	case "=":
		if err := need(q, q.Arg1, q.Res); err != nil {
			return nil, err
		}

		if x := ParseOperand(q.Arg1); x.Const {
			return Imm{Val: x.Imm, Res: q.Res}, nil
		}

		return Copy{Src: q.Arg1, Res: q.Res}, nil
	case "=[]":
		if err := needVar(q, q.Arg1, q.Res); err != nil {
			return nil, err
		}

		if err := need(q, q.Arg2); err != nil {
			return nil, err
		}

		return Load{Arr: q.Arg1, Index: ParseOperand(q.Arg2), Res: q.Res}, nil
	case "[]=":
		if err := needVar(q, q.Res); err != nil {
			return nil, err
		}

		if err := need(q, q.Arg1, q.Arg2); err != nil {
			return nil, err
		}

		return Store{Arr: q.Res, Index: ParseOperand(q.Arg1), Val: ParseOperand(q.Arg2)}, nil
	case "$=":
		if err := needVar(q, q.Arg1, q.Res); err != nil {
			return nil, err
		}

		return LoadInd{Ptr: q.Arg1, Res: q.Res}, nil
	case "=$":
		if err := needVar(q, q.Arg1); err != nil {
			return nil, err
		}

		if err := need(q, q.Arg2); err != nil {
			return nil, err
		}

		return StoreInd{Ptr: q.Arg1, Val: ParseOperand(q.Arg2)}, nil
	case "param":
		if err := need(q, q.Arg1); err != nil {
			return nil, err
		}

		return Param{X: ParseOperand(q.Arg1)}, nil
	case "call":
		if err := needVar(q, q.Arg1); err != nil {
			return nil, err
		}

		return Call{Func: q.Arg1, Res: q.Res}, nil
	case "ifFalseGoto", "ifGoto":
		if err := need(q, q.Arg1, q.Res); err != nil {
			return nil, err
		}

		return Branch{Cond: ParseOperand(q.Arg1), IfTrue: q.Op == "ifGoto", Label: q.Res}, nil
	case "goto":
		l := q.Res
		if l == "" {
			l = q.Arg1
		}

		if err := need(q, l); err != nil {
			return nil, err
		}

		return Goto{Label: l}, nil
	case "label":
		if err := need(q, q.Arg1); err != nil {
			return nil, err
		}

		return LabelOf(q.Arg1), nil
	case "return":
		x := q.Res
		if x == "" {
			x = q.Arg1
		}

		if x == "" {
			return Return{}, nil
		}

		return Return{X: ParseOperand(x), HasValue: true}, nil
	case "alloc_global", "alloc", "nop":
		return Nop{}, nil
	}

	if op, ok := binops[q.Op]; ok && q.Arg2 != "" {
		if err := needVar(q, q.Res); err != nil {
			return nil, err
		}

		if err := need(q, q.Arg1); err != nil {
			return nil, err
		}

		return Binary{Op: op, L: ParseOperand(q.Arg1), R: ParseOperand(q.Arg2), Res: q.Res}, nil
	}

	if op, ok := unops[q.Op]; ok {
		if err := needVar(q, q.Res); err != nil {
			return nil, err
		}

		if err := need(q, q.Arg1); err != nil {
			return nil, err
		}

		return Unary{Op: op, X: ParseOperand(q.Arg1), Res: q.Res}, nil
	}

	return nil, errors.Wrap(ErrUnknownOp, "%q", q.Op)
}

func need(q Quad, args ...string) error {
	for _, a := range args {
		if a == "" {
			return errors.Wrap(ErrSyntax, "%v: missing operand", q)
		}
	}

	return nil
}

func needVar(q Quad, args ...string) error {
	if err := need(q, args...); err != nil {
		return err
	}

	for _, a := range args {
		if ParseOperand(a).Const {
			return errors.Wrap(ErrSyntax, "%v: %v: variable expected", q, a)
		}
	}

	return nil
}
