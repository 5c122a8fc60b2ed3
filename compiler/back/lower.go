package back

import (
	"tlog.app/go/errors"

	"github.com/slowlang/tacc/compiler/asm"
	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

var simple = map[tac.Op]string{
	tac.Add: "add",
	tac.Sub: "sub",
	tac.And: "and",
	tac.Or:  "or",
	tac.Xor: "xor",
	tac.Shl: "sllv",
	tac.Shr: "srlv",
}

func (g *gen) binary(x tac.Binary) (err error) {
	y, ry, err := g.operand(x.L, x.R.Var(), x.Res, asm.Scratch1)
	if err != nil {
		return errors.Wrap(err, "left")
	}

	z, rz, err := g.operand(x.R, x.L.Var(), x.Res, asm.Scratch2)
	if err != nil {
		return errors.Wrap(err, "right")
	}

	var rx asm.Reg

	switch {
	case x.Res == x.L.Var():
		rx = ry
	case x.Res == x.R.Var():
		rx = rz
	default:
		rx, err = g.acquire(x.Res, "", x.Res)
		if err != nil {
			return errors.Wrap(err, "result")
		}
	}

	r := rx.String()

	if m, ok := simple[x.Op]; ok {
		g.emit("%s %s, %s, %s", m, r, y, z)
		g.commit(rx, x.Res)

		return nil
	}

	switch x.Op {
	case tac.Eq:
		g.emit("sub %s, %s, %s", r, y, z)
		g.emit("sltu %s, %s, %s", r, asm.Zero, r)
		g.emit("xori %s, %s, 1", r, r)
	case tac.Ne:
		g.emit("sub %s, %s, %s", r, y, z)
		g.emit("sltu %s, %s, %s", r, asm.Zero, r)
	case tac.Lt:
		g.emit("slt %s, %s, %s", r, y, z)
	case tac.Gt:
		g.emit("slt %s, %s, %s", r, z, y)
	case tac.Ge:
		g.emit("slt %s, %s, %s", r, y, z)
		g.emit("xori %s, %s, 1", r, r)
	case tac.Le:
		g.emit("slt %s, %s, %s", r, z, y)
		g.emit("xori %s, %s, 1", r, r)
	case tac.Mul:
		g.emit("mult %s, %s", y, z)
		g.emit("mflo %s", r)
	case tac.Div:
		g.emit("div %s, %s", y, z)
		g.emit("mflo %s", r)
	case tac.Mod:
		g.emit("div %s, %s", y, z)
		g.emit("mfhi %s", r)
	default:
		panic(x.Op)
	}

	g.commit(rx, x.Res)

	return nil
}

func (g *gen) unary(x tac.Unary) (err error) {
	y, ry, err := g.operand(x.X, "", x.Res, asm.Scratch1)
	if err != nil {
		return err
	}

	rx := ry

	if x.Res != x.X.Var() {
		rx, err = g.acquire(x.Res, x.X.Var(), x.Res)
		if err != nil {
			return errors.Wrap(err, "result")
		}
	}

	r := rx.String()

	switch x.Op {
	case tac.Neg:
		g.emit("sub %s, %s, %s", r, asm.Zero, y)
	case tac.BitNot:
		g.emit("nor %s, %s, %s", r, y, y)
	case tac.Not:
		g.emit("sltiu %s, %s, 1", r, y)
	case tac.Plus:
		if r != y {
			g.emit("mv %s, %s", r, y)
		}
	default:
		panic(x.Op)
	}

	g.commit(rx, x.Res)

	return nil
}

func (g *gen) imm(x tac.Imm) error {
	r, err := g.acquire(x.Res, "", x.Res)
	if err != nil {
		return err
	}

	g.li(r.String(), x.Val)
	g.commit(r, x.Res)

	return nil
}

func (g *gen) copy(x tac.Copy) error {
	if x.Src == x.Res {
		return nil
	}

	ry, err := g.reg(x.Src, "", x.Res)
	if err != nil {
		return err
	}

	rx, err := g.acquire(x.Res, x.Src, x.Res)
	if err != nil {
		return errors.Wrap(err, "result")
	}

	g.emit("mv %s, %s", rx.String(), ry.String())
	g.commit(rx, x.Res)

	return nil
}

// element computes the element address into the address scratch register
// and returns the memory operand.
func (g *gen) element(arr string, idx tac.Operand, other, res string) (string, error) {
	ri, _, err := g.operand(idx, other, res, asm.Scratch1)
	if err != nil {
		return "", errors.Wrap(err, "index")
	}

	g.emit("sll %s, %s, %d", asm.Addr, ri, asm.WordShift)

	a, err := g.array(arr)
	if err != nil {
		return "", err
	}

	switch a.kind {
	case globalArray:
		return arr + "(" + asm.Addr + ")", nil
	case localArray:
		g.emit("add %s, %s, %s", asm.Addr, asm.Addr, asm.SP)

		return memAddr(a.off, asm.Addr), nil
	case pointerArray:
		rb, err := g.reg(arr, idx.Var(), res)
		if err != nil {
			return "", errors.Wrap(err, "base")
		}

		g.emit("add %s, %s, %s", asm.Addr, asm.Addr, rb.String())

		return memAddr(0, asm.Addr), nil
	default:
		panic(a.kind)
	}
}

// array finds out how the array is addressed.
// Scalar variables are used as pointers.
func (g *gen) array(name string) (array, error) {
	if a, ok := g.arrays[name]; ok {
		return a, nil
	}

	if _, ok := g.d.Lookup(name); ok {
		return array{kind: pointerArray}, nil
	}

	s, ok := g.table.Lookup(name)
	if !ok || s.Kind != sym.Variable {
		return array{}, errors.Wrap(ErrUnresolved, "%v: not an array", name)
	}

	if s.IsArray {
		return array{kind: globalArray}, nil
	}

	return array{kind: pointerArray}, nil
}

func (g *gen) loadIndex(x tac.Load) error {
	mem, err := g.element(x.Arr, x.Index, "", x.Res)
	if err != nil {
		return err
	}

	r, err := g.acquire(x.Res, "", x.Res)
	if err != nil {
		return errors.Wrap(err, "result")
	}

	g.load(r.String(), mem)
	g.commit(r, x.Res)

	return nil
}

func (g *gen) storeIndex(x tac.Store) error {
	mem, err := g.element(x.Arr, x.Index, x.Val.Var(), "")
	if err != nil {
		return err
	}

	v, _, err := g.operand(x.Val, x.Index.Var(), "", asm.Scratch1)
	if err != nil {
		return errors.Wrap(err, "value")
	}

	g.emit("sw %s, %s", v, mem)

	return nil
}

func (g *gen) loadInd(x tac.LoadInd) error {
	rp, err := g.reg(x.Ptr, "", x.Res)
	if err != nil {
		return errors.Wrap(err, "pointer")
	}

	r, err := g.acquire(x.Res, x.Ptr, x.Res)
	if err != nil {
		return errors.Wrap(err, "result")
	}

	g.load(r.String(), memAddr(0, rp.String()))
	g.commit(r, x.Res)

	return nil
}

func (g *gen) storeInd(x tac.StoreInd) error {
	rp, err := g.reg(x.Ptr, x.Val.Var(), "")
	if err != nil {
		return errors.Wrap(err, "pointer")
	}

	v, _, err := g.operand(x.Val, x.Ptr, "", asm.Scratch1)
	if err != nil {
		return errors.Wrap(err, "value")
	}

	g.emit("sw %s, %s", v, memAddr(0, rp.String()))

	return nil
}

func (g *gen) branch(x tac.Branch) error {
	c, _, err := g.operand(x.Cond, "", "", asm.Scratch1)
	if err != nil {
		return err
	}

	g.flush()

	if x.IfTrue {
		g.emit("bne %s, %s, %s", c, asm.Zero, x.Label)
	} else {
		g.emit("beq %s, %s, %s", c, asm.Zero, x.Label)
	}

	g.delay(1)

	return nil
}

func (g *gen) jump(x tac.Goto) error {
	g.flush()

	g.emit("j %s", x.Label)
	g.delay(1)

	return nil
}
