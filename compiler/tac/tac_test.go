package tac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	code, err := ParseCode([]byte(`
# comment
(label,func_main,,)
( + , a , 1 , t1 )

(return,,,t1)
(label,end_main,,)
`))
	require.NoError(t, err)
	require.Len(t, code, 4)

	assert.Equal(t, Quad{Op: "+", Arg1: "a", Arg2: "1", Res: "t1", Index: 1}, code[1])
	assert.Equal(t, 3, code[3].Index)
	assert.Equal(t, "(return,,,t1)", code[2].String())
}

func TestParseQuadErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"+,a,b,c",
		"(+,a,b)",
		"(,a,b,c)",
		"(+,a,b,c,d)",
	} {
		_, err := ParseQuad(s)
		assert.ErrorIs(t, err, ErrSyntax, "%q", s)
	}

	_, err := ParseCode([]byte("(label,func_f,,)\n(oops\n"))
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRefers(t *testing.T) {
	assert.True(t, Quad{Op: "+", Arg1: "a", Arg2: "b", Res: "c"}.Refers("b"))
	assert.True(t, Quad{Op: "call", Arg1: "f", Res: "r"}.Refers("r"))
	assert.False(t, Quad{Op: "call", Arg1: "f", Res: "r"}.Refers("f"))
	assert.False(t, Quad{Op: "goto", Res: "a"}.Refers("a"))
	assert.True(t, Quad{Op: "ifFalseGoto", Arg1: "c", Res: "L1"}.Refers("c"))
	assert.False(t, Quad{Op: "ifFalseGoto", Arg1: "c", Res: "L1"}.Refers("L1"))
	assert.False(t, Quad{Op: "+", Arg1: "a", Arg2: "b", Res: "c"}.Refers(""))
}

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		q   Quad
		exp Instr
	}{
		{Quad{Op: "+", Arg1: "a", Arg2: "2", Res: "t"}, Binary{Op: Add, L: Operand{Name: "a"}, R: Operand{Imm: 2, Const: true}, Res: "t"}},
		{Quad{Op: "and", Arg1: "a", Arg2: "b", Res: "t"}, Binary{Op: And, L: Operand{Name: "a"}, R: Operand{Name: "b"}, Res: "t"}},
		{Quad{Op: "-", Arg1: "a", Res: "t"}, Unary{Op: Neg, X: Operand{Name: "a"}, Res: "t"}},
		{Quad{Op: "!", Arg1: "a", Res: "t"}, Unary{Op: Not, X: Operand{Name: "a"}, Res: "t"}},
		{Quad{Op: "=", Arg1: "-7", Res: "x"}, Imm{Val: -7, Res: "x"}},
		{Quad{Op: "=", Arg1: "y", Res: "x"}, Copy{Src: "y", Res: "x"}},
		{Quad{Op: "=[]", Arg1: "arr", Arg2: "i", Res: "r"}, Load{Arr: "arr", Index: Operand{Name: "i"}, Res: "r"}},
		{Quad{Op: "[]=", Arg1: "0", Arg2: "v", Res: "arr"}, Store{Arr: "arr", Index: Operand{Const: true}, Val: Operand{Name: "v"}}},
		{Quad{Op: "$=", Arg1: "p", Res: "r"}, LoadInd{Ptr: "p", Res: "r"}},
		{Quad{Op: "=$", Arg1: "p", Arg2: "3", Res: ""}, StoreInd{Ptr: "p", Val: Operand{Imm: 3, Const: true}}},
		{Quad{Op: "param", Arg1: "x"}, Param{X: Operand{Name: "x"}}},
		{Quad{Op: "call", Arg1: "f", Res: "r"}, Call{Func: "f", Res: "r"}},
		{Quad{Op: "ifFalseGoto", Arg1: "c", Res: "L1"}, Branch{Cond: Operand{Name: "c"}, Label: "L1"}},
		{Quad{Op: "ifGoto", Arg1: "c", Res: "L1"}, Branch{Cond: Operand{Name: "c"}, IfTrue: true, Label: "L1"}},
		{Quad{Op: "goto", Res: "L2"}, Goto{Label: "L2"}},
		{Quad{Op: "label", Arg1: "func_main"}, Label{Name: "func_main", Kind: FuncEntry, Func: "main"}},
		{Quad{Op: "label", Arg1: "end_main"}, Label{Name: "end_main", Kind: FuncExit, Func: "main"}},
		{Quad{Op: "label", Arg1: "L3"}, Label{Name: "L3"}},
		{Quad{Op: "return"}, Return{}},
		{Quad{Op: "return", Res: "x"}, Return{X: Operand{Name: "x"}, HasValue: true}},
		{Quad{Op: "return", Arg1: "1"}, Return{X: Operand{Imm: 1, Const: true}, HasValue: true}},
		{Quad{Op: "alloc_global", Arg1: "g"}, Nop{}},
		{Quad{Op: "alloc", Arg1: "4", Res: "x"}, Nop{}},
	} {
		x, err := Decode(tc.q)
		if assert.NoError(t, err, "%v", tc.q) {
			assert.Equal(t, tc.exp, x, "%v", tc.q)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(Quad{Op: "**", Arg1: "a", Arg2: "b", Res: "c"})
	assert.ErrorIs(t, err, ErrUnknownOp)

	_, err = Decode(Quad{Op: "=", Arg1: "4294967296", Res: "x"})
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = Decode(Quad{Op: "+", Arg1: "a", Arg2: "b", Res: "3"})
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = Decode(Quad{Op: "param"})
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = Decode(Quad{Op: "=[]", Arg1: "arr", Res: "r"})
	assert.ErrorIs(t, err, ErrSyntax)
}
