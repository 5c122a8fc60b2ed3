package frame

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

func TestCompute(t *testing.T) {
	l := Compute(Input{Name: "f", LocalWords: 12, MaxCalleeParams: 2})

	assert.Equal(t, 4, l.CalleeSavedCount)
	assert.Equal(t, 4, l.OutgoingArgSlots)
	assert.Equal(t, 1, l.ReturnAddrSlots)
	assert.Equal(t, 26, l.TotalWords)
	assert.Zero(t, l.TotalWords%2)

	assert.Equal(t, 16, l.LocalOffset(0))
	assert.Equal(t, 16+4*12, l.SaveOffset(0))
	assert.Equal(t, 100, l.ReturnAddrOffset())
	assert.Equal(t, 104, l.ParamOffset(0))
	assert.Equal(t, 12, l.OutgoingOffset(3))
	assert.Equal(t, 104, l.Bytes())

	l = Compute(Input{Name: "main", Entry: true, Leaf: true, LocalWords: 12})
	assert.Zero(t, l.CalleeSavedCount)
	assert.Equal(t, 12, l.TotalWords)

	l = Compute(Input{Name: "leaf", Leaf: true, LocalWords: 4})
	assert.Equal(t, Layout{Name: "leaf", Leaf: true, TotalWords: 4, LocalDataWords: 4}, l)

	l = Compute(Input{Name: "g", Leaf: false, LocalWords: 4, MaxCalleeParams: 5})
	assert.Equal(t, 5, l.OutgoingArgSlots)
	assert.Equal(t, 10, l.TotalWords)

	l = Compute(Input{Name: "big", Leaf: true, LocalWords: 30})
	assert.Equal(t, 8, l.CalleeSavedCount)
	assert.Equal(t, 46, l.TotalWords)
}

func testTable(t *testing.T) sym.Table {
	s := sym.NewScope()

	for _, x := range []*sym.Symbol{
		{Name: "g", Size: 4},
		{Name: "sum", Kind: sym.Func, Params: []sym.Var{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}},
		{Name: "f", Kind: sym.Func, Params: []sym.Var{{Name: "n"}}, Locals: []sym.Var{
			{Name: "i"}, {Name: "j"}, {Name: "buf", Size: 24, IsArray: true},
		}},
		{Name: "main", Kind: sym.Func},
	} {
		require.NoError(t, s.Insert(x))
	}

	return s
}

var testCode = []tac.Quad{
	{Op: "label", Arg1: "func_f"},
	{Op: "param", Arg1: "n"},
	{Op: "call", Arg1: "f", Res: "r"},
	{Op: "return", Res: "r"},
	{Op: "label", Arg1: "end_f"},
	{Op: "label", Arg1: "func_main"},
	{Op: "param", Arg1: "1"},
	{Op: "param", Arg1: "2"},
	{Op: "param", Arg1: "3"},
	{Op: "param", Arg1: "4"},
	{Op: "param", Arg1: "5"},
	{Op: "call", Arg1: "sum"},
	{Op: "label", Arg1: "end_main"},
	{Op: "label", Arg1: "func_sum"},
	{Op: "return", Arg1: "a"},
	{Op: "label", Arg1: "end_sum"},
}

func TestPlan(t *testing.T) {
	ctx := context.Background()

	tab, err := Plan(ctx, testTable(t), testCode, Options{
		Entry:                 "main",
		PlaceholderLocalWords: 4,
		CountLocals:           true,
	})
	require.NoError(t, err)
	require.Len(t, tab.Layouts(), 3)

	sum, err := tab.Find("sum")
	require.NoError(t, err)
	assert.True(t, sum.Leaf)
	assert.Equal(t, 4, sum.TotalWords)

	f, err := tab.Find("f")
	require.NoError(t, err)
	assert.False(t, f.Leaf)
	assert.Equal(t, 4+2+6, f.LocalDataWords)
	assert.Equal(t, 4, f.OutgoingArgSlots)
	assert.Equal(t, 4, f.CalleeSavedCount)
	assert.Equal(t, 1+12+8+4+1, f.TotalWords)

	main, err := tab.Find("main")
	require.NoError(t, err)
	assert.False(t, main.Leaf)
	assert.Equal(t, 5, main.OutgoingArgSlots)
	assert.Zero(t, main.CalleeSavedCount)

	_, err = tab.Find("nope")
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestPlanAssumeLeaf(t *testing.T) {
	ctx := context.Background()

	tab, err := Plan(ctx, testTable(t), testCode, Options{
		Entry:                 "main",
		AssumeLeaf:            true,
		PlaceholderLocalWords: 4,
	})
	require.NoError(t, err)

	for _, l := range tab.Layouts() {
		assert.True(t, l.Leaf, "%v", l.Name)
		assert.Zero(t, l.OutgoingArgSlots, "%v", l.Name)
		assert.Equal(t, 4, l.LocalDataWords, "%v", l.Name)
		assert.Equal(t, 4, l.TotalWords, "%v", l.Name)
	}
}
