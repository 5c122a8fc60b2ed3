package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tacc/compiler/back"
	"github.com/slowlang/tacc/compiler/frame"
	"github.com/slowlang/tacc/compiler/sym"
)

const factUnit = `
globals:
  - name: res
  - name: arr
    size: 40
    array: true
funcs:
  - name: fact
    params:
      - name: n
  - name: main
code: |
  # factorial
  (label,func_fact,,)
  (<=,n,1,t1)
  (ifFalseGoto,t1,,L1)
  (return,,,1)
  (label,L1,,)
  (-,n,1,t2)
  (param,t2,,)
  (call,fact,,t3)
  (*,n,t3,t4)
  (return,,,t4)
  (label,end_fact,,)

  (label,func_main,,)
  (param,5,,)
  (call,fact,,t5)
  (=,t5,,res)
  (return,,,)
  (label,end_main,,)
`

func TestParseUnit(t *testing.T) {
	p, err := ParseUnit(context.Background(), "fact.yaml", []byte(factUnit))
	require.NoError(t, err)

	assert.Len(t, p.Code, 17)
	assert.Equal(t, 16, p.Code[16].Index)
	assert.Equal(t, "(label,func_fact,,)", p.Code[0].String())

	res, ok := p.Table.Lookup("res")
	require.True(t, ok)
	assert.Equal(t, &sym.Symbol{Name: "res", Kind: sym.Variable, Type: "int", Size: 4}, res)

	arr, ok := p.Table.Lookup("arr")
	require.True(t, ok)
	assert.True(t, arr.IsArray)
	assert.Equal(t, 10, arr.Words())

	fact, ok := p.Table.Lookup("fact")
	require.True(t, ok)
	assert.Equal(t, sym.Func, fact.Kind)
	assert.Equal(t, []sym.Var{{Name: "n", Type: "int", Size: 4}}, fact.Params)
}

func TestParseUnitErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		text string
		err  error
	}{
		{"yaml", "globals: [", nil},
		{"redefined", "globals: [{name: x}]\nfuncs: [{name: x}]", sym.ErrRedefined},
		{"param_twice", "funcs: [{name: f, params: [{name: a}, {name: a}]}]", sym.ErrRedefined},
		{"no_name", "globals: [{size: 4}]", nil},
		{"negative", "globals: [{name: x, size: -4}]", nil},
		{"bad_quad", "code: |\n  (label,func_main,,\n", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseUnit(ctx, tc.name, []byte(tc.text))
			require.Error(t, err)

			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "fact.yaml")

	require.NoError(t, os.WriteFile(name, []byte(factUnit), 0o644))

	l, err := CompileFile(context.Background(), name, back.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, l.Warnings)

	lines := l.Lines()

	assert.Equal(t, []string{".data", "res: .word 0", "arr: .space 40", ".text", "fact:"}, lines[:5])
	assert.Contains(t, lines, "jal fact")
	assert.Contains(t, lines, "sw t1, res")

	assert.Equal(t, []frame.Layout{
		{Name: "fact", TotalWords: 10, OutgoingArgSlots: 4, LocalDataWords: 4, ReturnAddrSlots: 1},
		{Name: "main", TotalWords: 10, OutgoingArgSlots: 4, LocalDataWords: 4, ReturnAddrSlots: 1},
	}, l.Frames)

	_, err = CompileFile(context.Background(), filepath.Join(dir, "missing.yaml"), back.DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFrames(t *testing.T) {
	p, err := ParseUnit(context.Background(), "fact.yaml", []byte(factUnit))
	require.NoError(t, err)

	opts := back.DefaultOptions()
	opts.AssumeLeaf = true

	fs, err := Frames(context.Background(), p, opts)
	require.NoError(t, err)

	assert.Equal(t, []frame.Layout{
		{Name: "fact", Leaf: true, TotalWords: 4, LocalDataWords: 4},
		{Name: "main", Leaf: true, TotalWords: 4, LocalDataWords: 4},
	}, fs)
}

func TestLoadOptions(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tacc.toml")

	require.NoError(t, os.WriteFile(name, []byte(`
entry = "start"
flush_each_instr = true
delay_slots = true
placeholder_local_words = 2
`), 0o644))

	opts, err := LoadOptions(name, back.DefaultOptions())
	require.NoError(t, err)

	exp := back.DefaultOptions()
	exp.Entry = "start"
	exp.FlushEachInstr = true
	exp.DelaySlots = true
	exp.PlaceholderLocalWords = 2

	assert.Equal(t, exp, opts)

	require.NoError(t, os.WriteFile(name, []byte("entry = "), 0o644))

	_, err = LoadOptions(name, back.DefaultOptions())
	assert.Error(t, err)
}
