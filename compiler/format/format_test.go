package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/tacc/compiler/frame"
	"github.com/slowlang/tacc/compiler/tac"
)

func TestCode(t *testing.T) {
	code, err := tac.ParseCode([]byte(`
(label,func_f,,)
(+,a,1,t1)
(label,end_f,,)
(label,func_main,,)
(call,f,,)
(label,end_main,,)
`))
	require.NoError(t, err)

	assert.Equal(t, `   0  (label,func_f,,)
	   1  (+,a,1,t1)
   2  (label,end_f,,)

   3  (label,func_main,,)
	   4  (call,f,,)
   5  (label,end_main,,)
`, string(Code(nil, code)))
}

func TestFrames(t *testing.T) {
	b := Frames(nil, []frame.Layout{
		{Name: "f", Leaf: true, TotalWords: 4, LocalDataWords: 4},
		{Name: "main", TotalWords: 10, OutgoingArgSlots: 5, LocalDataWords: 4, ReturnAddrSlots: 1},
	})

	assert.Equal(t, ""+
		"func              leaf total   out local saved    ra\n"+
		"f                  yes     4     0     4     0     0\n"+
		"main                no    10     5     4     0     1\n", string(b))
}
