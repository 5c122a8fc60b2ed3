package tac

import (
	"bufio"
	"bytes"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Quad is one three-address instruction as produced by the front end.
	// Unused fields are empty strings.
	Quad struct {
		Op   string `yaml:"op"`
		Arg1 string `yaml:"arg1"`
		Arg2 string `yaml:"arg2"`
		Res  string `yaml:"res"`

		Index int `yaml:"-"`
	}
)

// Label prefixes marking procedure boundaries.
const (
	FuncPrefix = "func_"
	EndPrefix  = "end_"
)

var ErrSyntax = errors.New("quad syntax")

func (q Quad) String() string {
	return "(" + q.Op + "," + q.Arg1 + "," + q.Arg2 + "," + q.Res + ")"
}

func (q Quad) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, q.String())
}

// Refers reports whether any operand of q names the variable.
func (q Quad) Refers(name string) bool {
	if name == "" {
		return false
	}

	switch q.Op {
	case "label", "goto":
		return false
	case "ifFalseGoto", "ifGoto":
		return q.Arg1 == name
	case "call":
		return q.Res == name
	}

	return q.Arg1 == name || q.Arg2 == name || q.Res == name
}

// Number assigns sequential indexes and returns the instruction count.
func Number(code []Quad) int {
	for i := range code {
		code[i].Index = i
	}

	return len(code)
}

// ParseQuad parses "(op,arg1,arg2,res)".
// Surrounding spaces of each field are ignored.
func ParseQuad(s string) (q Quad, err error) {
	s = strings.TrimSpace(s)

	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return q, errors.Wrap(ErrSyntax, "%q: want parentheses", s)
	}

	f := strings.Split(s[1:len(s)-1], ",")
	if len(f) != 4 {
		return q, errors.Wrap(ErrSyntax, "%q: want 4 fields, got %d", s, len(f))
	}

	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}

	q = Quad{Op: f[0], Arg1: f[1], Arg2: f[2], Res: f[3]}

	if q.Op == "" {
		return q, errors.Wrap(ErrSyntax, "%q: empty opcode", s)
	}

	return q, nil
}

// ParseCode parses one quad per line and numbers the result.
// Empty lines and lines starting with '#' are skipped.
func ParseCode(text []byte) (code []Quad, err error) {
	sc := bufio.NewScanner(bytes.NewReader(text))

	line := 0

	for sc.Scan() {
		line++

		l := strings.TrimSpace(sc.Text())
		if l == "" || l[0] == '#' {
			continue
		}

		q, err := ParseQuad(l)
		if err != nil {
			return nil, errors.Wrap(err, "line %d", line)
		}

		code = append(code, q)
	}

	if err = sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	Number(code)

	return code, nil
}
