package asm

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Reg is a register the allocator may hand out.
	// Registers are ordered by allocation priority.
	Reg int

	// Buffer collects the listing one line at a time.
	Buffer struct {
		lines []string
		b     []byte
	}
)

const (
	T0 Reg = iota
	T1
	T2
	T3
	T4
	T5
	T6
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7

	NumRegs

	NoReg Reg = -1
)

// Registers outside of the pool.
const (
	Zero = "zero"
	RA   = "ra"
	SP   = "sp"
	V0   = "a0"

	// Literal operands and address arithmetic.
	Scratch1 = "a6"
	Scratch2 = "a7"
	Addr     = "a7"
)

const (
	WordSize  = 4
	WordShift = 2

	ArgRegs     = 4
	CalleeSaved = 8
)

var names = [NumRegs]string{
	"t0", "t1", "t2", "t3", "t4", "t5", "t6",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
}

func (r Reg) String() string {
	if r < 0 || r >= NumRegs {
		return string(hfmt.Appendf(nil, "r%d", int(r)))
	}

	return names[r]
}

func (r Reg) CallerSaved() bool { return r >= T0 && r < S0 }

// SavedIndex returns k for the s_k register or -1.
func (r Reg) SavedIndex() int {
	if r < S0 || r >= NumRegs {
		return -1
	}

	return int(r - S0)
}

func (r Reg) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, r.String())
}

func Saved(k int) Reg { return S0 + Reg(k) }

func Arg(i int) string { return string(hfmt.Appendf(nil, "a%d", i)) }

func (b *Buffer) Emit(format string, args ...any) {
	b.b = hfmt.Appendf(b.b[:0], format, args...)

	b.lines = append(b.lines, string(b.b))
}

func (b *Buffer) Line(s string) {
	b.lines = append(b.lines, s)
}

func (b *Buffer) Len() int { return len(b.lines) }

func (b *Buffer) Lines() []string { return b.lines }

func (b *Buffer) Since(n int) []string { return b.lines[n:] }

// AppendText appends the listing.
// Directives and labels start at the line beginning, instructions are indented.
func (b *Buffer) AppendText(dst []byte) []byte {
	for _, l := range b.lines {
		if !Unindented(l) {
			dst = append(dst, '\t')
		}

		dst = append(dst, l...)
		dst = append(dst, '\n')
	}

	return dst
}

func Unindented(l string) bool {
	if l == "" || l[0] == '.' {
		return true
	}

	for i := 0; i < len(l); i++ {
		if l[i] == ':' {
			return true
		}
	}

	return false
}
