package l2

import "tlog.app/go/tlog/tlwire"

const (
	RAX Reg = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	RSP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	NumRegs
)

var regNames = [NumRegs]string{
	RAX: "rax",
	RBX: "rbx",
	RCX: "rcx",
	RDX: "rdx",
	RSI: "rsi",
	RDI: "rdi",
	RBP: "rbp",
	RSP: "rsp",
	R8:  "r8",
	R9:  "r9",
	R10: "r10",
	R11: "r11",
	R12: "r12",
	R13: "r13",
	R14: "r14",
	R15: "r15",
}

func ParseReg(s string) (Reg, bool) {
	for r, n := range regNames {
		if n == s {
			return Reg(r), true
		}
	}

	return -1, false
}

func (r Reg) String() string {
	if r < 0 || r >= NumRegs {
		return "reg(" + Num(r).String() + ")"
	}

	return regNames[r]
}

func (r Reg) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, r.String())
}
