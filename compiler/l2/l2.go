// Package l2 defines the register-transfer language the allocator works on.
//
// Operands and instructions are closed sum types.
// An instruction is a value: rewriting passes build new instructions
// with MapOperands instead of changing them in place.
package l2

import (
	"strconv"
)

type (
	Operand interface {
		String() string

		operand()
	}

	// Reg is a physical machine register.
	Reg int8

	// Var is a symbolic variable to be assigned a register.
	Var string

	Num int64

	// Label is a code label name without the leading colon.
	Label string

	// Runtime is a function provided by the language runtime.
	Runtime string

	Instr interface {
		String() string

		instr()
	}

	// Op is an in-place arithmetic, bitwise or shift operator.
	Op string

	Cond string

	Mov struct {
		Dst Operand
		Src Operand
	}

	Load struct {
		Dst  Operand
		Base Operand
		Off  int64
	}

	StackArg struct {
		Dst Operand
		Off int64
	}

	Store struct {
		Base Operand
		Off  int64
		Src  Operand
	}

	Cmp struct {
		Dst  Operand
		Cond Cond
		L, R Operand
	}

	Arith struct {
		Op  Op
		Dst Operand
		Src Operand
	}

	ArithLoad struct {
		Op   Op
		Dst  Operand
		Base Operand
		Off  int64
	}

	MemArith struct {
		Op   Op
		Base Operand
		Off  int64
		Src  Operand
	}

	Shift struct {
		Op  Op
		Dst Operand
		Src Operand
	}

	Lea struct {
		Dst   Operand
		Base  Operand
		Index Operand
		Scale int64
	}

	Inc struct {
		Dst Operand
	}

	Dec struct {
		Dst Operand
	}

	CJump struct {
		Cond  Cond
		L, R  Operand
		True  Label
		False Label
	}

	Goto struct {
		Target Label
	}

	LabelDef struct {
		Label Label
	}

	Return struct{}

	Call struct {
		Callee Operand
		Args   int64
	}

	Func struct {
		Name   Label
		Args   int64
		Locals int64

		Code []Instr
	}

	Program struct {
		Entry Label
		Funcs []*Func
	}
)

const (
	Add Op = "+="
	Sub Op = "-="
	Mul Op = "*="
	And Op = "&="
	Shl Op = "<<="
	Shr Op = ">>="
)

const (
	Lt Cond = "<"
	Le Cond = "<="
	Eq Cond = "="
)

const (
	Print      Runtime = "print"
	Allocate   Runtime = "allocate"
	ArrayError Runtime = "array-error"
)

func (Reg) operand()     {}
func (Var) operand()     {}
func (Num) operand()     {}
func (Label) operand()   {}
func (Runtime) operand() {}

func (v Var) String() string     { return string(v) }
func (n Num) String() string     { return strconv.FormatInt(int64(n), 10) }
func (l Label) String() string   { return ":" + string(l) }
func (r Runtime) String() string { return string(r) }

func (Mov) instr()       {}
func (Load) instr()      {}
func (StackArg) instr()  {}
func (Store) instr()     {}
func (Cmp) instr()       {}
func (Arith) instr()     {}
func (ArithLoad) instr() {}
func (MemArith) instr()  {}
func (Shift) instr()     {}
func (Lea) instr()       {}
func (Inc) instr()       {}
func (Dec) instr()       {}
func (CJump) instr()     {}
func (Goto) instr()      {}
func (LabelDef) instr()  {}
func (Return) instr()    {}
func (Call) instr()      {}

// Copy returns a function sharing no mutable state with f.
// Instructions are values and are shared.
func (f *Func) Copy() *Func {
	c := *f
	c.Code = append([]Instr(nil), f.Code...)

	return &c
}

// Vars returns every variable f references in order of first appearance.
func (f *Func) Vars() []Var {
	seen := map[Var]struct{}{}
	var vars []Var

	for _, in := range f.Code {
		for _, op := range Operands(in) {
			v, ok := op.(Var)
			if !ok {
				continue
			}

			if _, ok := seen[v]; ok {
				continue
			}

			seen[v] = struct{}{}
			vars = append(vars, v)
		}
	}

	return vars
}

// Func returns the function named name or nil.
func (p *Program) Func(name Label) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}
