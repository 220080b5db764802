package l2

import (
	"tlog.app/go/errors"
)

var ErrMalformed = errors.New("malformed instruction")

// Validate checks every instruction uses only operand kinds its role supports.
func (f *Func) Validate() error {
	for i, in := range f.Code {
		if err := validate(in); err != nil {
			return errors.Wrap(ErrMalformed, "func %v: instr %d %T %v: %v", f.Name, i, in, in, err)
		}
	}

	return nil
}

func validate(in Instr) error {
	switch x := in.(type) {
	case Mov:
		return all(w(x.Dst, "dst"), s(x.Src, "src"))
	case Load:
		return all(w(x.Dst, "dst"), xreg(x.Base, "base"))
	case StackArg:
		return w(x.Dst, "dst")
	case Store:
		return all(xreg(x.Base, "base"), s(x.Src, "src"))
	case Cmp:
		return all(cond(x.Cond), w(x.Dst, "dst"), t(x.L, "left"), t(x.R, "right"))
	case Arith:
		return all(op(x.Op, Add, Sub, Mul, And), w(x.Dst, "dst"), t(x.Src, "src"))
	case ArithLoad:
		return all(op(x.Op, Add, Sub), w(x.Dst, "dst"), xreg(x.Base, "base"))
	case MemArith:
		return all(op(x.Op, Add, Sub), xreg(x.Base, "base"), t(x.Src, "src"))
	case Shift:
		return all(op(x.Op, Shl, Shr), w(x.Dst, "dst"), shiftCount(x.Src))
	case Lea:
		return all(w(x.Dst, "dst"), w(x.Base, "base"), w(x.Index, "index"), scale(x.Scale))
	case Inc:
		return w(x.Dst, "dst")
	case Dec:
		return w(x.Dst, "dst")
	case CJump:
		return all(cond(x.Cond), t(x.L, "left"), t(x.R, "right"), label(x.True), label(x.False))
	case Goto:
		return label(x.Target)
	case LabelDef:
		return label(x.Label)
	case Return:
		return nil
	case Call:
		return all(callee(x.Callee), args(x.Args))
	default:
		return errors.New("unsupported instruction %T", in)
	}
}

func all(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// w: a writable register or a variable.
func w(x Operand, role string) error {
	switch x := x.(type) {
	case Var:
		if x == "" {
			return errors.New("%v: empty variable name", role)
		}

		return nil
	case Reg:
		if x == RSP {
			return errors.New("%v: stack pointer is not writable", role)
		}

		if x < 0 || x >= NumRegs {
			return errors.New("%v: bad register %d", role, int(x))
		}

		return nil
	}

	return errors.New("%v: want register or variable, got %T", role, x)
}

// xreg: w or the stack pointer.
func xreg(x Operand, role string) error {
	if x == RSP {
		return nil
	}

	return w(x, role)
}

// t: x or a number.
func t(x Operand, role string) error {
	if _, ok := x.(Num); ok {
		return nil
	}

	return xreg(x, role)
}

// s: t or a label.
func s(x Operand, role string) error {
	if l, ok := x.(Label); ok {
		return label(l)
	}

	return t(x, role)
}

func shiftCount(x Operand) error {
	switch x := x.(type) {
	case Num, Var:
		return nil
	case Reg:
		if x == RCX {
			return nil
		}
	}

	return errors.New("shift count: want number, variable or rcx, got %v", x)
}

func callee(x Operand) error {
	switch x := x.(type) {
	case Runtime:
		switch x {
		case Print, Allocate, ArrayError:
			return nil
		}

		return errors.New("callee: unknown runtime function %q", string(x))
	case Label:
		return label(x)
	}

	return w(x, "callee")
}

func label(l Label) error {
	if l == "" {
		return errors.New("empty label")
	}

	return nil
}

func cond(c Cond) error {
	switch c {
	case Lt, Le, Eq:
		return nil
	}

	return errors.New("bad comparison %q", string(c))
}

func op(o Op, allowed ...Op) error {
	for _, a := range allowed {
		if o == a {
			return nil
		}
	}

	return errors.New("bad operator %q", string(o))
}

func scale(e int64) error {
	switch e {
	case 0, 2, 4, 8:
		return nil
	}

	return errors.New("scale: want 0, 2, 4 or 8, got %d", e)
}

func args(n int64) error {
	if n < 0 {
		return errors.New("negative argument count %d", n)
	}

	return nil
}
