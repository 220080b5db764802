package l2

// MapOperands returns a copy of in with every operand replaced by f(operand).
// Label targets of jumps and label definitions are not operands.
func MapOperands(in Instr, f func(Operand) Operand) Instr {
	switch x := in.(type) {
	case Mov:
		x.Dst = f(x.Dst)
		x.Src = f(x.Src)
		return x
	case Load:
		x.Dst = f(x.Dst)
		x.Base = f(x.Base)
		return x
	case StackArg:
		x.Dst = f(x.Dst)
		return x
	case Store:
		x.Base = f(x.Base)
		x.Src = f(x.Src)
		return x
	case Cmp:
		x.Dst = f(x.Dst)
		x.L = f(x.L)
		x.R = f(x.R)
		return x
	case Arith:
		x.Dst = f(x.Dst)
		x.Src = f(x.Src)
		return x
	case ArithLoad:
		x.Dst = f(x.Dst)
		x.Base = f(x.Base)
		return x
	case MemArith:
		x.Base = f(x.Base)
		x.Src = f(x.Src)
		return x
	case Shift:
		x.Dst = f(x.Dst)
		x.Src = f(x.Src)
		return x
	case Lea:
		x.Dst = f(x.Dst)
		x.Base = f(x.Base)
		x.Index = f(x.Index)
		return x
	case Inc:
		x.Dst = f(x.Dst)
		return x
	case Dec:
		x.Dst = f(x.Dst)
		return x
	case CJump:
		x.L = f(x.L)
		x.R = f(x.R)
		return x
	case Call:
		x.Callee = f(x.Callee)
		return x
	case Goto, LabelDef, Return:
		return x
	default:
		panic(in)
	}
}

// Operands lists the operands of in in field order.
func Operands(in Instr) (ops []Operand) {
	MapOperands(in, func(op Operand) Operand {
		if op != nil {
			ops = append(ops, op)
		}

		return op
	})

	return ops
}

// References reports whether op occurs anywhere in in.
func References(in Instr, op Operand) bool {
	for _, x := range Operands(in) {
		if x == op {
			return true
		}
	}

	return false
}

// Dest returns the operand in writes as a whole, if any.
// Memory destinations are not included: the base register is only read.
func Dest(in Instr) (Operand, bool) {
	switch x := in.(type) {
	case Mov:
		return x.Dst, true
	case Load:
		return x.Dst, true
	case StackArg:
		return x.Dst, true
	case Cmp:
		return x.Dst, true
	case Arith:
		return x.Dst, true
	case ArithLoad:
		return x.Dst, true
	case Shift:
		return x.Dst, true
	case Lea:
		return x.Dst, true
	case Inc:
		return x.Dst, true
	case Dec:
		return x.Dst, true
	default:
		return nil, false
	}
}

// IsNode reports whether op takes part in liveness and interference:
// a variable or a register other than the stack pointer.
func IsNode(op Operand) bool {
	switch op := op.(type) {
	case Var:
		return true
	case Reg:
		return op != RSP
	default:
		return false
	}
}
