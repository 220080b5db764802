package l2

import (
	"github.com/nikandfor/hacked/hfmt"
)

func AppendProgram(b []byte, p *Program) []byte {
	b = hfmt.Appendf(b, "(%v\n", p.Entry)

	for _, f := range p.Funcs {
		b = AppendFunc(b, f)
	}

	b = append(b, ")\n"...)

	return b
}

func AppendFunc(b []byte, f *Func) []byte {
	b = hfmt.Appendf(b, "  (%v %d %d\n", f.Name, f.Args, f.Locals)

	for _, in := range f.Code {
		b = append(b, "    "...)
		b = AppendInstr(b, in)
		b = append(b, '\n')
	}

	b = append(b, "  )\n"...)

	return b
}

func AppendInstr(b []byte, in Instr) []byte {
	switch x := in.(type) {
	case Mov:
		return hfmt.Appendf(b, "(%v <- %v)", x.Dst, x.Src)
	case Load:
		return hfmt.Appendf(b, "(%v <- (mem %v %d))", x.Dst, x.Base, x.Off)
	case StackArg:
		return hfmt.Appendf(b, "(%v <- (stack-arg %d))", x.Dst, x.Off)
	case Store:
		return hfmt.Appendf(b, "((mem %v %d) <- %v)", x.Base, x.Off, x.Src)
	case Cmp:
		return hfmt.Appendf(b, "(%v <- %v %v %v)", x.Dst, x.L, x.Cond, x.R)
	case Arith:
		return hfmt.Appendf(b, "(%v %v %v)", x.Dst, x.Op, x.Src)
	case ArithLoad:
		return hfmt.Appendf(b, "(%v %v (mem %v %d))", x.Dst, x.Op, x.Base, x.Off)
	case MemArith:
		return hfmt.Appendf(b, "((mem %v %d) %v %v)", x.Base, x.Off, x.Op, x.Src)
	case Shift:
		return hfmt.Appendf(b, "(%v %v %v)", x.Dst, x.Op, x.Src)
	case Lea:
		return hfmt.Appendf(b, "(%v @ %v %v %d)", x.Dst, x.Base, x.Index, x.Scale)
	case Inc:
		return hfmt.Appendf(b, "(%v++)", x.Dst)
	case Dec:
		return hfmt.Appendf(b, "(%v--)", x.Dst)
	case CJump:
		return hfmt.Appendf(b, "(cjump %v %v %v %v %v)", x.L, x.Cond, x.R, x.True, x.False)
	case Goto:
		return hfmt.Appendf(b, "(goto %v)", x.Target)
	case LabelDef:
		return hfmt.Appendf(b, "%v", x.Label)
	case Return:
		return append(b, "(return)"...)
	case Call:
		return hfmt.Appendf(b, "(call %v %d)", x.Callee, x.Args)
	default:
		panic(in)
	}
}

func (p *Program) String() string { return string(AppendProgram(nil, p)) }
func (f *Func) String() string    { return string(AppendFunc(nil, f)) }

func (x Mov) String() string       { return string(AppendInstr(nil, x)) }
func (x Load) String() string      { return string(AppendInstr(nil, x)) }
func (x StackArg) String() string  { return string(AppendInstr(nil, x)) }
func (x Store) String() string     { return string(AppendInstr(nil, x)) }
func (x Cmp) String() string       { return string(AppendInstr(nil, x)) }
func (x Arith) String() string     { return string(AppendInstr(nil, x)) }
func (x ArithLoad) String() string { return string(AppendInstr(nil, x)) }
func (x MemArith) String() string  { return string(AppendInstr(nil, x)) }
func (x Shift) String() string     { return string(AppendInstr(nil, x)) }
func (x Lea) String() string       { return string(AppendInstr(nil, x)) }
func (x Inc) String() string       { return string(AppendInstr(nil, x)) }
func (x Dec) String() string       { return string(AppendInstr(nil, x)) }
func (x CJump) String() string     { return string(AppendInstr(nil, x)) }
func (x Goto) String() string      { return string(AppendInstr(nil, x)) }
func (x LabelDef) String() string  { return string(AppendInstr(nil, x)) }
func (x Return) String() string    { return string(AppendInstr(nil, x)) }
func (x Call) String() string      { return string(AppendInstr(nil, x)) }
