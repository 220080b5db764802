package l2

import (
	"context"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	parser struct {
		name string
		b    []byte
	}

	// sexp is either an atom or a parenthesized list.
	sexp struct {
		pos  int
		atom string
		list []sexp
		isl  bool
	}
)

var ErrSyntax = errors.New("syntax error")

var operators = []string{"<<=", ">>=", "<-", "<=", "+=", "-=", "*=", "&=", "++", "--", "<", "=", "@"}

func ParseFile(ctx context.Context, name string) (*Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, text)
}

// Parse parses a whole L2 program: (:entry (:f args locals instr...)...).
func Parse(ctx context.Context, name string, text []byte) (p *Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse l2", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	ps := &parser{name: name, b: text}

	x, i, err := ps.sexp(0)
	if err != nil {
		return nil, err
	}

	i = ps.skipSpaces(i)
	if i != len(text) {
		return nil, ps.errorf(i, "unexpected text after program")
	}

	p, err = ps.program(x)
	if err != nil {
		return nil, err
	}

	tr.Printw("parsed", "funcs", len(p.Funcs), "entry", p.Entry)

	return p, nil
}

// ParseFunc parses a single function: (:f args locals instr...).
func ParseFunc(ctx context.Context, text string) (*Func, error) {
	ps := &parser{name: "func", b: []byte(text)}

	x, i, err := ps.sexp(0)
	if err != nil {
		return nil, err
	}

	i = ps.skipSpaces(i)
	if i != len(ps.b) {
		return nil, ps.errorf(i, "unexpected text after function")
	}

	return ps.function(x)
}

func (p *parser) program(x sexp) (prog *Program, err error) {
	if !x.isl || len(x.list) < 2 {
		return nil, p.errorf(x.pos, "program: want (:entry functions...)")
	}

	entry, err := p.label(x.list[0])
	if err != nil {
		return nil, errors.Wrap(err, "entry")
	}

	prog = &Program{Entry: entry}

	for _, fx := range x.list[1:] {
		f, err := p.function(fx)
		if err != nil {
			return nil, err
		}

		prog.Funcs = append(prog.Funcs, f)
	}

	return prog, nil
}

func (p *parser) function(x sexp) (f *Func, err error) {
	if !x.isl || len(x.list) < 3 {
		return nil, p.errorf(x.pos, "function: want (:name args locals instructions...)")
	}

	f = &Func{}

	f.Name, err = p.label(x.list[0])
	if err != nil {
		return nil, errors.Wrap(err, "function name")
	}

	f.Args, err = p.number(x.list[1])
	if err != nil {
		return nil, errors.Wrap(err, "func %v: arguments", f.Name)
	}

	f.Locals, err = p.number(x.list[2])
	if err != nil {
		return nil, errors.Wrap(err, "func %v: locals", f.Name)
	}

	for _, ix := range x.list[3:] {
		in, err := p.instr(ix)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		f.Code = append(f.Code, in)
	}

	return f, nil
}

func (p *parser) instr(x sexp) (Instr, error) {
	if !x.isl {
		l, err := p.label(x)
		if err != nil {
			return nil, errors.Wrap(err, "instruction")
		}

		return LabelDef{Label: l}, nil
	}

	l := x.list

	if len(l) == 0 {
		return nil, p.errorf(x.pos, "empty instruction")
	}

	if !l[0].isl {
		switch l[0].atom {
		case "return":
			if len(l) != 1 {
				return nil, p.errorf(x.pos, "return takes no operands")
			}

			return Return{}, nil
		case "goto":
			if len(l) != 2 {
				return nil, p.errorf(x.pos, "goto: want (goto :label)")
			}

			t, err := p.label(l[1])
			if err != nil {
				return nil, err
			}

			return Goto{Target: t}, nil
		case "cjump":
			if len(l) != 6 {
				return nil, p.errorf(x.pos, "cjump: want (cjump t cmp t :label :label)")
			}

			c, err := p.cond(l[2])
			if err != nil {
				return nil, err
			}

			tl, err := p.label(l[4])
			if err != nil {
				return nil, err
			}

			fl, err := p.label(l[5])
			if err != nil {
				return nil, err
			}

			return CJump{Cond: c, L: p.operand(l[1]), R: p.operand(l[3]), True: tl, False: fl}, nil
		case "call":
			if len(l) != 3 {
				return nil, p.errorf(x.pos, "call: want (call u N)")
			}

			n, err := p.number(l[2])
			if err != nil {
				return nil, err
			}

			callee := p.operand(l[1])

			switch Runtime(l[1].atom) {
			case Print, Allocate, ArrayError:
				callee = Runtime(l[1].atom)
			}

			return Call{Callee: callee, Args: n}, nil
		}
	}

	if len(l) < 2 || l[1].isl {
		return nil, p.errorf(x.pos, "malformed instruction")
	}

	op := l[1].atom

	if l[0].isl {
		base, off, err := p.mem(l[0])
		if err != nil {
			return nil, err
		}

		if len(l) != 3 {
			return nil, p.errorf(x.pos, "memory destination: want ((mem x M) op s)")
		}

		switch op {
		case "<-":
			return Store{Base: base, Off: off, Src: p.operand(l[2])}, nil
		case "+=", "-=":
			return MemArith{Op: Op(op), Base: base, Off: off, Src: p.operand(l[2])}, nil
		default:
			return nil, p.errorf(l[1].pos, "unexpected operator %q", op)
		}
	}

	dst := p.operand(l[0])

	switch op {
	case "++", "--":
		if len(l) != 2 {
			return nil, p.errorf(x.pos, "%v takes no operands", op)
		}

		if op == "++" {
			return Inc{Dst: dst}, nil
		}

		return Dec{Dst: dst}, nil
	case "<-":
		switch {
		case len(l) == 3 && l[2].isl:
			return p.moveFrom(dst, l[2])
		case len(l) == 3:
			return Mov{Dst: dst, Src: p.operand(l[2])}, nil
		case len(l) == 5:
			c, err := p.cond(l[3])
			if err != nil {
				return nil, err
			}

			return Cmp{Dst: dst, Cond: c, L: p.operand(l[2]), R: p.operand(l[4])}, nil
		}
	case "@":
		if len(l) != 5 {
			return nil, p.errorf(x.pos, "@: want (w @ w w E)")
		}

		sc, err := p.number(l[4])
		if err != nil {
			return nil, err
		}

		return Lea{Dst: dst, Base: p.operand(l[2]), Index: p.operand(l[3]), Scale: sc}, nil
	case "<<=", ">>=":
		if len(l) == 3 {
			return Shift{Op: Op(op), Dst: dst, Src: p.operand(l[2])}, nil
		}
	case "+=", "-=", "*=", "&=":
		if len(l) != 3 {
			break
		}

		if !l[2].isl {
			return Arith{Op: Op(op), Dst: dst, Src: p.operand(l[2])}, nil
		}

		base, off, err := p.mem(l[2])
		if err != nil {
			return nil, err
		}

		return ArithLoad{Op: Op(op), Dst: dst, Base: base, Off: off}, nil
	default:
		return nil, p.errorf(l[1].pos, "unexpected operator %q", op)
	}

	return nil, p.errorf(x.pos, "malformed %q instruction", op)
}

func (p *parser) moveFrom(dst Operand, x sexp) (Instr, error) {
	if len(x.list) == 2 && !x.list[0].isl && x.list[0].atom == "stack-arg" {
		off, err := p.number(x.list[1])
		if err != nil {
			return nil, err
		}

		return StackArg{Dst: dst, Off: off}, nil
	}

	base, off, err := p.mem(x)
	if err != nil {
		return nil, err
	}

	return Load{Dst: dst, Base: base, Off: off}, nil
}

func (p *parser) mem(x sexp) (base Operand, off int64, err error) {
	if len(x.list) != 3 || x.list[0].isl || x.list[0].atom != "mem" {
		return nil, 0, p.errorf(x.pos, "want (mem x M)")
	}

	off, err = p.number(x.list[2])
	if err != nil {
		return nil, 0, err
	}

	return p.operand(x.list[1]), off, nil
}

func (p *parser) operand(x sexp) Operand {
	if x.isl {
		// Validate reports it with instruction context.
		return nil
	}

	a := x.atom

	if r, ok := ParseReg(a); ok {
		return r
	}

	if a[0] == ':' {
		return Label(a[1:])
	}

	if n, err := strconv.ParseInt(a, 10, 64); err == nil {
		return Num(n)
	}

	return Var(a)
}

func (p *parser) label(x sexp) (Label, error) {
	if x.isl || len(x.atom) < 2 || x.atom[0] != ':' {
		return "", p.errorf(x.pos, "want label")
	}

	return Label(x.atom[1:]), nil
}

func (p *parser) number(x sexp) (int64, error) {
	if x.isl {
		return 0, p.errorf(x.pos, "want number")
	}

	n, err := strconv.ParseInt(x.atom, 10, 64)
	if err != nil {
		return 0, p.errorf(x.pos, "want number: %q", x.atom)
	}

	return n, nil
}

func (p *parser) cond(x sexp) (Cond, error) {
	if !x.isl {
		switch c := Cond(x.atom); c {
		case Lt, Le, Eq:
			return c, nil
		}
	}

	return "", p.errorf(x.pos, "want comparison")
}

func (p *parser) sexp(st int) (x sexp, i int, err error) {
	i = p.skipSpaces(st)

	if i == len(p.b) {
		return x, i, p.errorf(i, "unexpected end of input")
	}

	x.pos = i

	switch p.b[i] {
	case ')':
		return x, i, p.errorf(i, "unexpected )")
	case '(':
		x.isl = true
		i++

		for {
			i = p.skipSpaces(i)

			if i == len(p.b) {
				return x, i, p.errorf(x.pos, "unclosed (")
			}

			if p.b[i] == ')' {
				return x, i + 1, nil
			}

			var sub sexp

			sub, i, err = p.sexp(i)
			if err != nil {
				return x, i, err
			}

			x.list = append(x.list, sub)
		}
	}

	end := p.atom(i)
	if end == i {
		return x, i, p.errorf(i, "unexpected character %q", p.b[i])
	}

	x.atom = string(p.b[i:end])

	return x, end, nil
}

// atom returns the end of the token starting at st.
func (p *parser) atom(st int) int {
	b := p.b
	i := st

	c := b[i]

	switch {
	case c == ':' || isIdent(c):
		i++

		for i < len(b) {
			switch {
			case isIdent(b[i]):
				i++
			case b[i] == '-' && i+1 < len(b) && isLetter(b[i+1]):
				// array-error, stack-arg
				i += 2
			default:
				return i
			}
		}

		return i
	case (c == '-' || c == '+') && i+1 < len(b) && isDigit(b[i+1]):
		i++
		fallthrough
	case isDigit(c):
		for i < len(b) && isDigit(b[i]) {
			i++
		}

		return i
	}

	for _, op := range operators {
		if len(b)-i >= len(op) && string(b[i:i+len(op)]) == op {
			return i + len(op)
		}
	}

	return st
}

func (p *parser) skipSpaces(i int) int {
	for i < len(p.b) {
		switch c := p.b[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ';':
			for i < len(p.b) && p.b[i] != '\n' {
				i++
			}
		default:
			return i
		}
	}

	return i
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	line, col := 1, 1

	for _, c := range p.b[:pos] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	args = append([]any{p.name, line, col}, args...)

	return errors.Wrap(ErrSyntax, "%v:%d:%d: "+format, args...)
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isIdent(c byte) bool  { return isLetter(c) || isDigit(c) }
