package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/l2"
	"github.com/slowlang/l2c/compiler/regalloc"
)

// CompileFile reads the L2 program from the named file and compiles it.
// Syntax errors are reported with the file name and position.
func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read %v", name)
	}

	tlog.SpanFromContext(ctx).V("compile").Printw("read source", "name", name, "size", len(text))

	return Compile(ctx, name, text)
}

// Compile translates L2 text into L1 text using the System V convention.
func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	p, err := l2.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	p, err = CompileProgram(ctx, abi.SysV(), p)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return l2.AppendProgram(nil, p), nil
}

// CompileProgram allocates registers for every function of p
// and lowers stack arguments. p is not modified.
func CompileProgram(ctx context.Context, conv *abi.Conv, p *l2.Program) (r *l2.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile program", "entry", p.Entry, "funcs", len(p.Funcs))
	defer tr.Finish("err", &err)

	if p.Func(p.Entry) == nil {
		return nil, errors.Wrap(l2.ErrMalformed, "entry function %v is not defined", p.Entry)
	}

	a := regalloc.New(conv)

	r = &l2.Program{
		Entry: p.Entry,
		Funcs: make([]*l2.Func, len(p.Funcs)),
	}

	for i, f := range p.Funcs {
		f, err = a.Allocate(ctx, f)
		if err != nil {
			return nil, err
		}

		r.Funcs[i] = l2.LowerStackArgs(f)
	}

	return r, nil
}
