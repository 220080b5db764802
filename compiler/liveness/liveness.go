// Package liveness computes per-instruction live-in and live-out sets
// with the classic backward dataflow iteration.
package liveness

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/l2"
)

type (
	// Tables holds the liveness of one instruction list.
	// Index i of each slice describes instruction i.
	Tables struct {
		U    *Universe
		Flow *Flow

		Gen  []Set
		Kill []Set
		In   []Set
		Out  []Set

		// Passes is the number of full passes it took to reach the fixpoint.
		Passes int
	}
)

// Analyze computes gen, kill, in and out sets for f.
func Analyze(ctx context.Context, conv *abi.Conv, f *l2.Func) (t *Tables, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "liveness", "func", f.Name, "instrs", len(f.Code))
	defer tr.Finish("err", &err)

	fl, err := Resolve(f)
	if err != nil {
		return nil, errors.Wrap(err, "resolve control flow")
	}

	n := len(f.Code)

	t = &Tables{
		U:    NewUniverse(conv, f),
		Flow: fl,
		Gen:  make([]Set, n),
		Kill: make([]Set, n),
		In:   make([]Set, n),
		Out:  make([]Set, n),
	}

	for i, in := range f.Code {
		t.Gen[i], t.Kill[i] = GenKill(conv, t.U, in)
	}

	for changed := true; changed; {
		changed = false
		t.Passes++

		for i := n - 1; i >= 0; i-- {
			var out Set

			for _, s := range fl.Succ[i] {
				out.Merge(t.In[s])
			}

			in := out.Copy()
			in.Substract(t.Kill[i])
			in.Merge(t.Gen[i])

			if !out.Equal(t.Out[i]) {
				t.Out[i] = out
				changed = true
			}

			if !in.Equal(t.In[i]) {
				t.In[i] = in
				changed = true
			}
		}
	}

	tr.V("liveness").Printw("fixpoint", "passes", t.Passes, "nodes", t.U.Len())

	if tr.If("dump_liveness") {
		for i, in := range f.Code {
			tr.Printw("live", "i", i, "instr", in, "gen", t.U.Names(t.Gen[i]), "kill", t.U.Names(t.Kill[i]),
				"in", t.U.Names(t.In[i]), "out", t.U.Names(t.Out[i]))
		}
	}

	return t, nil
}

// GenKill returns the nodes in reads (gen) and writes (kill).
func GenKill(conv *abi.Conv, u *Universe, in l2.Instr) (gen, kill Set) {
	regs := func(rs []l2.Reg) []l2.Operand {
		ops := make([]l2.Operand, len(rs))

		for i, r := range rs {
			ops[i] = r
		}

		return ops
	}

	switch x := in.(type) {
	case l2.Mov:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Src)
	case l2.Load:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Base)
	case l2.StackArg:
		u.Add(&kill, x.Dst)
	case l2.Store:
		u.Add(&gen, x.Base, x.Src)
	case l2.Cmp:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.L, x.R)
	case l2.Arith:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Dst, x.Src)
	case l2.ArithLoad:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Dst, x.Base)
	case l2.MemArith:
		u.Add(&gen, x.Base, x.Src)
	case l2.Shift:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Dst, x.Src)
	case l2.Lea:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Base, x.Index)
	case l2.Inc:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Dst)
	case l2.Dec:
		u.Add(&kill, x.Dst)
		u.Add(&gen, x.Dst)
	case l2.CJump:
		u.Add(&gen, x.L, x.R)
	case l2.Goto, l2.LabelDef:
	case l2.Return:
		u.Add(&gen, regs(conv.Exit())...)
	case l2.Call:
		u.Add(&kill, regs(conv.CallerSave)...)
		u.Add(&gen, regs(conv.CallArgs(x.Args))...)
		u.Add(&gen, x.Callee)
	default:
		panic(in)
	}

	return gen, kill
}
