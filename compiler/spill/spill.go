// Package spill rewrites a function so one variable lives in a stack slot.
package spill

import (
	"strconv"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler/l2"
)

// Spill moves v to a new stack slot at (mem rsp 0).
// Existing non-negative rsp slots are moved up by 8 to make room.
// Instructions that can address memory directly are folded,
// the rest get a fresh temporary named prefix+n.
// It returns the new function and the temporaries introduced.
func Spill(f *l2.Func, v l2.Var, prefix string) (r *l2.Func, temps []l2.Var) {
	used := map[l2.Var]struct{}{}

	for _, x := range f.Vars() {
		used[x] = struct{}{}
	}

	next := 0

	fresh := func() l2.Var {
		for {
			t := l2.Var(prefix + strconv.Itoa(next))
			next++

			if _, ok := used[t]; ok {
				continue
			}

			used[t] = struct{}{}
			temps = append(temps, t)

			return t
		}
	}

	r = &l2.Func{
		Name:   f.Name,
		Args:   f.Args,
		Locals: f.Locals + 1,
		Code:   make([]l2.Instr, 0, len(f.Code)),
	}

	insert := func(at int, in l2.Instr) {
		if tlog.If("spill_insert") {
			tlog.Printw("insert spill code", "var", v, "at", at, "insert", in, "from", loc.Caller(1))
		}

		r.Code = append(r.Code, in)
	}

	for i, in := range f.Code {
		in = shiftSlots(in)

		if !l2.References(in, v) {
			r.Code = append(r.Code, in)
			continue
		}

		if x, ok := fold(in, v); ok {
			insert(i, x)
			continue
		}

		t := fresh()

		if reads(in, v) {
			insert(i, l2.Load{Dst: t, Base: l2.RSP, Off: 0})
		}

		r.Code = append(r.Code, l2.MapOperands(in, func(op l2.Operand) l2.Operand {
			if op == v {
				return t
			}

			return op
		}))

		if d, ok := l2.Dest(in); ok && d == v {
			insert(i, l2.Store{Base: l2.RSP, Off: 0, Src: t})
		}
	}

	if tlog.If("dump_spill") {
		tlog.Printw("spilled", "func", r.Name, "var", v, "locals", r.Locals, "temps", temps)

		for i, in := range r.Code {
			tlog.Printw("code", "i", i, "typ", tlog.NextAsType, in, "val", in)
		}
	}

	return r, temps
}

// shiftSlots moves stack pointer relative accesses past the new slot.
// Negative offsets address the return address slot below rsp and stay.
func shiftSlots(in l2.Instr) l2.Instr {
	switch x := in.(type) {
	case l2.Load:
		if x.Base == l2.RSP && x.Off >= 0 {
			x.Off += 8
		}

		return x
	case l2.Store:
		if x.Base == l2.RSP && x.Off >= 0 {
			x.Off += 8
		}

		return x
	case l2.ArithLoad:
		if x.Base == l2.RSP && x.Off >= 0 {
			x.Off += 8
		}

		return x
	case l2.MemArith:
		if x.Base == l2.RSP && x.Off >= 0 {
			x.Off += 8
		}

		return x
	default:
		return in
	}
}

// fold rewrites in to access the slot directly
// when v is the whole destination or the only source.
func fold(in l2.Instr, v l2.Var) (l2.Instr, bool) {
	switch x := in.(type) {
	case l2.Mov:
		switch {
		case x.Dst == v && x.Src != v:
			return l2.Store{Base: l2.RSP, Off: 0, Src: x.Src}, true
		case x.Src == v && x.Dst != v:
			return l2.Load{Dst: x.Dst, Base: l2.RSP, Off: 0}, true
		}
	case l2.Arith:
		if x.Op != l2.Add && x.Op != l2.Sub {
			break
		}

		switch {
		case x.Dst == v && x.Src != v:
			return l2.MemArith{Op: x.Op, Base: l2.RSP, Off: 0, Src: x.Src}, true
		case x.Src == v && x.Dst != v:
			return l2.ArithLoad{Op: x.Op, Dst: x.Dst, Base: l2.RSP, Off: 0}, true
		}
	}

	return nil, false
}

// reads reports whether in uses the value of v.
func reads(in l2.Instr, v l2.Var) bool {
	switch x := in.(type) {
	case l2.Mov:
		return x.Src == v
	case l2.Load:
		return x.Base == v
	case l2.StackArg:
		return false
	case l2.Cmp:
		return x.L == v || x.R == v
	case l2.Lea:
		return x.Base == v || x.Index == v
	default:
		return l2.References(in, v)
	}
}
