// Package regalloc drives liveness, interference, coloring and spilling
// until every variable of a function gets a register or a stack slot.
package regalloc

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/coloring"
	"github.com/slowlang/l2c/compiler/interference"
	"github.com/slowlang/l2c/compiler/l2"
	"github.com/slowlang/l2c/compiler/liveness"
	"github.com/slowlang/l2c/compiler/spill"
)

type (
	State int

	Allocator struct {
		Conv *abi.Conv
	}

	// Machine is one allocation in progress.
	// Tables, Graph and Result belong to the current iteration
	// and are replaced every time the machine enters Analyzing.
	Machine struct {
		State State
		Iter  int

		Func *l2.Func

		Tables *liveness.Tables
		Graph  *interference.Graph
		Result *coloring.Result

		// Spilled lists every variable moved to the stack so far, in spill order.
		// Each one took a new local slot.
		Spilled []l2.Var

		limit int
	}
)

const (
	Analyzing State = iota
	Coloring
	Spilling
	Done
)

var (
	ErrNoProgress  = errors.New("spilling makes no progress")
	ErrResidualVar = errors.New("residual variable")
)

func New(conv *abi.Conv) *Allocator {
	return &Allocator{Conv: conv}
}

// Start returns a machine in Analyzing state for f.
// f is not modified by the machine.
func (a *Allocator) Start(f *l2.Func) *Machine {
	return &Machine{
		State: Analyzing,
		Func:  f,
		limit: len(f.Vars()) + 1,
	}
}

// Allocate runs a machine for f to completion.
func (a *Allocator) Allocate(ctx context.Context, f *l2.Func) (r *l2.Func, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "allocate registers", "func", f.Name, "args", f.Args, "locals", f.Locals)
	defer tr.Finish("err", &err)

	m := a.Start(f)

	for m.State != Done {
		err = a.Step(ctx, m)
		if err != nil {
			return nil, errors.Wrap(err, "func %v: iter %d", f.Name, m.Iter)
		}
	}

	tr.Printw("allocated", "iters", m.Iter, "locals", m.Func.Locals, "instrs", len(m.Func.Code))

	return m.Func, nil
}

// Step advances m by one state transition.
// Stepping a Done machine does nothing.
func (a *Allocator) Step(ctx context.Context, m *Machine) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "regalloc step", "state", m.State, "iter", m.Iter)
	defer tr.Finish("err", &err)

	switch m.State {
	case Analyzing:
		return a.analyze(ctx, m)
	case Coloring:
		return a.color(ctx, m)
	case Spilling:
		return a.spill(ctx, m)
	case Done:
		return nil
	default:
		panic(m.State)
	}
}

func (a *Allocator) analyze(ctx context.Context, m *Machine) (err error) {
	if m.Iter == 0 {
		err = a.Conv.Validate()
		if err != nil {
			return errors.Wrap(err, "calling convention")
		}

		err = m.Func.Validate()
		if err != nil {
			return err
		}
	}

	m.Iter++
	m.Tables, m.Graph, m.Result = nil, nil, nil

	if m.Iter > m.limit {
		return errors.Wrap(ErrNoProgress, "iteration %d exceeds %d", m.Iter, m.limit)
	}

	t, err := liveness.Analyze(ctx, a.Conv, m.Func)
	if err != nil {
		return errors.Wrap(err, "liveness")
	}

	g, err := interference.Build(ctx, a.Conv, m.Func, t)
	if err != nil {
		return errors.Wrap(err, "interference")
	}

	m.Tables, m.Graph = t, g
	m.State = Coloring

	return nil
}

func (a *Allocator) color(ctx context.Context, m *Machine) (err error) {
	res, err := coloring.Color(ctx, a.Conv, m.Graph)
	if err != nil {
		return errors.Wrap(err, "coloring")
	}

	m.Result = res

	if len(res.Spills) != 0 {
		m.State = Spilling

		return nil
	}

	f, err := Apply(m.Func, res.Colors)
	if err != nil {
		return err
	}

	m.Func = f
	m.State = Done

	return nil
}

func (a *Allocator) spill(ctx context.Context, m *Machine) (err error) {
	tr := tlog.SpanFromContext(ctx)

	f := m.Func

	for _, v := range m.Result.Spills {
		var temps []l2.Var

		f, temps = spill.Spill(f, v, string(v)+"_")

		m.Spilled = append(m.Spilled, v)

		tr.V("spill").Printw("spilled", "var", v, "temps", temps, "locals", f.Locals)
	}

	m.Func = f
	m.State = Analyzing

	return nil
}

// Apply replaces every variable in f with its register.
func Apply(f *l2.Func, colors map[l2.Var]l2.Reg) (r *l2.Func, err error) {
	r = f.Copy()

	for i, in := range r.Code {
		r.Code[i] = l2.MapOperands(in, func(op l2.Operand) l2.Operand {
			v, ok := op.(l2.Var)
			if !ok {
				return op
			}

			reg, ok := colors[v]
			if !ok {
				if err == nil {
					err = errors.Wrap(ErrResidualVar, "instr %d %v: %v has no register", i, in, v)
				}

				return op
			}

			return reg
		})
	}

	if err != nil {
		return nil, err
	}

	return r, CheckNoVars(r)
}

// CheckNoVars returns ErrResidualVar if any variable is left in f.
func CheckNoVars(f *l2.Func) error {
	for i, in := range f.Code {
		for _, op := range l2.Operands(in) {
			if v, ok := op.(l2.Var); ok {
				return errors.Wrap(ErrResidualVar, "instr %d %v: %v", i, in, v)
			}
		}
	}

	return nil
}

func (s State) String() string {
	switch s {
	case Analyzing:
		return "analyzing"
	case Coloring:
		return "coloring"
	case Spilling:
		return "spilling"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
