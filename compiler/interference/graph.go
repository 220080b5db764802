// Package interference builds the undirected interference graph
// over physical registers and variables.
package interference

import (
	"context"
	"sort"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/l2"
	"github.com/slowlang/l2c/compiler/liveness"
)

type (
	ID  = liveness.ID
	Set = liveness.Set

	// Graph is symmetric and has no self loops.
	// Every node of the Universe is a node of the graph, with or without edges.
	Graph struct {
		U *liveness.Universe

		adj []Set

		// ShiftCoalesced are variables which must live in the shift count register
		// and are also move-related to another register.
		// Coloring does not honor the move relation for them.
		ShiftCoalesced []l2.Var
	}
)

func New(u *liveness.Universe) *Graph {
	return &Graph{
		U:   u,
		adj: make([]Set, u.Len()),
	}
}

// Build builds the interference graph of f from its liveness tables.
func Build(ctx context.Context, conv *abi.Conv, f *l2.Func, t *liveness.Tables) (g *Graph, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "interference", "func", f.Name)
	defer tr.Finish("err", &err)

	if len(t.In) != len(f.Code) {
		return nil, errors.New("liveness tables for %d instructions, function has %d", len(t.In), len(f.Code))
	}

	u := t.U
	g = New(u)

	for a := 0; a < u.Regs(); a++ {
		for b := a + 1; b < u.Regs(); b++ {
			g.AddEdge(ID(a), ID(b))
		}
	}

	shiftVars := map[l2.Var]struct{}{}
	moveRegs := map[l2.Var][]l2.Reg{}

	for i, in := range f.Code {
		g.clique(t.In[i])

		mdst, msrc := ID(-1), ID(-1)

		if x, ok := in.(l2.Mov); ok {
			d, dok := u.ID(x.Dst)
			s, sok := u.ID(x.Src)

			if dok && sok {
				mdst, msrc = d, s

				noteMove(moveRegs, x.Dst, x.Src)
				noteMove(moveRegs, x.Src, x.Dst)
			}
		}

		t.Kill[i].Range(func(k ID) bool {
			t.Out[i].Range(func(o ID) bool {
				if k == mdst && o == msrc {
					return true
				}

				g.AddEdge(k, o)

				return true
			})

			return true
		})

		if x, ok := in.(l2.Shift); ok {
			if v, ok := x.Src.(l2.Var); ok {
				g.constrainShift(conv, v)
				shiftVars[v] = struct{}{}
			}
		}
	}

	for v := range shiftVars {
		for _, r := range moveRegs[v] {
			if r != conv.ShiftCount {
				g.ShiftCoalesced = append(g.ShiftCoalesced, v)
				break
			}
		}
	}

	sort.Slice(g.ShiftCoalesced, func(i, j int) bool { return g.ShiftCoalesced[i] < g.ShiftCoalesced[j] })

	if len(g.ShiftCoalesced) != 0 {
		tr.Printw("shift count variables are move-related to other registers", "vars", g.ShiftCoalesced, "shift_reg", conv.ShiftCount)
	}

	tr.V("interference").Printw("graph built", "nodes", g.Len(), "edges", len(g.Edges()))

	if tr.If("dump_graph") {
		for id := 0; id < g.Len(); id++ {
			tr.Printw("node", "node", u.Operand(ID(id)), "degree", g.Degree(ID(id)), "adj", u.Names(g.adj[id]))
		}
	}

	return g, nil
}

func noteMove(m map[l2.Var][]l2.Reg, a, b l2.Operand) {
	v, ok := a.(l2.Var)
	if !ok {
		return
	}

	if r, ok := b.(l2.Reg); ok {
		m[v] = append(m[v], r)
	}
}

// constrainShift makes v interfere with every register but the shift count one.
func (g *Graph) constrainShift(conv *abi.Conv, v l2.Var) {
	vid, ok := g.U.ID(v)
	if !ok {
		panic(v)
	}

	for _, r := range conv.Palette {
		if r == conv.ShiftCount {
			continue
		}

		rid, ok := g.U.ID(r)
		if !ok {
			panic(r)
		}

		g.AddEdge(vid, rid)
	}
}

func (g *Graph) clique(s Set) {
	s.Range(func(a ID) bool {
		s.Range(func(b ID) bool {
			if a < b {
				g.AddEdge(a, b)
			}

			return true
		})

		return true
	})
}

func (g *Graph) AddEdge(a, b ID) {
	if a == b {
		return
	}

	g.adj[a].Set(b)
	g.adj[b].Set(a)
}

func (g *Graph) HasEdge(a, b ID) bool {
	return g.adj[a].IsSet(b)
}

// Interfere reports whether two operands are adjacent.
// Operands which are not nodes never interfere.
func (g *Graph) Interfere(a, b l2.Operand) bool {
	x, ok := g.U.ID(a)
	if !ok {
		return false
	}

	y, ok := g.U.ID(b)
	if !ok {
		return false
	}

	return g.HasEdge(x, y)
}

// Neighbors returns the adjacency set of id. It must not be modified.
func (g *Graph) Neighbors(id ID) Set { return g.adj[id] }

func (g *Graph) Degree(id ID) int { return g.adj[id].Size() }

func (g *Graph) Len() int { return len(g.adj) }

// Edges lists every edge once as {a, b} with a < b.
func (g *Graph) Edges() (r [][2]ID) {
	for a := range g.adj {
		g.adj[a].Range(func(b ID) bool {
			if ID(a) < b {
				r = append(r, [2]ID{ID(a), b})
			}

			return true
		})
	}

	return r
}
