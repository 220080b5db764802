// Package coloring assigns palette registers to interference graph nodes
// with a single simplify/select pass in the manner of Chaitin.
package coloring

import (
	"context"
	"sort"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/interference"
	"github.com/slowlang/l2c/compiler/l2"
	"github.com/slowlang/l2c/compiler/set"
)

type (
	ID = interference.ID

	// Result is either a complete coloring or a non-empty spill set.
	Result struct {
		Colors map[l2.Var]l2.Reg
		Spills []l2.Var
	}

	node struct {
		id  ID
		deg int
	}
)

// Color colors g with conv.Palette.
// Colors is nil if anything is spilled.
func Color(ctx context.Context, conv *abi.Conv, g *interference.Graph) (r *Result, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "coloring", "nodes", g.Len(), "k", conv.K())
	defer tr.Finish("err", &err)

	u := g.U
	k := conv.K()

	if u.Regs() != k {
		return nil, errors.New("graph has %d registers, palette has %d", u.Regs(), k)
	}

	order := Order(g)

	low := min(k, len(order))

	stack := make([]ID, 0, len(order))
	stack = append(stack, order[:low]...)

	for i := len(order) - 1; i >= low; i-- {
		stack = append(stack, order[i])
	}

	color := make([]int, g.Len())

	for id := range color {
		color[id] = -1

		if reg, ok := u.Operand(ID(id)).(l2.Reg); ok {
			color[id] = conv.Color(reg)
		}
	}

	r = &Result{}

	for len(stack) != 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if u.IsReg(id) {
			continue
		}

		var blocked set.Bits[int]

		g.Neighbors(id).Range(func(nb ID) bool {
			if c := color[nb]; c >= 0 {
				blocked.Set(c)
			}

			return true
		})

		v := u.Operand(id).(l2.Var)

		if blocked.Size() >= k {
			tr.V("coloring").Printw("spill", "var", v, "degree", g.Degree(id), "blocked", blocked)

			r.Spills = append(r.Spills, v)

			continue
		}

		for c := 0; c < k; c++ {
			if !blocked.IsSet(c) {
				color[id] = c
				break
			}
		}

		tr.V("coloring").Printw("choose color", "var", v, "reg", conv.Palette[color[id]], "degree", g.Degree(id), "blocked", blocked)
	}

	if len(r.Spills) != 0 {
		sort.Slice(r.Spills, func(i, j int) bool { return r.Spills[i] < r.Spills[j] })

		tr.Printw("spills", "spills", r.Spills)

		return r, nil
	}

	r.Colors = make(map[l2.Var]l2.Reg, g.Len()-u.Regs())

	for id := u.Regs(); id < g.Len(); id++ {
		r.Colors[u.Operand(ID(id)).(l2.Var)] = conv.Palette[color[id]]
	}

	return r, nil
}

// Order returns all graph nodes by ascending degree, ties broken by ID.
func Order(g *interference.Graph) []ID {
	h := heap.Heap[node]{Less: nodeLess}

	for id := 0; id < g.Len(); id++ {
		h.Push(node{id: ID(id), deg: g.Degree(ID(id))})
	}

	order := make([]ID, 0, g.Len())

	for h.Len() != 0 {
		order = append(order, h.Pop().id)
	}

	return order
}

func nodeLess(d []node, i, j int) bool {
	if d[i].deg != d[j].deg {
		return d[i].deg < d[j].deg
	}

	return d[i].id < d[j].id
}
