package liveness

import (
	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/l2"
	"github.com/slowlang/l2c/compiler/set"
)

type (
	// ID is a dense index of a liveness node.
	ID int

	Set = set.Bits[ID]

	// Universe interns the nodes of one function:
	// palette registers first, in palette order, then variables in order of appearance.
	// Registers outside the palette and the stack pointer are not nodes.
	Universe struct {
		ops  []l2.Operand
		ids  map[l2.Operand]ID
		regs int
	}
)

func NewUniverse(conv *abi.Conv, f *l2.Func) *Universe {
	u := &Universe{
		ids: map[l2.Operand]ID{},
	}

	for _, r := range conv.Palette {
		u.add(r)
	}

	u.regs = len(u.ops)

	for _, v := range f.Vars() {
		u.add(v)
	}

	return u
}

func (u *Universe) add(op l2.Operand) {
	if _, ok := u.ids[op]; ok {
		return
	}

	u.ids[op] = ID(len(u.ops))
	u.ops = append(u.ops, op)
}

func (u *Universe) Len() int { return len(u.ops) }

// Regs is the number of register nodes. Register IDs are [0, Regs).
func (u *Universe) Regs() int { return u.regs }

func (u *Universe) IsReg(id ID) bool { return int(id) < u.regs }

func (u *Universe) ID(op l2.Operand) (ID, bool) {
	if !l2.IsNode(op) {
		return -1, false
	}

	id, ok := u.ids[op]

	return id, ok
}

func (u *Universe) Operand(id ID) l2.Operand { return u.ops[id] }

// Set builds a set of the given operands skipping the ones which are not nodes.
func (u *Universe) Set(ops ...l2.Operand) (s Set) {
	u.Add(&s, ops...)

	return s
}

func (u *Universe) Add(s *Set, ops ...l2.Operand) {
	for _, op := range ops {
		if id, ok := u.ID(op); ok {
			s.Set(id)
		}
	}
}

// Names returns the names of s members in ID order.
func (u *Universe) Names(s Set) []string {
	r := make([]string, 0, s.Size())

	s.Range(func(id ID) bool {
		r = append(r, u.ops[id].String())
		return true
	})

	return r
}

// Operands returns the members of s in ID order.
func (u *Universe) Operands(s Set) []l2.Operand {
	r := make([]l2.Operand, 0, s.Size())

	s.Range(func(id ID) bool {
		r = append(r, u.ops[id])
		return true
	})

	return r
}
