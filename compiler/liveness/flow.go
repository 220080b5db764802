package liveness

import (
	"tlog.app/go/errors"

	"github.com/slowlang/l2c/compiler/l2"
)

type (
	// Flow is the control flow of a linear instruction list.
	Flow struct {
		Labels map[l2.Label]int
		Succ   [][]int
	}
)

var ErrUnresolvedLabel = errors.New("unresolved label")

// Resolve maps labels to instruction indexes and computes successors.
// The first definition of a duplicated label wins.
func Resolve(f *l2.Func) (*Flow, error) {
	fl := &Flow{
		Labels: map[l2.Label]int{},
		Succ:   make([][]int, len(f.Code)),
	}

	for i, in := range f.Code {
		x, ok := in.(l2.LabelDef)
		if !ok {
			continue
		}

		if _, ok := fl.Labels[x.Label]; !ok {
			fl.Labels[x.Label] = i
		}
	}

	target := func(i int, in l2.Instr, l l2.Label) (int, error) {
		j, ok := fl.Labels[l]
		if !ok {
			return -1, errors.Wrap(ErrUnresolvedLabel, "instr %d %T %v: %v", i, in, in, l)
		}

		return j, nil
	}

	for i, in := range f.Code {
		switch x := in.(type) {
		case l2.CJump:
			t, err := target(i, in, x.True)
			if err != nil {
				return nil, err
			}

			e, err := target(i, in, x.False)
			if err != nil {
				return nil, err
			}

			if t == e {
				fl.Succ[i] = []int{t}
			} else {
				fl.Succ[i] = []int{t, e}
			}
		case l2.Goto:
			t, err := target(i, in, x.Target)
			if err != nil {
				return nil, err
			}

			fl.Succ[i] = []int{t}
		case l2.Return:
		default:
			if i+1 < len(f.Code) {
				fl.Succ[i] = []int{i + 1}
			}
		}
	}

	return fl, nil
}
