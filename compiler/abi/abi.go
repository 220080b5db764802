// Package abi describes the registers the allocator may use and the calling convention they follow.
package abi

import (
	"tlog.app/go/errors"

	"github.com/slowlang/l2c/compiler/l2"
)

type (
	// Conv is a register palette together with the calling convention.
	// Palette order is the color priority: the first free register wins.
	Conv struct {
		Palette []l2.Reg

		StackPointer l2.Reg
		ShiftCount   l2.Reg
		Return       l2.Reg

		Args       []l2.Reg
		CallerSave []l2.Reg
		CalleeSave []l2.Reg
	}
)

// SysV is the System V x86-64 convention with all 15 general purpose registers allocatable.
func SysV() *Conv {
	return &Conv{
		Palette: []l2.Reg{
			l2.R10, l2.R11, l2.R8, l2.R9, l2.RAX, l2.RCX, l2.RDI, l2.RDX,
			l2.RSI, l2.R12, l2.R13, l2.R14, l2.R15, l2.RBP, l2.RBX,
		},

		StackPointer: l2.RSP,
		ShiftCount:   l2.RCX,
		Return:       l2.RAX,

		Args:       []l2.Reg{l2.RDI, l2.RSI, l2.RDX, l2.RCX, l2.R8, l2.R9},
		CallerSave: []l2.Reg{l2.R10, l2.R11, l2.R8, l2.R9, l2.RAX, l2.RCX, l2.RDI, l2.RDX, l2.RSI},
		CalleeSave: []l2.Reg{l2.R12, l2.R13, l2.R14, l2.R15, l2.RBP, l2.RBX},
	}
}

func (c *Conv) K() int { return len(c.Palette) }

// Color returns the palette index of r or -1.
func (c *Conv) Color(r l2.Reg) int {
	for i, p := range c.Palette {
		if p == r {
			return i
		}
	}

	return -1
}

// CallArgs returns the argument registers a call with n arguments reads.
func (c *Conv) CallArgs(n int64) []l2.Reg {
	if n < 0 {
		n = 0
	}

	if n > int64(len(c.Args)) {
		n = int64(len(c.Args))
	}

	return c.Args[:n]
}

// Exit returns the registers live at function exit:
// the return value and everything the caller expects preserved.
func (c *Conv) Exit() []l2.Reg {
	r := make([]l2.Reg, 0, len(c.CalleeSave)+1)
	r = append(r, c.Return)
	r = append(r, c.CalleeSave...)

	return r
}

func (c *Conv) Validate() error {
	if len(c.Palette) == 0 {
		return errors.New("empty palette")
	}

	seen := map[l2.Reg]bool{}

	for _, r := range c.Palette {
		if r < 0 || r >= l2.NumRegs {
			return errors.New("palette: bad register %d", int(r))
		}

		if seen[r] {
			return errors.New("palette: duplicate register %v", r)
		}

		seen[r] = true
	}

	if seen[c.StackPointer] {
		return errors.New("palette: stack pointer %v is reserved", c.StackPointer)
	}

	check := func(role string, regs ...l2.Reg) error {
		for _, r := range regs {
			if !seen[r] {
				return errors.New("%v register %v is not in the palette", role, r)
			}
		}

		return nil
	}

	if err := check("shift count", c.ShiftCount); err != nil {
		return err
	}

	if err := check("return", c.Return); err != nil {
		return err
	}

	if err := check("argument", c.Args...); err != nil {
		return err
	}

	if err := check("caller-save", c.CallerSave...); err != nil {
		return err
	}

	if err := check("callee-save", c.CalleeSave...); err != nil {
		return err
	}

	return nil
}
