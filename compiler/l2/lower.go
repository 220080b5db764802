package l2

// LowerStackArgs replaces stack-arg reads with loads relative to the stack pointer.
// Stack arguments sit above the locals, so it must run after the final Locals count is known.
func LowerStackArgs(f *Func) *Func {
	r := f.Copy()

	for i, in := range r.Code {
		x, ok := in.(StackArg)
		if !ok {
			continue
		}

		r.Code[i] = Load{Dst: x.Dst, Base: RSP, Off: x.Off + 8*f.Locals}
	}

	return r
}
