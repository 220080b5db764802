package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int32 | ~int64
	}

	// Bits is a dense set of small non-negative keys.
	// Zero value is an empty set ready to use.
	// Bits shares storage on assignment, use Copy to detach.
	Bits[K Key] struct {
		b []uint64
	}
)

func MakeBits[K Key](k ...K) Bits[K] {
	var s Bits[K]

	s.SetAll(k...)

	return s
}

func (s Bits[K]) Copy() Bits[K] {
	if s.b == nil {
		return Bits[K]{}
	}

	c := Bits[K]{b: make([]uint64, len(s.b))}
	copy(c.b, s.b)

	return c
}

func (s *Bits[K]) Set(k K) {
	i, j := s.ij(k)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s *Bits[K]) SetAll(k ...K) {
	for _, k := range k {
		s.Set(k)
	}
}

func (s Bits[K]) IsSet(k K) bool {
	i, j := s.ij(k)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s Bits[K]) Clear(k K) {
	i, j := s.ij(k)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

// Merge adds all the keys of x to s.
func (s *Bits[K]) Merge(x Bits[K]) {
	s.grow(len(x.b) - 1)

	for i, x := range x.b {
		s.b[i] |= x
	}
}

// Substract removes all the keys of x from s.
func (s Bits[K]) Substract(x Bits[K]) {
	n := min(len(s.b), len(x.b))

	for i, x := range x.b[:n] {
		s.b[i] &^= x
	}
}

func (s Bits[K]) Intersects(x Bits[K]) bool {
	n := min(len(s.b), len(x.b))

	for i := 0; i < n; i++ {
		if s.b[i]&x.b[i] != 0 {
			return true
		}
	}

	return false
}

func (s Bits[K]) Equal(x Bits[K]) bool {
	l, r := s.b, x.b
	if len(l) < len(r) {
		l, r = r, l
	}

	for i, w := range l {
		var v uint64
		if i < len(r) {
			v = r[i]
		}

		if w != v {
			return false
		}
	}

	return true
}

func (s Bits[K]) Size() (r int) {
	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s Bits[K]) Empty() bool {
	for _, c := range s.b {
		if c != 0 {
			return false
		}
	}

	return true
}

// Range calls f for each key in ascending order until f returns false.
func (s Bits[K]) Range(f func(k K) bool) {
	for i, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(K(i*64 + j)) {
				return
			}
		}
	}
}

func (s Bits[K]) Slice() []K {
	r := make([]K, 0, s.Size())

	s.Range(func(k K) bool {
		r = append(r, k)
		return true
	})

	return r
}

func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Bits[K]) Reset() {
	for i := range s.b {
		s.b[i] = 0
	}
}

func (s *Bits[K]) ij(k K) (i int, j int) {
	if k < 0 {
		panic(k)
	}

	p := int(k)
	i, j = p/64, p%64

	return i, j
}

func (s *Bits[K]) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
