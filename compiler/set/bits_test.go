package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	var s Bits[int]

	assert.True(t, s.Empty())

	s.SetAll(1, 3, 64, 130)

	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int{1, 3, 64, 130}, s.Slice())
	assert.True(t, s.IsSet(64))
	assert.False(t, s.IsSet(65))
	assert.False(t, s.IsSet(1000))

	s.Clear(3)
	s.Clear(1000)

	assert.Equal(t, []int{1, 64, 130}, s.Slice())
}

func TestBitsEqual(t *testing.T) {
	a := MakeBits(1, 2)
	b := MakeBits(1, 2, 200)

	assert.False(t, a.Equal(b))

	b.Clear(200)

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.True(t, Bits[int]{}.Equal(MakeBits[int]()))
}

func TestBitsMergeSubstract(t *testing.T) {
	a := MakeBits(1, 2, 3)
	b := MakeBits(3, 100)

	c := a.Copy()
	c.Merge(b)

	assert.Equal(t, []int{1, 2, 3, 100}, c.Slice())
	assert.Equal(t, []int{1, 2, 3}, a.Slice(), "copy is detached")

	c.Substract(MakeBits(2, 100))

	assert.Equal(t, []int{1, 3}, c.Slice())
	assert.True(t, c.Intersects(b))
	assert.False(t, c.Intersects(MakeBits(2)))
}

func TestBitsRangeStop(t *testing.T) {
	s := MakeBits(5, 6, 7)

	var got []int

	s.Range(func(k int) bool {
		got = append(got, k)
		return len(got) < 2
	})

	assert.Equal(t, []int{5, 6}, got)
}
