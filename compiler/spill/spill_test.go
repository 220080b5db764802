package spill

import (
	"context"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/l2c/compiler/l2"
)

func parse(t *testing.T, text string) *l2.Func {
	t.Helper()

	f, err := l2.ParseFunc(context.Background(), text)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	return f
}

func checkCode(t *testing.T, want, got *l2.Func) {
	t.Helper()

	if assert.Equal(t, want.Code, got.Code) {
		return
	}

	for _, d := range pretty.Diff(want.Code, got.Code) {
		t.Logf("diff: %v", d)
	}

	t.Logf("got:\n%v", got)
}

func TestSpill(t *testing.T) {
	f := parse(t, `(:f 1 1
		(x <- 1)
		((mem rsp 0) <- rdi)
		((mem rsp -8) <- :ret)
		(x += 2)
		(rax <- x)
		(rax += x)
		(x <<= 2)
		(y <- x < 3)
		(x <- rsi < 3)
		(cjump x = 0 :a :b)
		:a
		(x *= x)
		(x++)
		(rdi <- (mem rsp 0))
		(call :ret 1)
		:ret
		:b
		(return)
	)`)

	want := parse(t, `(:f 1 2
		((mem rsp 0) <- 1)
		((mem rsp 8) <- rdi)
		((mem rsp -8) <- :ret)
		((mem rsp 0) += 2)
		(rax <- (mem rsp 0))
		(rax += (mem rsp 0))
		(x_0 <- (mem rsp 0))
		(x_0 <<= 2)
		((mem rsp 0) <- x_0)
		(x_1 <- (mem rsp 0))
		(y <- x_1 < 3)
		(x_2 <- rsi < 3)
		((mem rsp 0) <- x_2)
		(x_3 <- (mem rsp 0))
		(cjump x_3 = 0 :a :b)
		:a
		(x_4 <- (mem rsp 0))
		(x_4 *= x_4)
		((mem rsp 0) <- x_4)
		(x_5 <- (mem rsp 0))
		(x_5++)
		((mem rsp 0) <- x_5)
		(rdi <- (mem rsp 8))
		(call :ret 1)
		:ret
		:b
		(return)
	)`)

	orig := f.String()

	r, temps := Spill(f, "x", "x_")

	checkCode(t, want, r)

	assert.Equal(t, int64(2), r.Locals)
	assert.Equal(t, f.Args, r.Args)
	assert.Equal(t, f.Name, r.Name)
	assert.Equal(t, []l2.Var{"x_0", "x_1", "x_2", "x_3", "x_4", "x_5"}, temps)

	assert.Equal(t, orig, f.String(), "input changed")

	for _, in := range r.Code {
		assert.False(t, l2.References(in, l2.Var("x")), "%v", in)
	}
}

func TestSpillFreshNames(t *testing.T) {
	f := parse(t, `(:f 0 0
		(t0 <- 1)
		(x <- 2)
		(x <<= t0)
		(t2 <- x)
		(rax <- t2)
		(return)
	)`)

	r, temps := Spill(f, "x", "t")

	want := parse(t, `(:f 0 1
		(t0 <- 1)
		((mem rsp 0) <- 2)
		(t1 <- (mem rsp 0))
		(t1 <<= t0)
		((mem rsp 0) <- t1)
		(t2 <- (mem rsp 0))
		(rax <- t2)
		(return)
	)`)

	checkCode(t, want, r)

	assert.Equal(t, []l2.Var{"t1"}, temps)
}

func TestSpillUnreferenced(t *testing.T) {
	f := parse(t, `(:f 0 0
		(y <- 1)
		(rax <- y)
		(return)
	)`)

	r, temps := Spill(f, "x", "x_")

	assert.Empty(t, temps)
	assert.Equal(t, int64(1), r.Locals)
	assert.Equal(t, f.Code, r.Code)
}

func TestSpillSelfMove(t *testing.T) {
	f := parse(t, `(:f 0 0
		(x <- 1)
		(x <- x)
		(x -= x)
		(rax <- x)
		(return)
	)`)

	r, _ := Spill(f, "x", "s")

	want := parse(t, `(:f 0 1
		((mem rsp 0) <- 1)
		(s0 <- (mem rsp 0))
		(s0 <- s0)
		((mem rsp 0) <- s0)
		(s1 <- (mem rsp 0))
		(s1 -= s1)
		((mem rsp 0) <- s1)
		(rax <- (mem rsp 0))
		(return)
	)`)

	checkCode(t, want, r)
}

func TestSpillStackArg(t *testing.T) {
	f := parse(t, `(:f 7 0
		(x <- (stack-arg 0))
		(rax <- x)
		(return)
	)`)

	r, _ := Spill(f, "x", "x_")

	want := parse(t, `(:f 7 1
		(x_0 <- (stack-arg 0))
		((mem rsp 0) <- x_0)
		(rax <- (mem rsp 0))
		(return)
	)`)

	checkCode(t, want, r)
}
