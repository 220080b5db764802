package liveness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/l2c/compiler/abi"
	"github.com/slowlang/l2c/compiler/l2"
)

const loop = `(:f 1 0
	(x <- rdi)
	(s <- 0)
	:loop
	(cjump x <= 0 :done :body)
	:body
	(s += x)
	(x--)
	(goto :loop)
	:done
	(rax <- s)
	(return)
	(y <- 1)
)`

func parse(t *testing.T, text string) *l2.Func {
	t.Helper()

	f, err := l2.ParseFunc(context.Background(), text)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	return f
}

func TestResolve(t *testing.T) {
	f := parse(t, loop)

	fl, err := Resolve(f)
	require.NoError(t, err)

	assert.Equal(t, map[l2.Label]int{"loop": 2, "body": 4, "done": 8}, fl.Labels)
	assert.Equal(t, [][]int{
		{1}, {2}, {3}, {8, 4}, {5}, {6}, {7}, {2}, {9}, {10}, nil, nil,
	}, fl.Succ)
}

func TestResolveDuplicateLabel(t *testing.T) {
	f := parse(t, `(:f 0 0 :a (goto :a) :a (return))`)

	fl, err := Resolve(f)
	require.NoError(t, err)

	assert.Equal(t, 0, fl.Labels["a"])
	assert.Equal(t, []int{0}, fl.Succ[1])
}

func TestResolveMissingLabel(t *testing.T) {
	f := parse(t, `(:f 0 0 (x <- 1) (cjump x < 1 :here :nowhere) :here (return))`)

	_, err := Resolve(f)
	assert.True(t, errors.Is(err, ErrUnresolvedLabel), "err: %v", err)
	assert.ErrorContains(t, err, "instr 1")
	assert.ErrorContains(t, err, "nowhere")

	_, err = Analyze(context.Background(), abi.SysV(), f)
	assert.True(t, errors.Is(err, ErrUnresolvedLabel), "err: %v", err)
}

func TestGenKill(t *testing.T) {
	conv := abi.SysV()

	f := &l2.Func{Code: []l2.Instr{
		l2.Mov{Dst: l2.Var("a"), Src: l2.Var("b")},
	}}

	u := NewUniverse(conv, f)

	for _, tc := range []struct {
		in   l2.Instr
		gen  []string
		kill []string
	}{
		{l2.Mov{Dst: l2.Var("a"), Src: l2.Var("b")}, []string{"b"}, []string{"a"}},
		{l2.Mov{Dst: l2.Var("a"), Src: l2.Num(3)}, []string{}, []string{"a"}},
		{l2.Mov{Dst: l2.Var("a"), Src: l2.Label("l")}, []string{}, []string{"a"}},
		{l2.Load{Dst: l2.Var("a"), Base: l2.RSP, Off: 0}, []string{}, []string{"a"}},
		{l2.Load{Dst: l2.Var("a"), Base: l2.Var("b"), Off: 8}, []string{"b"}, []string{"a"}},
		{l2.Store{Base: l2.Var("a"), Off: 8, Src: l2.Var("b")}, []string{"a", "b"}, []string{}},
		{l2.Arith{Op: l2.Add, Dst: l2.Var("a"), Src: l2.Var("b")}, []string{"a", "b"}, []string{"a"}},
		{l2.Arith{Op: l2.Mul, Dst: l2.Var("a"), Src: l2.Num(2)}, []string{"a"}, []string{"a"}},
		{l2.Shift{Op: l2.Shl, Dst: l2.Var("a"), Src: l2.RCX}, []string{"rcx", "a"}, []string{"a"}},
		{l2.Cmp{Dst: l2.Var("a"), Cond: l2.Lt, L: l2.Var("b"), R: l2.Num(1)}, []string{"b"}, []string{"a"}},
		{l2.CJump{Cond: l2.Eq, L: l2.Var("a"), R: l2.Var("b"), True: "t", False: "f"}, []string{"a", "b"}, []string{}},
		{l2.Lea{Dst: l2.Var("a"), Base: l2.RDI, Index: l2.Var("b"), Scale: 8}, []string{"rdi", "b"}, []string{"a"}},
		{l2.Inc{Dst: l2.Var("b")}, []string{"b"}, []string{"b"}},
		{l2.Goto{Target: "l"}, []string{}, []string{}},
		{l2.LabelDef{Label: "l"}, []string{}, []string{}},
		{l2.Return{}, []string{"rax", "r12", "r13", "r14", "r15", "rbp", "rbx"}, []string{}},
		{l2.Call{Callee: l2.Label("g"), Args: 0}, []string{}, []string{"r10", "r11", "r8", "r9", "rax", "rcx", "rdi", "rdx", "rsi"}},
	} {
		gen, kill := GenKill(conv, u, tc.in)

		assert.ElementsMatch(t, tc.gen, u.Names(gen), "gen of %v", tc.in)
		assert.ElementsMatch(t, tc.kill, u.Names(kill), "kill of %v", tc.in)
	}
}

func TestGenKillCall(t *testing.T) {
	conv := abi.SysV()

	f := &l2.Func{Code: []l2.Instr{
		l2.Call{Callee: l2.Var("fn"), Args: 2},
	}}

	u := NewUniverse(conv, f)

	for n, want := range [][]string{
		{},
		{"rdi"},
		{"rdi", "rsi"},
		{"rdi", "rsi", "rdx"},
		{"rdi", "rsi", "rdx", "rcx"},
		{"rdi", "rsi", "rdx", "rcx", "r8"},
		{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
		{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
	} {
		gen, _ := GenKill(conv, u, l2.Call{Callee: l2.Runtime("print"), Args: int64(n)})
		assert.ElementsMatch(t, want, u.Names(gen), "args %d", n)
	}

	gen, _ := GenKill(conv, u, l2.Call{Callee: l2.Var("fn"), Args: 1})
	assert.ElementsMatch(t, []string{"rdi", "fn"}, u.Names(gen))

	gen, _ = GenKill(conv, u, l2.Call{Callee: l2.R10, Args: 0})
	assert.ElementsMatch(t, []string{"r10"}, u.Names(gen))
}

func TestAnalyzeLoop(t *testing.T) {
	conv := abi.SysV()
	f := parse(t, loop)

	tb, err := Analyze(context.Background(), conv, f)
	require.NoError(t, err)

	checkFixpoint(t, tb)

	vars := func(s Set) (r []string) {
		for _, op := range tb.U.Operands(s) {
			if v, ok := op.(l2.Var); ok {
				r = append(r, string(v))
			}
		}

		return r
	}

	assert.ElementsMatch(t, []string{"x", "s"}, vars(tb.In[2]), "live at :loop")
	assert.ElementsMatch(t, []string{"s"}, vars(tb.In[8]), "live at :done")
	assert.Empty(t, vars(tb.Out[9]), "after s is moved to rax")
	assert.True(t, tb.Out[10].Empty(), "return has no successors")
	assert.True(t, tb.In[0].IsSet(mustID(t, tb.U, l2.RDI)))
	assert.True(t, tb.In[0].IsSet(mustID(t, tb.U, l2.RBX)), "callee-saved registers are live through the function")

	// unreachable instruction is analyzed but nothing flows out of it
	assert.True(t, tb.Out[11].Empty())
	assert.Empty(t, vars(tb.In[11]))
}

func TestAnalyzeEmpty(t *testing.T) {
	tb, err := Analyze(context.Background(), abi.SysV(), &l2.Func{Name: "empty"})
	require.NoError(t, err)

	assert.Empty(t, tb.In)
	assert.Empty(t, tb.Out)
	assert.Equal(t, 1, tb.Passes)
}

func TestUniverse(t *testing.T) {
	conv := abi.SysV()
	f := parse(t, loop)

	u := NewUniverse(conv, f)

	assert.Equal(t, 15, u.Regs())
	assert.Equal(t, 15+3, u.Len())

	for i, r := range conv.Palette {
		id, ok := u.ID(r)
		require.True(t, ok)
		assert.Equal(t, ID(i), id)
		assert.True(t, u.IsReg(id))
	}

	_, ok := u.ID(l2.RSP)
	assert.False(t, ok)

	_, ok = u.ID(l2.Num(1))
	assert.False(t, ok)

	id, ok := u.ID(l2.Var("x"))
	require.True(t, ok)
	assert.Equal(t, ID(15), id)
	assert.Equal(t, l2.Var("x"), u.Operand(id))
	assert.False(t, u.IsReg(id))
}

func mustID(t *testing.T, u *Universe, op l2.Operand) ID {
	t.Helper()

	id, ok := u.ID(op)
	require.True(t, ok, "not a node: %v", op)

	return id
}

func checkFixpoint(t *testing.T, tb *Tables) {
	t.Helper()

	for i := range tb.In {
		var out Set

		for _, s := range tb.Flow.Succ[i] {
			out.Merge(tb.In[s])
		}

		in := out.Copy()
		in.Substract(tb.Kill[i])
		in.Merge(tb.Gen[i])

		assert.True(t, out.Equal(tb.Out[i]), "out[%d]", i)
		assert.True(t, in.Equal(tb.In[i]), "in[%d]", i)
	}
}
