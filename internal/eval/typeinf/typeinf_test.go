package typeinf

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/eval"
	"github.com/jward/taproot/internal/term"
)

func newCtx(t *testing.T) *eval.Context {
	t.Helper()
	ctx := eval.NewContext()
	ctx.SetGlobal(eval.EmptyEnvironment())
	return ctx
}

func typeThunk(typ eval.Value) eval.Thunk {
	return func(*eval.Context) (eval.Value, error) { return typ, nil }
}

func TestLiteralsEraseToBaseTypes(t *testing.T) {
	d := New()
	assert.Equal(t, Int{}, d.Integer(big.NewInt(12345)))
	assert.Equal(t, Bool{}, d.Boolean(false))
	assert.Equal(t, String{}, d.String("whatever"))
	assert.Equal(t, Float{}, d.Float(decimal.NewFromFloat(2.5)))
	assert.Equal(t, Unit{}, d.Unit())
}

func TestLiftNumeric_Types(t *testing.T) {
	d := New()

	typ, err := d.LiftNumeric(eval.Negate, Int{})
	require.NoError(t, err)
	assert.Equal(t, Int{}, typ)

	typ, err = d.LiftNumeric(eval.Negate, Float{})
	require.NoError(t, err)
	assert.Equal(t, Float{}, typ)

	_, err = d.LiftNumeric(eval.Negate, Bool{})
	requireKind(t, err, eval.InvalidType)
}

func TestLiftNumeric2_Types(t *testing.T) {
	add, addInt, ok := eval.BinaryOp("+")
	require.True(t, ok)

	d := New()
	typ, err := d.LiftNumeric2(add, addInt, Int{}, Int{})
	require.NoError(t, err)
	assert.Equal(t, Int{}, typ)

	typ, err = d.LiftNumeric2(add, addInt, Int{}, Float{})
	require.NoError(t, err)
	assert.Equal(t, Float{}, typ)

	typ, err = d.LiftNumeric2(add, addInt, Float{}, Float{})
	require.NoError(t, err)
	assert.Equal(t, Float{}, typ)

	// A free variable picks up the other operand's type via unification.
	d = New()
	x := Var{ID: 1}
	typ, err = d.LiftNumeric2(add, addInt, x, Int{})
	require.NoError(t, err)
	assert.Equal(t, Int{}, typ)
	assert.Equal(t, Int{}, d.Canonical(x))

	// Structurally different non-numeric operands cannot unify.
	d = New()
	_, err = d.LiftNumeric2(add, addInt, Bool{}, Int{})
	requireKind(t, err, eval.TypeMismatch)
}

func TestIfThenElse_RequiresBoolCondition(t *testing.T) {
	d := New()
	_, err := d.IfThenElse(newCtx(t), Int{}, typeThunk(Int{}), typeThunk(Int{}))
	requireKind(t, err, eval.TypeMismatch)
}

func TestIfThenElse_ConditionVariableBindsToBool(t *testing.T) {
	d := New()
	x := Var{ID: 1}
	_, err := d.IfThenElse(newCtx(t), x, typeThunk(Int{}), typeThunk(Int{}))
	require.NoError(t, err)
	assert.Equal(t, Bool{}, d.Canonical(x))
}

// Both arms are explored even when their types differ; the result carries
// both.
func TestIfThenElse_BothBranchesEvaluated(t *testing.T) {
	d := New()
	var thenForced, altForced int
	typ, err := d.IfThenElse(newCtx(t), Bool{},
		func(*eval.Context) (eval.Value, error) { thenForced++; return Int{}, nil },
		func(*eval.Context) (eval.Value, error) { altForced++; return String{}, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, thenForced)
	assert.Equal(t, 1, altForced)

	c, ok := typ.(Choice)
	require.True(t, ok, "expected Choice, got %s", render(typ))
	assert.Len(t, c.Alts, 2)
	assert.Contains(t, c.Alts, eval.Value(Int{}))
	assert.Contains(t, c.Alts, eval.Value(String{}))
}

func TestIfThenElse_EqualBranchesCollapse(t *testing.T) {
	d := New()
	typ, err := d.IfThenElse(newCtx(t), Bool{}, typeThunk(Int{}), typeThunk(Int{}))
	require.NoError(t, err)
	assert.Equal(t, Int{}, typ)
}

// The identity function infers fn(a) -> a, and applying it to an integer
// argument pins the return type to Int.
func TestAbstractAndApply_Identity(t *testing.T) {
	d := New()
	ctx := newCtx(t)

	identity := term.Lam{Params: []string{"x"}, Body: term.Var{Name: "x"}}
	typ, err := eval.Evaluate(ctx, d, identity)
	require.NoError(t, err)

	f, ok := typ.(Function)
	require.True(t, ok)
	require.Len(t, f.Params.Elems, 1)
	param, ok := f.Params.Elems[0].(Var)
	require.True(t, ok)
	ret, ok := f.Return.(Var)
	require.True(t, ok)
	assert.Equal(t, param.ID, ret.ID, "identity must return its own parameter variable")

	out, err := d.Apply(ctx, typ, []eval.Thunk{typeThunk(Int{})})
	require.NoError(t, err)
	assert.Equal(t, Int{}, out)
}

func TestApply_NonFunction(t *testing.T) {
	d := New()
	_, err := d.Apply(newCtx(t), Int{}, nil)
	requireKind(t, err, eval.TypeMismatch)
}

func TestApply_ArgumentMismatch(t *testing.T) {
	d := New()
	ctx := newCtx(t)

	f := Function{Params: Product{Elems: []eval.Value{Int{}}}, Return: Bool{}}
	_, err := d.Apply(ctx, f, []eval.Thunk{typeThunk(String{})})
	requireKind(t, err, eval.TypeMismatch)
}

func TestApply_CalleeVariableBecomesFunction(t *testing.T) {
	d := New()
	ctx := newCtx(t)

	callee := Var{ID: ctx.FreshID()}
	out, err := d.Apply(ctx, callee, []eval.Thunk{typeThunk(Int{})})
	require.NoError(t, err)

	// The callee is now known to be a function from (Int) to the result.
	f, ok := d.Canonical(callee).(Function)
	require.True(t, ok)
	assert.True(t, equal(Product{Elems: []eval.Value{Int{}}}, f.Params))
	assert.True(t, equal(out, d.Canonical(f.Return)))
}

func TestInterface_IsADefectInThisDomain(t *testing.T) {
	d := New()
	_, err := d.Interface(newCtx(t), Int{})
	requireKind(t, err, eval.InvalidType)

	env := d.Environment(Int{})
	_, ok := env.Lookup("anything")
	assert.False(t, ok)
}

// Inference through the driver: let inc = fn(n) n + 1 in inc(41).
func TestInference_ThroughDriver(t *testing.T) {
	d := New()
	ctx := newCtx(t)

	prog := term.Let{
		Name: "inc",
		Value: term.Lam{
			Params: []string{"n"},
			Body:   term.Binary{Op: "+", Left: term.Var{Name: "n"}, Right: term.Int{Value: big.NewInt(1)}},
		},
		Body: term.App{
			Fn:   term.Var{Name: "inc"},
			Args: []term.Term{term.Int{Value: big.NewInt(41)}},
		},
	}
	typ, err := eval.Evaluate(ctx, d, prog)
	require.NoError(t, err)
	assert.Equal(t, Int{}, typ)
}
