package typeinf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/eval"
)

func requireKind(t *testing.T, err error, kind eval.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := eval.KindOf(err)
	require.True(t, ok, "error %v did not come from the evaluator", err)
	assert.Equal(t, kind, got)
}

func TestUnify_ReflexiveOnConcreteTypes(t *testing.T) {
	cases := []eval.Value{
		Unit{}, Int{}, Bool{}, String{}, Float{},
		Product{Elems: []eval.Value{Int{}, Bool{}}},
		Function{Params: Product{Elems: []eval.Value{Int{}}}, Return: Float{}},
	}
	for _, typ := range cases {
		d := New()
		u, err := d.Unify(typ, typ)
		require.NoError(t, err, "unify(%s, %s)", render(typ), render(typ))
		assert.True(t, equal(typ, u))
	}
}

func TestUnify_BindsFreeVariable(t *testing.T) {
	d := New()
	x := Var{ID: 1}

	u, err := d.Unify(x, Int{})
	require.NoError(t, err)
	assert.Equal(t, Int{}, u)

	// x is now Int everywhere.
	assert.Equal(t, Int{}, d.Canonical(x))

	// A second unification against a different concrete type fails.
	_, err = d.Unify(x, Bool{})
	requireKind(t, err, eval.TypeMismatch)

	// But against the same type it still succeeds.
	u, err = d.Unify(x, Int{})
	require.NoError(t, err)
	assert.Equal(t, Int{}, u)
}

func TestUnify_VariableChains(t *testing.T) {
	d := New()
	x, y := Var{ID: 1}, Var{ID: 2}

	_, err := d.Unify(x, y)
	require.NoError(t, err)
	_, err = d.Unify(y, String{})
	require.NoError(t, err)

	assert.Equal(t, String{}, d.Canonical(x))
}

func TestUnify_StructuralConflict(t *testing.T) {
	d := New()
	_, err := d.Unify(Int{}, Bool{})
	requireKind(t, err, eval.TypeMismatch)

	_, err = d.Unify(
		Product{Elems: []eval.Value{Int{}}},
		Product{Elems: []eval.Value{Int{}, Int{}}},
	)
	requireKind(t, err, eval.TypeMismatch)

	_, err = d.Unify(
		Function{Params: Product{Elems: []eval.Value{Int{}}}, Return: Int{}},
		Function{Params: Product{Elems: []eval.Value{Int{}}}, Return: Bool{}},
	)
	requireKind(t, err, eval.TypeMismatch)
}

func TestUnify_FunctionsPropagateBindings(t *testing.T) {
	d := New()
	a := Var{ID: 1}
	f := Function{Params: Product{Elems: []eval.Value{a}}, Return: a}
	g := Function{Params: Product{Elems: []eval.Value{Int{}}}, Return: Var{ID: 2}}

	_, err := d.Unify(f, g)
	require.NoError(t, err)
	assert.Equal(t, Int{}, d.Canonical(Var{ID: 2}))
}

// The occurs check rejects self-referential bindings instead of building an
// infinite type.
func TestUnify_OccursCheck(t *testing.T) {
	d := New()
	x := Var{ID: 1}
	_, err := d.Unify(x, Function{Params: Product{Elems: []eval.Value{x}}, Return: Int{}})
	requireKind(t, err, eval.TypeMismatch)
}

func TestUnify_ChoiceKeepsSurvivingAlternatives(t *testing.T) {
	d := New()
	c := Choice{Alts: []eval.Value{Int{}, Bool{}}}

	u, err := d.Unify(c, Int{})
	require.NoError(t, err)
	assert.Equal(t, Int{}, u)

	_, err = d.Unify(Choice{Alts: []eval.Value{Int{}, Bool{}}}, String{})
	requireKind(t, err, eval.TypeMismatch)
}

func TestCanonical_SubstitutesDeeply(t *testing.T) {
	d := New()
	x := Var{ID: 1}
	_, err := d.Unify(x, Int{})
	require.NoError(t, err)

	f := Function{Params: Product{Elems: []eval.Value{x}}, Return: x}
	got := d.Canonical(f)
	want := Function{Params: Product{Elems: []eval.Value{Int{}}}, Return: Int{}}
	assert.True(t, equal(want, got), "got %s", render(got))
}

func TestTypeRendering(t *testing.T) {
	assert.Equal(t, "Int", Int{}.String())
	assert.Equal(t, "t3", Var{ID: 3}.String())
	assert.Equal(t, "(Int, Bool)", Product{Elems: []eval.Value{Int{}, Bool{}}}.String())
	assert.Equal(t, "fn(t1) -> t1",
		Function{Params: Product{Elems: []eval.Value{Var{ID: 1}}}, Return: Var{ID: 1}}.String())
	assert.Equal(t, "Int | String", Choice{Alts: []eval.Value{Int{}, String{}}}.String())
}
