package syntax

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/eval"
	"github.com/jward/taproot/internal/eval/concrete"
	"github.com/jward/taproot/internal/eval/typeinf"
	"github.com/jward/taproot/internal/term"
)

func lower(t *testing.T, src, lang string) term.Term {
	t.Helper()
	tm, err := FileTerm(context.Background(), []byte(src), lang)
	require.NoError(t, err)
	return tm
}

// run evaluates a lowered file concretely and returns the result.
func run(t *testing.T, src, lang string) eval.Value {
	t.Helper()
	ctx := eval.NewContext()
	ctx.SetGlobal(eval.EmptyEnvironment())
	v, err := eval.Evaluate(ctx, concrete.New(), lower(t, src, lang))
	require.NoError(t, err)
	return v
}

// infer type-checks a lowered file and returns the canonical result type.
func infer(t *testing.T, src, lang string) eval.Value {
	t.Helper()
	ctx := eval.NewContext()
	ctx.SetGlobal(eval.EmptyEnvironment())
	d := typeinf.New()
	v, err := eval.Evaluate(ctx, d, lower(t, src, lang))
	require.NoError(t, err)
	return d.Canonical(v)
}

func TestLanguageForFile(t *testing.T) {
	cases := map[string]string{
		"main.go":  "go",
		"app.py":   "python",
		"index.js": "javascript",
		"mod.mjs":  "javascript",
	}
	for path, want := range cases {
		lang, ok := LanguageForFile(path)
		require.True(t, ok, path)
		assert.Equal(t, want, lang)
	}
	_, ok := LanguageForFile("readme.txt")
	assert.False(t, ok)
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, []string{"go", "javascript", "python"}, Languages())
}

func TestFileTerm_UnsupportedLanguage(t *testing.T) {
	_, err := FileTerm(context.Background(), []byte("x"), "cobol")
	require.Error(t, err)
}

func TestGo_FunctionAndCall(t *testing.T) {
	src := `package main

func double(n int) int {
	return n * 2
}

var result = double(21)
`
	// A file of bare declarations evaluates to Unit; evaluation succeeding
	// means double(21) was bound and computable.
	v := run(t, src, "go")
	assert.Equal(t, concrete.Unit{}, v)

	typ := infer(t, src, "go")
	assert.Equal(t, typeinf.Unit{}, typ)
}

func TestGo_ExpressionValue(t *testing.T) {
	src := `package main

func half(n int) int {
	return n / 2
}

func main() {
	half(7)
}
`
	tm := lower(t, src, "go")
	// Both declarations become let bindings.
	let, ok := tm.(term.Let)
	require.True(t, ok)
	assert.Equal(t, "half", let.Name)
}

func TestGo_IntegerDivision(t *testing.T) {
	src := `package main

var x = 7 / 2
var y = x
`
	tm := lower(t, src, "go")
	let, ok := tm.(term.Let)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
	bin, ok := let.Value.(term.Binary)
	require.True(t, ok)
	assert.Equal(t, "/", bin.Op)
}

func TestGo_SyntaxErrorSurfaces(t *testing.T) {
	_, err := FileTerm(context.Background(), []byte("package main\n\nfunc {"), "go")
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "go", serr.Lang)
}

func TestGo_UnsupportedConstruct(t *testing.T) {
	src := `package main

func loop() {
	for {
	}
}
`
	_, err := FileTerm(context.Background(), []byte(src), "go")
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Reason, "outside the analyzed subset")
}

func TestPython_DefAndCall(t *testing.T) {
	src := `def identity(x):
    return x

identity(5)
`
	v := run(t, src, "python")
	assert.Equal(t, concrete.Integer{Value: big.NewInt(5)}, v)

	typ := infer(t, src, "python")
	assert.Equal(t, typeinf.Int{}, typ)
}

func TestPython_ConditionalExpression(t *testing.T) {
	src := `x = 1 if True else 2
x
`
	v := run(t, src, "python")
	assert.Equal(t, concrete.Integer{Value: big.NewInt(1)}, v)
}

func TestPython_BranchTypesUnion(t *testing.T) {
	src := `y = 1 if True else 2.5
y
`
	typ := infer(t, src, "python")
	c, ok := typ.(typeinf.Choice)
	require.True(t, ok, "expected a branch union")
	assert.Len(t, c.Alts, 2)
}

func TestPython_Lambda(t *testing.T) {
	src := `inc = lambda n: n + 1
inc(41)
`
	v := run(t, src, "python")
	assert.Equal(t, concrete.Integer{Value: big.NewInt(42)}, v)
}

func TestJavaScript_ConstAndArrow(t *testing.T) {
	src := `const inc = (n) => n + 1;
inc(41);
`
	v := run(t, src, "javascript")
	assert.Equal(t, concrete.Integer{Value: big.NewInt(42)}, v)

	typ := infer(t, src, "javascript")
	assert.Equal(t, typeinf.Int{}, typ)
}

func TestJavaScript_Ternary(t *testing.T) {
	src := `const x = true ? 1 : 2;
x;
`
	v := run(t, src, "javascript")
	assert.Equal(t, concrete.Integer{Value: big.NewInt(1)}, v)
}

func TestJavaScript_NumberClassification(t *testing.T) {
	src := `const a = 2.5;
const b = 3;
a;
`
	tm := lower(t, src, "javascript")
	let, ok := tm.(term.Let)
	require.True(t, ok)
	_, ok = let.Value.(term.Float)
	assert.True(t, ok, "2.5 must lower to a float literal")
}

func TestJavaScript_FunctionDeclaration(t *testing.T) {
	src := `function mul(a, b) {
	return a * b;
}
mul(6, 7);
`
	v := run(t, src, "javascript")
	assert.Equal(t, concrete.Integer{Value: big.NewInt(42)}, v)
}

func TestMixedNumericPromotion(t *testing.T) {
	src := `x = 7 / 2.0
x
`
	v := run(t, src, "python")
	f, ok := v.(concrete.Float)
	require.True(t, ok)
	got, _ := f.Value.Float64()
	assert.InDelta(t, 3.5, got, 1e-12)
}
