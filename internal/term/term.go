// Package term defines the language-neutral term representation that the
// evaluator walks. Per-language frontends in internal/syntax lower their
// concrete syntax trees into these terms; the evaluator in internal/eval
// never sees anything language-specific.
package term

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Term is a node in the lowered program. The set of variants is closed:
// the evaluator driver switches exhaustively over them.
type Term interface {
	isTerm()
}

// Unit is the empty value, produced by empty blocks and bare declarations.
type Unit struct{}

// Int is an integer literal. The payload is arbitrary precision.
type Int struct {
	Value *big.Int
}

// Float is a floating literal, kept as the exact decimal written in source.
type Float struct {
	Value decimal.Decimal
}

// Bool is a boolean literal.
type Bool struct {
	Value bool
}

// String is a string literal.
type String struct {
	Value string
}

// Var references a name in the enclosing lexical environment.
type Var struct {
	Name string
}

// Lam is a function abstraction. Params are ordered and may repeat; on a
// repeat the last binding wins at lookup time.
type Lam struct {
	Params []string
	Body   Term
}

// App applies Fn to Args.
type App struct {
	Fn   Term
	Args []Term
}

// If is a conditional. Else may be Unit when the source had no else arm.
type If struct {
	Cond Term
	Then Term
	Else Term
}

// Let binds Name to Value for the extent of Body.
type Let struct {
	Name  string
	Value Term
	Body  Term
}

// Binary is a numeric binary operation. Op is one of + - * / %.
type Binary struct {
	Op    string
	Left  Term
	Right Term
}

// Unary is a numeric unary operation. Op is "-".
type Unary struct {
	Op      string
	Operand Term
}

// Seq evaluates its terms in order and yields the last one's value.
// An empty Seq yields Unit.
type Seq struct {
	Terms []Term
}

// Module wraps a file's top-level body. Evaluating a Module yields an
// interface value that captures the global environment, so callers can
// later extract the file's exported bindings.
type Module struct {
	Body Term
}

func (Unit) isTerm()   {}
func (Int) isTerm()    {}
func (Float) isTerm()  {}
func (Bool) isTerm()   {}
func (String) isTerm() {}
func (Var) isTerm()    {}
func (Lam) isTerm()    {}
func (App) isTerm()    {}
func (If) isTerm()     {}
func (Let) isTerm()    {}
func (Binary) isTerm() {}
func (Unary) isTerm()  {}
func (Seq) isTerm()    {}
func (Module) isTerm() {}
