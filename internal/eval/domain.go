// Package eval is the abstract-interpretation core: one generic term walk
// that is parameterized by a Domain, a pluggable notion of "value". The two
// shipped domains evaluate programs concretely (internal/eval/concrete) and
// infer their types (internal/eval/typeinf) through the same walk; a new
// analysis plugs in by implementing Domain, with no evaluator changes.
package eval

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Value is a domain value. Each domain defines its own closed set of
// variants; the driver treats values as opaque and hands them back to the
// active domain, which downcasts to its own types.
type Value any

// Thunk is a suspended computation. Thunks are laziness, not scheduling:
// the domain operation that receives one decides whether and when it is
// forced, and each force point is defined by the operation's contract
// (arguments before a body runs, exactly one concrete branch, both type
// branches).
type Thunk func(*Context) (Value, error)

// Domain is the capability set a value domain implements. The evaluator is
// written once against this interface; which domain is active is invisible
// to the term walk.
type Domain interface {
	// Unit returns the domain's unit value.
	Unit() Value
	// Integer wraps an arbitrary-precision integer literal.
	Integer(n *big.Int) Value
	// Boolean wraps a boolean literal.
	Boolean(b bool) Value
	// String wraps a string literal.
	String(s string) Value
	// Float wraps a decimal floating literal.
	Float(d decimal.Decimal) Value

	// LiftNumeric applies a unary numeric operator to v's payload, failing
	// with InvalidOperand (concrete) or InvalidType (types) when v is not
	// numeric.
	LiftNumeric(op UnaryOp, v Value) (Value, error)
	// LiftNumeric2 applies a binary numeric operator, coercing per the
	// domain's table: integer pairs stay integral via g, any float operand
	// promotes both sides to double via f.
	LiftNumeric2(f FloatOp, g IntOp, a, b Value) (Value, error)

	// IfThenElse branches on cond with domain-specific control semantics:
	// the concrete domain forces exactly one arm, the type domain forces
	// both and unions the results.
	IfThenElse(ctx *Context, cond Value, then, alt Thunk) (Value, error)

	// Abstract builds a closure-shaped value over params and body,
	// capturing the context's current environment.
	Abstract(ctx *Context, params []Name, body Thunk) (Value, error)
	// Apply applies fn to the argument computations, failing with
	// NotCallable when fn is not closure-shaped.
	Apply(ctx *Context, fn Value, args []Thunk) (Value, error)

	// Interface wraps v together with the session's global environment for
	// later capability extraction.
	Interface(ctx *Context, v Value) (Value, error)
	// Environment extracts the environment captured in an interface-shaped
	// value. For any other value it yields the empty environment, which is
	// not an error.
	Environment(v Value) *Environment
}
