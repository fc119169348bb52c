// Package concrete implements the runtime value domain: evaluating a term
// with this domain executes it, producing closures and fully computed
// primitive values.
package concrete

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jward/taproot/internal/eval"
)

// Unit is the result of empty blocks and bare declarations.
type Unit struct{}

// Integer is an arbitrary-precision integer.
type Integer struct {
	Value *big.Int
}

// Boolean is a runtime boolean.
type Boolean struct {
	Value bool
}

// String is a runtime string.
type String struct {
	Value string
}

// Float is a runtime floating value. The payload is the exact decimal
// written in source; arithmetic converts it to a double, which is a lossy,
// accepted precision boundary.
type Float struct {
	Value decimal.Decimal
}

// Closure is a deferred computation: ordered parameter names, a suspended
// body, and the environment frozen at the abstraction site. The store is
// never captured; it is threaded through the session.
type Closure struct {
	Params []eval.Name
	Body   eval.Thunk
	Env    *eval.Environment
}

// Interface pairs a value with the global environment that was current when
// it was built, for later capability extraction.
type Interface struct {
	Value eval.Value
	Env   *eval.Environment
}

func (Unit) String() string      { return "()" }
func (v Integer) String() string { return v.Value.String() }
func (v Boolean) String() string { return fmt.Sprintf("%t", v.Value) }
func (v String) String() string  { return fmt.Sprintf("%q", v.Value) }
func (v Float) String() string   { return v.Value.String() }

func (v Closure) String() string {
	names := make([]string, len(v.Params))
	for i, p := range v.Params {
		names[i] = string(p)
	}
	return "fn(" + strings.Join(names, ", ") + ")"
}

func (v Interface) String() string {
	names := v.Env.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return "interface{" + strings.Join(parts, ", ") + "}"
}

// Domain is the concrete evaluation domain. It is stateless; all session
// state lives in the eval.Context.
type Domain struct{}

// New returns the concrete domain.
func New() Domain {
	return Domain{}
}

var _ eval.Domain = Domain{}

func (Domain) Unit() eval.Value                   { return Unit{} }
func (Domain) Integer(n *big.Int) eval.Value      { return Integer{Value: n} }
func (Domain) Boolean(b bool) eval.Value          { return Boolean{Value: b} }
func (Domain) String(s string) eval.Value         { return String{Value: s} }
func (Domain) Float(d decimal.Decimal) eval.Value { return Float{Value: d} }

// LiftNumeric applies op to v's numeric payload: the integral side for
// Integer, the double side for Float. Anything else is InvalidOperand.
func (Domain) LiftNumeric(op eval.UnaryOp, v eval.Value) (eval.Value, error) {
	switch v := v.(type) {
	case Integer:
		return Integer{Value: op.Int(v.Value)}, nil
	case Float:
		return floatValue(op.Float(toDouble(v.Value)))
	}
	return nil, eval.Errf(eval.InvalidOperand, "numeric operation on %s", describe(v))
}

// LiftNumeric2 applies the coercion table: an integer pair stays integral
// via g; any float operand promotes both sides to double via f; a
// non-numeric operand on either side is InvalidOperand. Division and
// modulo by zero fail as InvalidOperand on both the integral and the
// floating path.
func (Domain) LiftNumeric2(f eval.FloatOp, g eval.IntOp, a, b eval.Value) (eval.Value, error) {
	switch a := a.(type) {
	case Integer:
		switch b := b.(type) {
		case Integer:
			n, err := g(a.Value, b.Value)
			if err != nil {
				return nil, err
			}
			return Integer{Value: n}, nil
		case Float:
			return floatValue(f(intToDouble(a.Value), toDouble(b.Value)))
		}
	case Float:
		switch b := b.(type) {
		case Integer:
			return floatValue(f(toDouble(a.Value), intToDouble(b.Value)))
		case Float:
			return floatValue(f(toDouble(a.Value), toDouble(b.Value)))
		}
	default:
		return nil, eval.Errf(eval.InvalidOperand, "numeric operation on %s", describe(a))
	}
	return nil, eval.Errf(eval.InvalidOperand, "numeric operation on %s", describe(b))
}

// IfThenElse requires a Boolean condition and forces exactly one arm. The
// untaken arm is never evaluated and performs no store effects.
func (Domain) IfThenElse(ctx *eval.Context, cond eval.Value, then, alt eval.Thunk) (eval.Value, error) {
	b, ok := cond.(Boolean)
	if !ok {
		return nil, eval.Errf(eval.InvalidCondition, "condition is %s, not a boolean", describe(cond))
	}
	if b.Value {
		return then(ctx)
	}
	return alt(ctx)
}

// Abstract freezes the current environment into a Closure. The body stays
// suspended until application.
func (Domain) Abstract(ctx *eval.Context, params []eval.Name, body eval.Thunk) (eval.Value, error) {
	return Closure{Params: params, Body: body, Env: ctx.Env()}, nil
}

// Apply pairs parameter names with argument computations positionally:
// extra arguments are ignored, missing parameters stay unbound and fail as
// NotBound only if the body looks them up. Every paired argument is
// evaluated in the caller's environment, and the full binding environment
// is built, before the body runs in the closure's environment extended by
// the new bindings (new bindings win on collision).
func (Domain) Apply(ctx *eval.Context, fn eval.Value, args []eval.Thunk) (eval.Value, error) {
	cl, ok := fn.(Closure)
	if !ok {
		return nil, eval.Errf(eval.NotCallable, "cannot apply %s", describe(fn))
	}
	n := len(cl.Params)
	if len(args) < n {
		n = len(args)
	}
	env := cl.Env
	for i := 0; i < n; i++ {
		v, err := args[i](ctx)
		if err != nil {
			return nil, err
		}
		addr := ctx.Alloc()
		ctx.Assign(addr, v)
		env = env.Extend(cl.Params[i], addr)
	}
	return ctx.WithEnv(env, func() (eval.Value, error) {
		return cl.Body(ctx)
	})
}

// Interface wraps v with the session's global environment.
func (Domain) Interface(ctx *eval.Context, v eval.Value) (eval.Value, error) {
	return Interface{Value: v, Env: ctx.Global()}, nil
}

// Environment extracts the captured environment from an interface value.
// Any other value yields the empty environment; that is not an error.
func (Domain) Environment(v eval.Value) *eval.Environment {
	if iv, ok := v.(Interface); ok {
		return iv.Env
	}
	return eval.EmptyEnvironment()
}

// toDouble is the decimal-to-double conversion used by all floating
// arithmetic. It is lossy by design; there is no arbitrary-precision
// floating path.
func toDouble(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func intToDouble(n *big.Int) float64 {
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// floatValue guards the double-to-decimal boundary: division by zero and
// overflow yield Inf or NaN, which have no decimal form and must fail
// instead of panicking inside the decimal constructor.
func floatValue(x float64) (eval.Value, error) {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return nil, eval.Errf(eval.InvalidOperand, "floating result %v is not a finite number", x)
	}
	return Float{Value: decimal.NewFromFloat(x)}, nil
}

// describe names a value's variant for error messages.
func describe(v eval.Value) string {
	switch v.(type) {
	case Unit:
		return "unit"
	case Integer:
		return "an integer"
	case Boolean:
		return "a boolean"
	case String:
		return "a string"
	case Float:
		return "a float"
	case Closure:
		return "a closure"
	case Interface:
		return "an interface value"
	}
	return fmt.Sprintf("%T", v)
}
