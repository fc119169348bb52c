package typeinf

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/jward/taproot/internal/eval"
)

// Domain is the type-inference domain. Unlike the concrete domain it
// carries state: the substitution accumulated by unification. One Domain
// belongs to one analysis session.
type Domain struct {
	subst map[int64]eval.Value
}

// New returns a type domain with an empty substitution.
func New() *Domain {
	return &Domain{subst: make(map[int64]eval.Value)}
}

var _ eval.Domain = (*Domain)(nil)

// Literals erase to their base type; the payload is ignored.

func (*Domain) Unit() eval.Value                 { return Unit{} }
func (*Domain) Integer(*big.Int) eval.Value      { return Int{} }
func (*Domain) Boolean(bool) eval.Value          { return Bool{} }
func (*Domain) String(string) eval.Value         { return String{} }
func (*Domain) Float(decimal.Decimal) eval.Value { return Float{} }

// LiftNumeric types a unary numeric operator: Int stays Int, Float stays
// Float, anything else is InvalidType.
func (d *Domain) LiftNumeric(_ eval.UnaryOp, v eval.Value) (eval.Value, error) {
	switch d.walk(v).(type) {
	case Int:
		return Int{}, nil
	case Float:
		return Float{}, nil
	}
	return nil, eval.Errf(eval.InvalidType, "numeric operation on %s", render(d.Canonical(v)))
}

// LiftNumeric2 types a binary numeric operator: an Int pair stays Int, any
// Float present makes the result Float, and any other combination must
// already be unifiable, with the unified type as result.
func (d *Domain) LiftNumeric2(_ eval.FloatOp, _ eval.IntOp, a, b eval.Value) (eval.Value, error) {
	left := d.walk(a)
	right := d.walk(b)
	if isInt(left) && isInt(right) {
		return Int{}, nil
	}
	if isFloat(left) || isFloat(right) {
		return Float{}, nil
	}
	return d.Unify(a, b)
}

// IfThenElse first requires the condition to be Bool, then forces BOTH
// arms: the analysis is path-insensitive, so the result is the
// nondeterministic union of the two arm types rather than either one.
func (d *Domain) IfThenElse(ctx *eval.Context, cond eval.Value, then, alt eval.Thunk) (eval.Value, error) {
	if _, err := d.Unify(cond, Bool{}); err != nil {
		return nil, err
	}
	thenT, err := then(ctx)
	if err != nil {
		return nil, err
	}
	altT, err := alt(ctx)
	if err != nil {
		return nil, err
	}
	return d.choose(thenT, altT), nil
}

// choose combines two branch results. Equal canonical types collapse to
// one; otherwise both alternatives are kept, flattening nested choices.
func (d *Domain) choose(a, b eval.Value) eval.Value {
	var alts []eval.Value
	for _, t := range []eval.Value{d.Canonical(a), d.Canonical(b)} {
		if c, ok := t.(Choice); ok {
			alts = appendAlt(alts, c.Alts...)
			continue
		}
		alts = appendAlt(alts, t)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return Choice{Alts: alts}
}

func appendAlt(alts []eval.Value, ts ...eval.Value) []eval.Value {
	for _, t := range ts {
		dup := false
		for _, have := range alts {
			if equal(have, t) {
				dup = true
				break
			}
		}
		if !dup {
			alts = append(alts, t)
		}
	}
	return alts
}

// Abstract gives each parameter a fresh address bound to a fresh type
// variable, infers the body under the extended environment, and yields a
// Function from the variable tuple to the body type.
func (d *Domain) Abstract(ctx *eval.Context, params []eval.Name, body eval.Thunk) (eval.Value, error) {
	env := ctx.Env()
	vars := make([]eval.Value, len(params))
	for i, p := range params {
		tv := Var{ID: ctx.FreshID()}
		addr := ctx.Alloc()
		ctx.Assign(addr, tv)
		env = env.Extend(p, addr)
		vars[i] = tv
	}
	ret, err := ctx.WithEnv(env, func() (eval.Value, error) {
		return body(ctx)
	})
	if err != nil {
		return nil, err
	}
	return Function{Params: Product{Elems: vars}, Return: ret}, nil
}

// Apply infers each argument, invents a fresh return variable, and unifies
// the callee with a Function from the argument tuple to that variable. The
// unified return slot is the result; failure is TypeMismatch.
func (d *Domain) Apply(ctx *eval.Context, fn eval.Value, args []eval.Thunk) (eval.Value, error) {
	argTypes := make([]eval.Value, len(args))
	for i, arg := range args {
		t, err := arg(ctx)
		if err != nil {
			return nil, err
		}
		argTypes[i] = t
	}
	ret := Var{ID: ctx.FreshID()}
	want := Function{Params: Product{Elems: argTypes}, Return: ret}
	if _, err := d.Unify(fn, want); err != nil {
		return nil, err
	}
	return d.Canonical(ret), nil
}

// Interface has no typing rule. The engine never routes interface
// construction through this domain; reaching it is a defect in the caller.
func (d *Domain) Interface(_ *eval.Context, _ eval.Value) (eval.Value, error) {
	return nil, eval.Errf(eval.InvalidType, "interface construction is not typable")
}

// Environment likewise: type values capture no environment.
func (d *Domain) Environment(eval.Value) *eval.Environment {
	return eval.EmptyEnvironment()
}

func isInt(t eval.Value) bool {
	_, ok := t.(Int)
	return ok
}

func isFloat(t eval.Value) bool {
	_, ok := t.(Float)
	return ok
}
