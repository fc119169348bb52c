package eval

import (
	"github.com/jward/taproot/internal/term"
)

// Evaluate is the single entry point of the generic term walk. It recurses
// over t's subterms, asking d to construct and combine values; d consults
// ctx for name resolution and allocation. Both shipped domains plug in here
// without the walk knowing which is active.
func Evaluate(ctx *Context, d Domain, t term.Term) (Value, error) {
	switch t := t.(type) {
	case term.Unit:
		return d.Unit(), nil

	case term.Int:
		return d.Integer(t.Value), nil

	case term.Float:
		return d.Float(t.Value), nil

	case term.Bool:
		return d.Boolean(t.Value), nil

	case term.String:
		return d.String(t.Value), nil

	case term.Var:
		addr, ok := ctx.Env().Lookup(Name(t.Name))
		if !ok {
			return nil, Errf(NotBound, "name %q is not in scope", t.Name)
		}
		return ctx.Read(addr)

	case term.Lam:
		params := make([]Name, len(t.Params))
		for i, p := range t.Params {
			params[i] = Name(p)
		}
		body := suspend(d, t.Body)
		return d.Abstract(ctx, params, body)

	case term.App:
		fn, err := Evaluate(ctx, d, t.Fn)
		if err != nil {
			return nil, err
		}
		args := make([]Thunk, len(t.Args))
		for i, a := range t.Args {
			args[i] = suspend(d, a)
		}
		return d.Apply(ctx, fn, args)

	case term.If:
		cond, err := Evaluate(ctx, d, t.Cond)
		if err != nil {
			return nil, err
		}
		return d.IfThenElse(ctx, cond, suspend(d, t.Then), suspend(d, t.Else))

	case term.Let:
		v, err := Evaluate(ctx, d, t.Value)
		if err != nil {
			return nil, err
		}
		env := ctx.Bind(Name(t.Name), v)
		// A let at the session's top level is a definition: it advances the
		// global environment so interface values and later REPL inputs see
		// it. Anywhere else the binding scopes over the body only.
		if ctx.Env() == ctx.Global() {
			ctx.SetGlobal(env)
			return Evaluate(ctx, d, t.Body)
		}
		return ctx.WithEnv(env, func() (Value, error) {
			return Evaluate(ctx, d, t.Body)
		})

	case term.Binary:
		f, g, ok := BinaryOp(t.Op)
		if !ok {
			return nil, Errf(InvalidOperand, "unknown binary operator %q", t.Op)
		}
		left, err := Evaluate(ctx, d, t.Left)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(ctx, d, t.Right)
		if err != nil {
			return nil, err
		}
		return d.LiftNumeric2(f, g, left, right)

	case term.Unary:
		op, ok := UnaryOpFor(t.Op)
		if !ok {
			return nil, Errf(InvalidOperand, "unknown unary operator %q", t.Op)
		}
		v, err := Evaluate(ctx, d, t.Operand)
		if err != nil {
			return nil, err
		}
		return d.LiftNumeric(op, v)

	case term.Seq:
		result := d.Unit()
		for _, sub := range t.Terms {
			v, err := Evaluate(ctx, d, sub)
			if err != nil {
				return nil, err
			}
			result = v
		}
		return result, nil

	case term.Module:
		v, err := Evaluate(ctx, d, t.Body)
		if err != nil {
			return nil, err
		}
		return d.Interface(ctx, v)
	}
	return nil, Errf(InvalidOperand, "unhandled term %T", t)
}

// suspend defers evaluation of t. The thunk reads the context's environment
// at force time, so the receiving domain operation controls the scope it
// runs in.
func suspend(d Domain, t term.Term) Thunk {
	return func(ctx *Context) (Value, error) {
		return Evaluate(ctx, d, t)
	}
}
