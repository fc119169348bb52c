// Package typeinf implements the type domain: evaluating a term with this
// domain does not run it, it infers a static type via unification. Branch
// analysis is path-insensitive, so a conditional contributes both arms'
// types.
package typeinf

import (
	"fmt"
	"strings"

	"github.com/jward/taproot/internal/eval"
)

// Unit is the type of empty blocks and bare declarations.
type Unit struct{}

// Int is the type of integer literals, regardless of their value.
type Int struct{}

// Bool is the boolean type.
type Bool struct{}

// String is the string type.
type String struct{}

// Float is the floating type.
type Float struct{}

// Product is an ordered tuple of types. Function parameters are a Product.
type Product struct {
	Elems []eval.Value
}

// Function is a function type from a parameter Product to a return type.
type Function struct {
	Params Product
	Return eval.Value
}

// Var is a type variable. IDs come from the session's freshness counter,
// so they are globally fresh within one analysis run.
type Var struct {
	ID int64
}

// Choice is the nondeterministic union of types produced when the two arms
// of a conditional infer differently. Downstream consumers must handle
// multi-result types.
type Choice struct {
	Alts []eval.Value
}

func (Unit) String() string   { return "Unit" }
func (Int) String() string    { return "Int" }
func (Bool) String() string   { return "Bool" }
func (String) String() string { return "String" }
func (Float) String() string  { return "Float" }

func (t Product) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = render(e)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t Function) String() string {
	return "fn" + t.Params.String() + " -> " + render(t.Return)
}

func (t Var) String() string { return fmt.Sprintf("t%d", t.ID) }

func (t Choice) String() string {
	parts := make([]string, len(t.Alts))
	for i, a := range t.Alts {
		parts[i] = render(a)
	}
	return strings.Join(parts, " | ")
}

// render prints any type value, falling back to %v for foreign values that
// should never appear inside a type.
func render(v eval.Value) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

// equal reports structural equality of two types. Variables are equal only
// to themselves; callers canonicalize first when they want equality up to
// the current substitution.
func equal(a, b eval.Value) bool {
	switch a := a.(type) {
	case Unit:
		_, ok := b.(Unit)
		return ok
	case Int:
		_, ok := b.(Int)
		return ok
	case Bool:
		_, ok := b.(Bool)
		return ok
	case String:
		_, ok := b.(String)
		return ok
	case Float:
		_, ok := b.(Float)
		return ok
	case Var:
		bv, ok := b.(Var)
		return ok && a.ID == bv.ID
	case Product:
		bp, ok := b.(Product)
		if !ok || len(a.Elems) != len(bp.Elems) {
			return false
		}
		for i := range a.Elems {
			if !equal(a.Elems[i], bp.Elems[i]) {
				return false
			}
		}
		return true
	case Function:
		bf, ok := b.(Function)
		return ok && equal(a.Params, bf.Params) && equal(a.Return, bf.Return)
	case Choice:
		bc, ok := b.(Choice)
		if !ok || len(a.Alts) != len(bc.Alts) {
			return false
		}
		for i := range a.Alts {
			if !equal(a.Alts[i], bc.Alts[i]) {
				return false
			}
		}
		return true
	}
	return false
}
