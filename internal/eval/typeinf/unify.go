package typeinf

import "github.com/jward/taproot/internal/eval"

// Unify makes a and b equal up to variable binding: a free variable binds
// to whatever it meets first, and two concrete types must agree
// structurally. A structural conflict is TypeMismatch. Self-referential
// bindings are rejected by an occurs check, so the domain never builds an
// infinite type.
func (d *Domain) Unify(a, b eval.Value) (eval.Value, error) {
	a = d.walk(a)
	b = d.walk(b)

	if av, ok := a.(Var); ok {
		if bv, ok := b.(Var); ok && av.ID == bv.ID {
			return a, nil
		}
		if d.occurs(av.ID, b) {
			return nil, eval.Errf(eval.TypeMismatch, "cannot construct the infinite type %s = %s", av, render(b))
		}
		d.subst[av.ID] = b
		return b, nil
	}
	if bv, ok := b.(Var); ok {
		if d.occurs(bv.ID, a) {
			return nil, eval.Errf(eval.TypeMismatch, "cannot construct the infinite type %s = %s", bv, render(a))
		}
		d.subst[bv.ID] = a
		return a, nil
	}

	// A choice unifies through whichever alternatives survive against the
	// other side.
	if ac, ok := a.(Choice); ok {
		return d.unifyChoice(ac, b)
	}
	if bc, ok := b.(Choice); ok {
		return d.unifyChoice(bc, a)
	}

	switch a := a.(type) {
	case Unit:
		if _, ok := b.(Unit); ok {
			return a, nil
		}
	case Int:
		if _, ok := b.(Int); ok {
			return a, nil
		}
	case Bool:
		if _, ok := b.(Bool); ok {
			return a, nil
		}
	case String:
		if _, ok := b.(String); ok {
			return a, nil
		}
	case Float:
		if _, ok := b.(Float); ok {
			return a, nil
		}
	case Product:
		bp, ok := b.(Product)
		if !ok || len(a.Elems) != len(bp.Elems) {
			break
		}
		elems := make([]eval.Value, len(a.Elems))
		for i := range a.Elems {
			e, err := d.Unify(a.Elems[i], bp.Elems[i])
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return Product{Elems: elems}, nil
	case Function:
		bf, ok := b.(Function)
		if !ok {
			break
		}
		params, err := d.Unify(a.Params, bf.Params)
		if err != nil {
			return nil, err
		}
		ret, err := d.Unify(a.Return, bf.Return)
		if err != nil {
			return nil, err
		}
		return Function{Params: params.(Product), Return: ret}, nil
	}
	return nil, eval.Errf(eval.TypeMismatch, "cannot unify %s with %s", render(a), render(b))
}

// unifyChoice keeps the alternatives of c that unify with t. No survivor
// is a mismatch; one survivor collapses the choice.
func (d *Domain) unifyChoice(c Choice, t eval.Value) (eval.Value, error) {
	var survivors []eval.Value
	for _, alt := range c.Alts {
		// Speculative unification: bindings made by a failing alternative
		// must not leak.
		saved := d.snapshot()
		u, err := d.Unify(alt, t)
		if err != nil {
			d.restore(saved)
			continue
		}
		survivors = append(survivors, u)
	}
	if len(survivors) == 0 {
		return nil, eval.Errf(eval.TypeMismatch, "no alternative of %s unifies with %s", c, render(t))
	}
	if len(survivors) == 1 {
		return survivors[0], nil
	}
	return Choice{Alts: survivors}, nil
}

// walk follows the substitution chain for variables, one level of structure
// at a time.
func (d *Domain) walk(t eval.Value) eval.Value {
	for {
		v, ok := t.(Var)
		if !ok {
			return t
		}
		bound, ok := d.subst[v.ID]
		if !ok {
			return t
		}
		t = bound
	}
}

// Canonical substitutes bound variables throughout t, yielding the most
// resolved form the current substitution allows.
func (d *Domain) Canonical(t eval.Value) eval.Value {
	t = d.walk(t)
	switch t := t.(type) {
	case Product:
		elems := make([]eval.Value, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = d.Canonical(e)
		}
		return Product{Elems: elems}
	case Function:
		return Function{
			Params: d.Canonical(t.Params).(Product),
			Return: d.Canonical(t.Return),
		}
	case Choice:
		alts := make([]eval.Value, len(t.Alts))
		for i, a := range t.Alts {
			alts[i] = d.Canonical(a)
		}
		return Choice{Alts: alts}
	}
	return t
}

// occurs reports whether variable id appears in t under the current
// substitution.
func (d *Domain) occurs(id int64, t eval.Value) bool {
	t = d.walk(t)
	switch t := t.(type) {
	case Var:
		return t.ID == id
	case Product:
		for _, e := range t.Elems {
			if d.occurs(id, e) {
				return true
			}
		}
	case Function:
		return d.occurs(id, t.Params) || d.occurs(id, t.Return)
	case Choice:
		for _, a := range t.Alts {
			if d.occurs(id, a) {
				return true
			}
		}
	}
	return false
}

func (d *Domain) snapshot() map[int64]eval.Value {
	saved := make(map[int64]eval.Value, len(d.subst))
	for k, v := range d.subst {
		saved[k] = v
	}
	return saved
}

func (d *Domain) restore(saved map[int64]eval.Value) {
	d.subst = saved
}
