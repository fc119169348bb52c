package eval

import "sort"

// Name is an identifier as it appears in the source program.
type Name string

// Addr identifies a storage slot in the Store. Addresses are allocated from
// a counter, never derived from a name, so shadowed bindings never alias.
type Addr int64

// Environment is an immutable mapping from names to addresses. It is a
// persistent association chain: Extend returns a new head node and never
// mutates the receiver, so a closure can capture an Environment and rely on
// it staying frozen. The zero value (a nil pointer) is the empty environment.
type Environment struct {
	parent *Environment
	name   Name
	addr   Addr
}

// EmptyEnvironment returns the environment with no bindings.
func EmptyEnvironment() *Environment {
	return nil
}

// Lookup resolves name to its address. The newest binding for a name
// shadows any older one.
func (e *Environment) Lookup(name Name) (Addr, bool) {
	for n := e; n != nil; n = n.parent {
		if n.name == name {
			return n.addr, true
		}
	}
	return 0, false
}

// Extend returns a new environment in which name resolves to addr. The
// receiver is unchanged and remains valid.
func (e *Environment) Extend(name Name, addr Addr) *Environment {
	return &Environment{parent: e, name: name, addr: addr}
}

// Names returns the distinct bound names, sorted. Shadowed duplicates are
// collapsed. Used by interface-value consumers and for diagnostics.
func (e *Environment) Names() []Name {
	seen := make(map[Name]bool)
	var names []Name
	for n := e; n != nil; n = n.parent {
		if !seen[n.name] {
			seen[n.name] = true
			names = append(names, n.name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Store is the mutable address-to-value arena for one evaluation session.
// It grows monotonically: addresses are never reused, and slots are never
// deleted while the session lives. A Store must not be shared across
// concurrent sessions.
type Store struct {
	slots map[Addr]Value
	next  Addr
}

// NewStore returns an empty store whose first allocation will be address 1.
func NewStore() *Store {
	return &Store{slots: make(map[Addr]Value)}
}

// Alloc reserves a fresh, unbound slot and returns its address.
func (s *Store) Alloc() Addr {
	s.next++
	return s.next
}

// Assign writes value into the slot at addr, overwriting any previous
// value. Assigning to an address that no environment can see yet is legal:
// the binding is published by a later Extend.
func (s *Store) Assign(addr Addr, v Value) {
	s.slots[addr] = v
}

// Read returns the value at addr. Reading an address absent from the store
// is an internal invariant violation, reported as UnboundAddress, never as
// a user-facing analysis error.
func (s *Store) Read(addr Addr) (Value, error) {
	v, ok := s.slots[addr]
	if !ok {
		return nil, Errf(UnboundAddress, "address %d has no slot in the store", addr)
	}
	return v, nil
}

// Len reports how many slots hold a value. Tests use it to observe that an
// unevaluated branch performed no allocations.
func (s *Store) Len() int {
	return len(s.slots)
}
