package eval

import (
	"errors"
	"fmt"
)

// Kind classifies evaluation failures. Every failure raised by the core
// carries exactly one kind; callers dispatch on the kind, not on message
// text.
type Kind int

const (
	// NotBound: a name was not found in the environment.
	NotBound Kind = iota
	// UnboundAddress: an address was missing from the store. This is an
	// internal invariant violation, not a property of the analyzed program.
	UnboundAddress
	// InvalidOperand: a numeric operation was given a non-numeric runtime
	// value.
	InvalidOperand
	// InvalidCondition: a concrete conditional was given a non-boolean.
	InvalidCondition
	// InvalidType: a numeric operation was given a non-numeric type during
	// inference.
	InvalidType
	// NotCallable: application of a value that is not closure-shaped.
	NotCallable
	// TypeMismatch: unification failed.
	TypeMismatch
)

func (k Kind) String() string {
	switch k {
	case NotBound:
		return "not bound"
	case UnboundAddress:
		return "unbound address"
	case InvalidOperand:
		return "invalid operand"
	case InvalidCondition:
		return "invalid condition"
	case InvalidType:
		return "invalid type"
	case NotCallable:
		return "not callable"
	case TypeMismatch:
		return "type mismatch"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is an evaluation failure. All failures short-circuit the current
// evaluation session; the core performs no retries and no recovery.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// Errf builds an Error of the given kind.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from err. The second result is false
// when err did not originate in the evaluator.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
