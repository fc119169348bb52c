package eval

import (
	"math"
	"math/big"
)

// UnaryOp is a generic unary numeric operator: one behavior for integers,
// one for doubles. Domains apply whichever side matches the operand's
// variant.
type UnaryOp interface {
	Int(*big.Int) *big.Int
	Float(float64) float64
}

// FloatOp is the floating side of a binary numeric operator.
type FloatOp func(a, b float64) float64

// IntOp is the integral side of a binary numeric operator. It fails with
// InvalidOperand on inputs the operator has no result for, such as a zero
// divisor.
type IntOp func(a, b *big.Int) (*big.Int, error)

type negOp struct{}

func (negOp) Int(n *big.Int) *big.Int { return new(big.Int).Neg(n) }
func (negOp) Float(x float64) float64 { return -x }

// Negate is the unary minus operator.
var Negate UnaryOp = negOp{}

// BinaryOp returns the float and int halves for a source-level operator
// token. The int half of "/" is truncated division, so 7/2 is 3; dividing
// by an integer zero is InvalidOperand rather than a panic. The float
// halves may return Inf or NaN, which the concrete domain rejects at the
// decimal boundary.
func BinaryOp(op string) (FloatOp, IntOp, bool) {
	switch op {
	case "+":
		return func(a, b float64) float64 { return a + b },
			func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Add(a, b), nil }, true
	case "-":
		return func(a, b float64) float64 { return a - b },
			func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Sub(a, b), nil }, true
	case "*":
		return func(a, b float64) float64 { return a * b },
			func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Mul(a, b), nil }, true
	case "/":
		return func(a, b float64) float64 { return a / b },
			func(a, b *big.Int) (*big.Int, error) {
				if b.Sign() == 0 {
					return nil, Errf(InvalidOperand, "division by zero")
				}
				return new(big.Int).Quo(a, b), nil
			}, true
	case "%":
		return math.Mod,
			func(a, b *big.Int) (*big.Int, error) {
				if b.Sign() == 0 {
					return nil, Errf(InvalidOperand, "modulo by zero")
				}
				return new(big.Int).Rem(a, b), nil
			}, true
	}
	return nil, nil, false
}

// UnaryOpFor returns the operator for a source-level unary token.
func UnaryOpFor(op string) (UnaryOp, bool) {
	if op == "-" {
		return Negate, true
	}
	return nil, false
}
