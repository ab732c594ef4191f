// Package big6 implements the protocol's signed 6-decimal fixed-point
// arithmetic. All ledger values are int64 scaled by 10^6; intermediate
// products are computed through big.Int to prevent overflow.
//
// The Out variants round away from zero instead of truncating toward it.
// They are selected at call sites where the rounded value is charged to
// the protocol's counterparty, so that the ledger never silently creates
// value: negative accumulator deltas are distributed with Out rounding so
// accumulated fees and losses are never under-charged.
package big6

import "math/big"

// Base is the fixed-point scale: 10^6.
const Base = 1_000_000

var (
	bigBase   = big.NewInt(Base)
	bigBase18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)
)

// Mul returns a*b / 10^6 truncated toward zero.
func Mul(a, b int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	return p.Quo(p, bigBase).Int64()
}

// MulOut returns a*b / 10^6 rounded away from zero.
func MulOut(a, b int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	return divOutBig(p, bigBase)
}

// Div returns a*10^6 / b truncated toward zero.
func Div(a, b int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), bigBase)
	return p.Quo(p, big.NewInt(b)).Int64()
}

// DivOut returns sign(a)*sign(b)*ceil(|a|*10^6 / |b|).
func DivOut(a, b int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), bigBase)
	return divOutBig(p, big.NewInt(b))
}

// divOutBig computes sign(a)*sign(b)*ceilDiv(|a|, |b|).
func divOutBig(a, b *big.Int) int64 {
	s := int64(1)
	if (a.Sign() < 0) != (b.Sign() < 0) {
		s = -1
	}
	q := ceilDiv(new(big.Int).Abs(a), new(big.Int).Abs(b))
	return s * q.Int64()
}

// ceilDiv returns ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b *big.Int) *big.Int {
	if a.Sign() == 0 {
		return big.NewInt(0)
	}
	one := big.NewInt(1)
	q := new(big.Int).Sub(a, one)
	q.Div(q, b)
	return q.Add(q, one)
}

// FromBig18 converts an 18-decimal chain value to 6-decimal fixed point.
// When ceil is set the conversion rounds up (used for keeper fees, which
// are charged in full).
func FromBig18(amount *big.Int, ceil bool) int64 {
	if ceil {
		if amount.Sign() < 0 {
			q := ceilDiv(new(big.Int).Abs(amount), bigBase18)
			return -q.Int64()
		}
		return ceilDiv(new(big.Int).Set(amount), bigBase18).Int64()
	}
	return new(big.Int).Quo(amount, bigBase18).Int64()
}

// Notional returns |Mul(size, price)|.
func Notional(size, price int64) int64 {
	n := Mul(size, price)
	if n < 0 {
		return -n
	}
	return n
}
