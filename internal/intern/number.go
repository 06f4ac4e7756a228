package intern

import "math/big"

// Number is a tagged integer/rational interned value. Small integers that
// fit a native int64 take a fast path; everything else
// (arbitrary-precision integers, irreducible ratios) is backed by
// math/big, which already implements the arbitrary-precision limb
// arithmetic numeric literals need.
type Number struct {
	small     int64
	isSmall   bool
	isInteger bool
	big       *big.Int
	rat       *big.Rat
}

// SmallInt returns the fast-path representation of v.
func SmallInt(v int64) Number {
	return Number{small: v, isSmall: true, isInteger: true}
}

// BigInt returns a Number wrapping an arbitrary-precision integer, used
// when the lexer's digit string does not fit an int64: integers of
// arbitrary size are accepted.
func BigInt(v *big.Int) Number {
	if v.IsInt64() {
		return SmallInt(v.Int64())
	}
	return Number{big: new(big.Int).Set(v), isInteger: true}
}

// Ratio returns a Number wrapping an irreducible ratio.
func Ratio(r *big.Rat) Number {
	rr := new(big.Rat).Set(r)
	if rr.IsInt() {
		return BigInt(rr.Num())
	}
	return Number{rat: rr, isInteger: false}
}

func (n Number) IsInteger() bool { return n.isInteger }

// Int returns the big.Int value of n. It returns nil if n is not an
// integer; callers check IsInteger first, mirroring the rest of the
// sum-type-style APIs in this package.
func (n Number) Int() *big.Int {
	if n.isSmall {
		return big.NewInt(n.small)
	}
	return n.big
}

// Rat returns the big.Rat value of n, converting an integer representation
// on demand.
func (n Number) Rat() *big.Rat {
	if n.rat != nil {
		return n.rat
	}
	return new(big.Rat).SetInt(n.Int())
}

// Add returns the sum of n and m, preserving the small-integer fast path
// when both operands fit and the result does not overflow.
func (n Number) Add(m Number) Number {
	if n.isSmall && m.isSmall {
		sum := n.small + m.small
		overflowed := (n.small > 0 && m.small > 0 && sum < 0) ||
			(n.small < 0 && m.small < 0 && sum > 0)
		if !overflowed {
			return SmallInt(sum)
		}
	}
	if n.isInteger && m.isInteger {
		return BigInt(new(big.Int).Add(n.Int(), m.Int()))
	}
	return Ratio(new(big.Rat).Add(n.Rat(), m.Rat()))
}

// Cmp returns -1, 0 or 1 comparing n and m.
func (n Number) Cmp(m Number) int {
	if n.isInteger && m.isInteger {
		return n.Int().Cmp(m.Int())
	}
	return n.Rat().Cmp(m.Rat())
}

func (n Number) String() string {
	if n.isInteger {
		return n.Int().String()
	}
	return n.Rat().RatString()
}
