// Package safemath provides overflow-checked arithmetic on uint64 token
// amounts. Every balance mutation in the protocol goes through these helpers;
// a false second return value means the operation must abort instead of
// wrapping.
package safemath

import "math"

// Add returns a+b, reporting whether the sum fits in uint64.
func Add(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// Sub returns a-b, reporting whether the subtraction stays non-negative.
func Sub(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// Mul returns a*b, reporting whether the product fits in uint64.
func Mul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

// Div returns a/b, reporting whether b is non-zero.
func Div(a, b uint64) (uint64, bool) {
	if b == 0 {
		return 0, false
	}
	return a / b, true
}

// Sqrt returns floor(sqrt(n)) computed with integer Newton iteration, so the
// result is exact for the full uint64 range. float64 rounding makes math.Sqrt
// unreliable near large perfect squares.
func Sqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
