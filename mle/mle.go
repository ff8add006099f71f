package mle

import (
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// NumVars returns ⌈log2(n)⌉, the number of boolean variables a length-n
// vector's multilinear extension needs (§4.8).
func NumVars(n int) int {
	if n <= 1 {
		return 0
	}
	v := 0
	for (1 << v) < n {
		v++
	}
	return v
}

// PadToPow2 extends vec with zeros up to length 2^NumVars(len(vec))
// (§4.8: "columns shorter than N are logically extended by zeros").
func PadToPow2(vec []scalar.Element) []scalar.Element {
	n := 1 << NumVars(len(vec))
	if len(vec) == n {
		return vec
	}
	out := make([]scalar.Element, n)
	copy(out, vec)
	return out
}

// Evaluate computes the multilinear extension of vec (padded to a power
// of two) at point r ∈ S^ν, via the standard "fold in half, weighted by
// (1-r_i) / r_i" recursion.
func Evaluate(vec []scalar.Element, r []scalar.Element) scalar.Element {
	cur := PadToPow2(vec)
	nu := NumVars(len(cur))
	if len(r) != nu {
		qerror.Panic("mle: evaluation point has %d coordinates, expected %d", len(r), nu)
	}
	for _, ri := range r {
		half := len(cur) / 2
		next := make([]scalar.Element, half)
		oneMinusR := scalar.Sub(scalar.One, ri)
		for i := 0; i < half; i++ {
			lo := scalar.Mul(cur[2*i], oneMinusR)
			hi := scalar.Mul(cur[2*i+1], ri)
			next[i] = scalar.Add(lo, hi)
		}
		cur = next
	}
	return cur[0]
}

// EqPoly evaluates the equality polynomial eq(x,tau) at a boolean point
// x (given as bits, x[i] paired with tau[i]; bit i of a row index is
// the variable sumcheck round i binds, so bits are LSB-first) against the
// verifier-chosen point tau (§4.7: "Identity constraints are multiplied
// by the equality polynomial eq(x, τ)").
func EqPoly(x []int, tau []scalar.Element) scalar.Element {
	if len(x) != len(tau) {
		qerror.Panic("mle: eq(x,tau) dimension mismatch")
	}
	acc := scalar.One
	for i, bit := range x {
		if bit == 1 {
			acc = scalar.Mul(acc, tau[i])
		} else {
			acc = scalar.Mul(acc, scalar.Sub(scalar.One, tau[i]))
		}
	}
	return acc
}

// EqVector materializes eq(x,tau) over every x in {0,1}^len(tau), in the
// same LSB-first bit order ProveRound/FoldRound index their vectors by
// (bit b of i pairs with tau[b]) — the vector NewDriver multiplies into
// every Identity subpolynomial's products (§4.7).
func EqVector(tau []scalar.Element) []scalar.Element {
	nu := len(tau)
	n := 1 << nu
	out := make([]scalar.Element, n)
	bits := make([]int, nu)
	for i := 0; i < n; i++ {
		for b := 0; b < nu; b++ {
			bits[b] = (i >> b) & 1
		}
		out[i] = EqPoly(bits, tau)
	}
	return out
}

// EqPolyAtPoint evaluates eq(r, tau) for two full field points of equal
// dimension (used inside the sumcheck driver once r is a challenge
// vector rather than a boolean point).
func EqPolyAtPoint(r, tau []scalar.Element) scalar.Element {
	if len(r) != len(tau) {
		qerror.Panic("mle: eq(r,tau) dimension mismatch")
	}
	acc := scalar.One
	for i := range r {
		term := scalar.Add(
			scalar.Mul(r[i], tau[i]),
			scalar.Mul(scalar.Sub(scalar.One, r[i]), scalar.Sub(scalar.One, tau[i])),
		)
		acc = scalar.Mul(acc, term)
	}
	return acc
}
