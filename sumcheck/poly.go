// Package sumcheck implements the round-by-round multilinear sumcheck
// driver (§4.8): each round the prover sends a low-degree univariate
// polynomial evaluated at {0,...,d}, the verifier checks it is
// consistent with the running claim and draws the next challenge.
package sumcheck

import "github.com/opaquelabs/veriql/scalar"

// RoundMessage is a round's univariate polynomial g_j, represented by
// its evaluations at 0, 1, ..., d (the wire-efficient form: no need to
// send coefficients, since the verifier only ever evaluates at points).
type RoundMessage struct {
	Evals []scalar.Element // Evals[t] = g_j(t)
}

// Degree returns d.
func (m RoundMessage) Degree() int { return len(m.Evals) - 1 }

// InterpolateAt evaluates the degree-d polynomial implied by m's
// evaluations at 0..d, at an arbitrary field point x, via Lagrange
// interpolation over the known integer nodes.
func (m RoundMessage) InterpolateAt(x scalar.Element) scalar.Element {
	d := m.Degree()
	acc := scalar.Zero
	for i := 0; i <= d; i++ {
		term := m.Evals[i]
		num := scalar.One
		den := scalar.One
		for j := 0; j <= d; j++ {
			if j == i {
				continue
			}
			xi := scalar.TryFromInt64(int64(i))
			xj := scalar.TryFromInt64(int64(j))
			num = scalar.Mul(num, scalar.Sub(x, xj))
			den = scalar.Mul(den, scalar.Sub(xi, xj))
		}
		term = scalar.Mul(term, scalar.Mul(num, scalar.Inverse(den)))
		acc = scalar.Add(acc, term)
	}
	return acc
}

// EvalAtNode returns g_j(t) for a small nonnegative integer node t that
// is already in Evals (no interpolation needed); panics if t is out of
// the recorded range, since every caller only asks for 0 or 1.
func (m RoundMessage) EvalAtNode(t int) scalar.Element {
	return m.Evals[t]
}
