package sumcheck

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

// product is one product-of-MLEs term the prover folds round by round:
// Vecs holds one slice per multiplicand (all the same current length),
// halved in place at the end of every round; Coeff bakes in both the
// subpolynomial's own coefficient and the outer random linear-combination
// weight it was assigned.
type product struct {
	vecs  [][]scalar.Element
	coeff scalar.Element
}

func (p *product) degree() int { return len(p.vecs) }

// Driver drives the prover side of §4.8's round loop: build once from a
// plan node's subpolynomials, then call ProveRound/FoldRound ν times.
type Driver struct {
	products  []*product
	n         int // current remaining length, halves each round
	maxDegree int
}

// NewDriver flattens a set of subpolynomials (each already multiplied,
// for Identity constraints, by the equality-polynomial vector eqVec) into
// per-product fold state, weighting each by its outer random coefficient.
//
// arena supplies the witness vectors subpolynomial Terms reference;
// outerWeights[i] is r_i for subpolys[i]; n is the padded hypercube size
// (2^ν, the largest MLE length in the plan, §4.8).
func NewDriver(arena *mle.Arena, subpolys []mle.Subpolynomial, outerWeights []scalar.Element, eqVec []scalar.Element, n int) *Driver {
	d := &Driver{n: n}
	for si, sp := range subpolys {
		for _, prod := range sp.Products {
			coeff := scalar.Mul(prod.Coeff, outerWeights[si])
			var vecs [][]scalar.Element
			if sp.Kind == mle.Identity {
				vecs = append(vecs, eqVec)
			}
			for _, term := range prod.Terms {
				v := padToLen(arena.Get(term.Vec), n)
				if term.Negate {
					v = negate(v)
				}
				vecs = append(vecs, v)
			}
			p := &product{vecs: vecs, coeff: coeff}
			if p.degree() > d.maxDegree {
				d.maxDegree = p.degree()
			}
			d.products = append(d.products, p)
		}
	}
	return d
}

// padToLen zero-extends vec to exactly n elements. Unlike mle.PadToPow2
// (which pads a vector to the next power of two of its OWN length), this
// pads every term in a subpolynomial up to the shared hypercube size n —
// required because a single Driver mixes products built from witness
// vectors of different natural lengths (e.g. a source table's row count
// vs. a candidate table's), and ProveRound/FoldRound index every term's
// vector assuming they are all exactly d.n long.
func padToLen(vec []scalar.Element, n int) []scalar.Element {
	if len(vec) == n {
		return vec
	}
	out := make([]scalar.Element, n)
	copy(out, vec)
	return out
}

func negate(v []scalar.Element) []scalar.Element {
	out := make([]scalar.Element, len(v))
	for i, e := range v {
		out[i] = scalar.Neg(e)
	}
	return out
}

// MaxDegree returns d, the number of points (0..d) each round message
// must carry.
func (d *Driver) MaxDegree() int { return d.maxDegree }

// NumVars returns ν, the number of sumcheck rounds remaining to run from
// the initial state.
func (d *Driver) NumVars() int { return mle.NumVars(d.n) }

// ProveRound computes this round's message: for t in 0..maxDegree, the
// sum over the remaining hypercube of the linear interpolation of every
// product's constituent vectors at the folding variable's value t. The
// per-product inner loop is data-parallel across remaining rows and run
// through an errgroup worker pool (§5); results are summed back in a
// fixed order so the observable output matches the sequential schedule.
func (d *Driver) ProveRound() RoundMessage {
	half := d.n / 2
	evals := make([]scalar.Element, d.maxDegree+1)

	for t := 0; t <= d.maxDegree; t++ {
		tVal := scalar.TryFromInt64(int64(t))
		var g errgroup.Group
		partials := make([]scalar.Element, len(d.products))
		for pi, p := range d.products {
			pi, p := pi, p
			g.Go(func() error {
				acc := scalar.Zero
				for i := 0; i < half; i++ {
					term := scalar.One
					for _, vec := range p.vecs {
						v0, v1 := vec[2*i], vec[2*i+1]
						val := scalar.Add(v0, scalar.Mul(tVal, scalar.Sub(v1, v0)))
						term = scalar.Mul(term, val)
					}
					acc = scalar.Add(acc, term)
				}
				partials[pi] = scalar.Mul(acc, p.coeff)
				return nil
			})
		}
		_ = g.Wait()
		sum := scalar.Zero
		for _, pv := range partials {
			sum = scalar.Add(sum, pv)
		}
		evals[t] = sum
	}
	return RoundMessage{Evals: evals}
}

// FoldRound binds the verifier's challenge r for this round, halving
// every product's constituent vectors in place.
func (d *Driver) FoldRound(ctx context.Context, r scalar.Element) {
	half := d.n / 2
	var g errgroup.Group
	for _, p := range d.products {
		p := p
		g.Go(func() error {
			for k, vec := range p.vecs {
				next := make([]scalar.Element, half)
				for i := 0; i < half; i++ {
					v0, v1 := vec[2*i], vec[2*i+1]
					next[i] = scalar.Add(v0, scalar.Mul(r, scalar.Sub(v1, v0)))
				}
				p.vecs[k] = next
			}
			return nil
		})
	}
	_ = g.Wait()
	d.n = half
}

// FinalEvaluation returns Σ_p coeff_p·Π_k vecs[k][0] once every round has
// folded down to a single remaining point (d.n == 1).
func (d *Driver) FinalEvaluation() scalar.Element {
	acc := scalar.Zero
	for _, p := range d.products {
		term := p.coeff
		for _, vec := range p.vecs {
			term = scalar.Mul(term, vec[0])
		}
		acc = scalar.Add(acc, term)
	}
	return acc
}

// CombineOpenedEvaluations recomputes FinalEvaluation's result without
// ever materializing a product's witness vectors: it is NewDriver's same
// per-subpolynomial combination (Σ_si Σ_prod outerWeights[si]·prod.Coeff·
// (eqAtR, if Identity)·Π_term evalAt(term.Vec) (negated per term)), fed
// opened MLE evaluations at the sumcheck point r instead. A verifier uses
// this to compute the value VerifierState.FinalClaim() must match, having
// only the evaluations a prover opened against real commitments — never
// the vectors themselves (§4.8, §4.9).
func CombineOpenedEvaluations(subpolys []mle.Subpolynomial, outerWeights []scalar.Element, eqAtR scalar.Element, evalAt func(mle.Ref) scalar.Element) scalar.Element {
	acc := scalar.Zero
	for si, sp := range subpolys {
		for _, prod := range sp.Products {
			term := scalar.Mul(prod.Coeff, outerWeights[si])
			if sp.Kind == mle.Identity {
				term = scalar.Mul(term, eqAtR)
			}
			for _, t := range prod.Terms {
				v := evalAt(t.Vec)
				if t.Negate {
					v = scalar.Neg(v)
				}
				term = scalar.Mul(term, v)
			}
			acc = scalar.Add(acc, term)
		}
	}
	return acc
}
