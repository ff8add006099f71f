// Package membership implements the log-derivative sub-multiset
// membership/multiplicity gadget (§4.10): given a multi-column source
// relation S and a multi-column candidate relation C, prove that every
// row of C appears in S, and produce the multiplicities vector m (m_i
// is how many times row i of S occurs in C).
//
// The gadget runs in two passes, mirroring mle's own
// FirstRoundBuilder/FinalRoundBuilder split: FirstRound records the two
// relations' one-evaluation lengths, and Multiplicities computes the
// multiplicities witness m separately (from the real data alone, no
// challenge needed yet);
// FinalRound — called once the transcript has squeezed the post-result
// challenges α, β — builds the reciprocal witnesses and the
// subpolynomial constraints that tie them to m via the randomized
// log-derivative identity.
package membership

import (
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// Validate checks the gadget's column-shape precondition (§4.10: "the
// gadget requires |S_cols| = |C_cols| > 0"). Per-column type identity
// ("matching-by-value requires the per-column types to be identical") is
// enforced by the caller before columns are reduced to field elements
// here, since coltype carries no meaning at this layer.
func Validate(numSourceCols, numCandidateCols int) error {
	if numSourceCols == 0 || numCandidateCols == 0 || numSourceCols != numCandidateCols {
		return qerror.NewQueryError(qerror.KindColumnMismatch,
			"membership: source and candidate relations must share the same nonzero column count", nil)
	}
	return nil
}

func rowsEqual(source [][]scalar.Element, i int, candidate [][]scalar.Element, j int) bool {
	for k := range source {
		if !source[k][i].Equal(candidate[k][j]) {
			return false
		}
	}
	return true
}

// Multiplicities computes m, the §4.10 witness: m_i is the number of
// candidate rows equal (across every column) to source row i. This runs
// before α, β are drawn — matching is exact per-column equality on the
// real data, not a randomized combination, so it needs no challenge.
func Multiplicities(sourceCols, candidateCols [][]scalar.Element, nSource, nCandidate int) []scalar.Element {
	m := make([]scalar.Element, nSource)
	for i := 0; i < nSource; i++ {
		var count int64
		for j := 0; j < nCandidate; j++ {
			if rowsEqual(sourceCols, i, candidateCols, j) {
				count++
			}
		}
		m[i] = scalar.TryFromInt64(count)
	}
	return m
}

// FirstRound records the relations' one-evaluation lengths (§4.7). α, β
// are not requested here: the transcript (§4.11) returns them as a
// dedicated leading pair from every transcript.T.SqueezePostResultChallenges
// call, not drawn through the generic per-plan-node challenge count — so
// FinalRound takes them as explicit parameters instead of pulling them
// off the builder. Call Multiplicities separately to obtain the witness
// column the caller commits alongside the rest of the first-round
// result.
func FirstRound(builder *mle.FirstRoundBuilder, nSource, nCandidate int) {
	builder.RequestOneEvalLength(nSource)
	builder.RequestOneEvalLength(nCandidate)
}

func indicator(n int) []scalar.Element {
	ind := make([]scalar.Element, n)
	for i := range ind {
		ind[i] = scalar.One
	}
	return ind
}

// reciprocals computes, for each of the n rows in cols, the inverse of
// α + Σⱼ βʲ·colⱼ — the per-row term the §4.10 log-derivative identity
// sums. A zero denominator (a genuine field-element collision in the
// random linear combination) is astronomically unlikely for challenges
// drawn after the relations are committed, per the Schwartz–Zippel
// argument the whole gadget rests on; it is not separately guarded here,
// mirroring scalar.Inverse's own contract.
func reciprocals(cols [][]scalar.Element, n int, alpha, beta scalar.Element) []scalar.Element {
	out := make([]scalar.Element, n)
	for i := 0; i < n; i++ {
		acc := alpha
		betaPow := scalar.One
		for _, col := range cols {
			acc = scalar.Add(acc, scalar.Mul(betaPow, col[i]))
			betaPow = scalar.Mul(betaPow, beta)
		}
		out[i] = scalar.Inverse(acc)
	}
	return out
}

// Witness holds the arena refs FinalRound produced, for a verifier-side
// counterpart (built over the matching evaluation openings rather than
// full vectors) to reconstruct the identical Constraints call.
type Witness struct {
	SourceCols, CandidateCols         []mle.Ref
	IndSource, IndCandidate           mle.Ref
	RecipSource, RecipCandidate       mle.Ref
	Multiplicity                      mle.Ref
}

// FinalRound allocates the reciprocal witnesses and registers the
// gadget's constraints into builder (§4.10): one Identity per relation
// tying its reciprocal column to the randomized composite key, and one
// ZeroSum balancing Σ m_i·recipS_i against Σ recipC_k. Both source and
// candidate columns are (re-)registered as intermediate MLEs here, since
// the gadget owns committing them alongside its own witnesses (the
// teacher's original final_round_evaluate_membership_check does the
// same — see DESIGN.md F10).
//
// commit computes the commitment bytes for a freshly produced witness
// vector (the caller supplies this so membership stays independent of
// the commitment package's concrete curve/backend choice).
//
// Both relations having zero rows is the §9 resolved zero-length edge
// case: FinalRound short-circuits to no witnesses and no constraints,
// matching FirstRound/Multiplicities's empty output for that case. A
// nonempty candidate against an empty source is not special-cased here:
// it produces a ZeroSum constraint that the prover cannot satisfy
// (Σ recipC_k must equal an empty sum of zero), which is exactly the
// "fails the ZeroSum check" edge case §4.10 calls for.
func FinalRound(
	builder *mle.FinalRoundBuilder,
	sourceCols, candidateCols [][]scalar.Element,
	nSource, nCandidate int,
	multiplicities []scalar.Element,
	alpha, beta scalar.Element,
	commit func([]scalar.Element) []byte,
) (Witness, error) {
	if err := Validate(len(sourceCols), len(candidateCols)); err != nil {
		return Witness{}, err
	}
	if nSource == 0 && nCandidate == 0 {
		return Witness{}, nil
	}

	sourceRefs := make([]mle.Ref, len(sourceCols))
	for i, col := range sourceCols {
		sourceRefs[i] = builder.ProduceIntermediate(col, commit(col))
	}
	candidateRefs := make([]mle.Ref, len(candidateCols))
	for i, col := range candidateCols {
		candidateRefs[i] = builder.ProduceIntermediate(col, commit(col))
	}

	indSource := indicator(nSource)
	indCandidate := indicator(nCandidate)
	recipSource := reciprocals(sourceCols, nSource, alpha, beta)
	recipCandidate := reciprocals(candidateCols, nCandidate, alpha, beta)

	w := Witness{
		SourceCols:     sourceRefs,
		CandidateCols:  candidateRefs,
		IndSource:      builder.ProduceIntermediate(indSource, commit(indSource)),
		IndCandidate:   builder.ProduceIntermediate(indCandidate, commit(indCandidate)),
		RecipSource:    builder.ProduceIntermediate(recipSource, commit(recipSource)),
		RecipCandidate: builder.ProduceIntermediate(recipCandidate, commit(recipCandidate)),
		Multiplicity:   builder.ProduceIntermediate(multiplicities, commit(multiplicities)),
	}

	for _, sp := range Constraints(w, alpha, beta) {
		builder.AddSubpolynomial(sp)
	}
	return w, nil
}

// Constraints builds the three subpolynomials the gadget contributes,
// purely in terms of already-allocated Refs — shared between FinalRound
// (prover side) and a future verifier-side plan node, which mirrors
// FinalRound's allocation order to obtain an equivalent Witness over its
// own opened evaluations rather than full vectors (§9 Design Notes:
// "implement the verifier as two passes over the same AST... matches the
// prover exactly").
//
// Per relation, the Identity is (α·ind + Σⱼ βʲ·colⱼ)·recip − ind: at
// a padded row (ind = 0, every colⱼ = 0 by construction) this vanishes
// regardless of recip's padded value, so the constraint only binds the
// real rows, exactly as needed since Identity subpolynomials must vanish
// on the *entire* padded hypercube (§4.8), not just the relation's
// natural length.
func Constraints(w Witness, alpha, beta scalar.Element) []mle.Subpolynomial {
	identity := func(ind mle.Ref, cols []mle.Ref, recip mle.Ref) mle.Subpolynomial {
		products := make([]mle.Product, 0, len(cols)+2)
		products = append(products, mle.Product{
			Coeff: alpha,
			Terms: []mle.Term{{Vec: ind}, {Vec: recip}},
		})
		betaPow := scalar.One
		for _, col := range cols {
			products = append(products, mle.Product{
				Coeff: betaPow,
				Terms: []mle.Term{{Vec: col}, {Vec: recip}},
			})
			betaPow = scalar.Mul(betaPow, beta)
		}
		products = append(products, mle.Product{
			Coeff: scalar.Neg(scalar.One),
			Terms: []mle.Term{{Vec: ind}},
		})
		return mle.Subpolynomial{Kind: mle.Identity, Products: products}
	}

	zeroSum := mle.Subpolynomial{
		Kind: mle.ZeroSum,
		Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: w.Multiplicity}, {Vec: w.RecipSource}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: w.RecipCandidate}}},
		},
	}

	return []mle.Subpolynomial{
		identity(w.IndSource, w.SourceCols, w.RecipSource),
		identity(w.IndCandidate, w.CandidateCols, w.RecipCandidate),
		zeroSum,
	}
}
