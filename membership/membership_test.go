package membership_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/membership"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func col(vals ...int64) []scalar.Element {
	out := make([]scalar.Element, len(vals))
	for i, v := range vals {
		out[i] = scalar.TryFromInt64(v)
	}
	return out
}

func noopCommit(v []scalar.Element) []byte { return nil }

// at returns the value of arena's ref at index i, treating any index at
// or past the vector's natural length as zero — the same zero-extension
// sumcheck's Driver applies across a shared hypercube (see
// sumcheck.padToLen), needed here because a single Subpolynomial can mix
// terms built from relations of different row counts.
func at(arena *mle.Arena, ref mle.Ref, i int) scalar.Element {
	v := arena.Get(ref)
	if i >= len(v) {
		return scalar.Zero
	}
	return v[i]
}

// evalSubpoly evaluates a Subpolynomial pointwise at row i, the way a
// pairwise sanity check can without running the full sumcheck driver:
// Σ products, each coeff·Π term vectors at index i.
func evalSubpoly(arena *mle.Arena, sp mle.Subpolynomial, i int) scalar.Element {
	acc := scalar.Zero
	for _, p := range sp.Products {
		term := p.Coeff
		for _, t := range p.Terms {
			v := at(arena, t.Vec, i)
			if t.Negate {
				v = scalar.Neg(v)
			}
			term = scalar.Mul(term, v)
		}
		acc = scalar.Add(acc, term)
	}
	return acc
}

func sumSubpoly(arena *mle.Arena, sp mle.Subpolynomial, n int) scalar.Element {
	acc := scalar.Zero
	for i := 0; i < n; i++ {
		acc = scalar.Add(acc, evalSubpoly(arena, sp, i))
	}
	return acc
}

func TestMultiplicitiesMatchesWorkedExample(t *testing.T) {
	source := [][]scalar.Element{col(1, 2, 3)}
	candidate := [][]scalar.Element{col(1, 2, 2, 1, 2)}

	m := membership.Multiplicities(source, candidate, 3, 5)
	require.Equal(t, col(2, 3, 0), m)
}

func TestFinalRoundConstraintsHoldPointwise(t *testing.T) {
	source := [][]scalar.Element{col(1, 2, 3)}
	candidate := [][]scalar.Element{col(1, 2, 2, 1, 2)}
	m := membership.Multiplicities(source, candidate, 3, 5)

	alpha := scalar.TryFromInt64(17)
	beta := scalar.TryFromInt64(19)
	arena := mle.NewArena(16)
	builder := mle.NewFinalRoundBuilder(arena, nil)

	w, err := membership.FinalRound(builder, source, candidate, 3, 5, m, alpha, beta, noopCommit)
	require.NoError(t, err)
	require.Greater(t, arena.Len(), 0)

	subpolys := membership.Constraints(w, alpha, beta)
	require.Len(t, subpolys, 3)

	// Both Identity constraints vanish at every real row.
	for i := 0; i < 3; i++ {
		require.True(t, evalSubpoly(arena, subpolys[0], i).IsZero())
	}
	for i := 0; i < 5; i++ {
		require.True(t, evalSubpoly(arena, subpolys[1], i).IsZero())
	}

	// The balancing ZeroSum constraint totals to zero across the whole
	// (unpadded) range of either relation — real rows beyond a
	// relation's own length contribute zero by construction.
	total := scalar.Zero
	for i := 0; i < 5; i++ {
		total = scalar.Add(total, evalSubpoly(arena, subpolys[2], i))
	}
	require.True(t, total.IsZero())
}

func TestFinalRoundEmptyBothSidesIsVacuous(t *testing.T) {
	arena := mle.NewArena(4)
	builder := mle.NewFinalRoundBuilder(arena, nil)

	w, err := membership.FinalRound(builder, [][]scalar.Element{nil}, [][]scalar.Element{nil}, 0, 0, nil, scalar.Zero, scalar.Zero, noopCommit)
	require.NoError(t, err)
	require.Equal(t, membership.Witness{}, w)
	require.Empty(t, builder.Subpolynomials)
	require.Empty(t, builder.IntermediateCommits)
}

func TestFinalRoundEmptySourceNonemptyCandidateFailsBalance(t *testing.T) {
	source := [][]scalar.Element{{}}
	candidate := [][]scalar.Element{col(1, 2)}
	m := membership.Multiplicities(source, candidate, 0, 2)
	require.Empty(t, m)

	alpha := scalar.TryFromInt64(5)
	beta := scalar.TryFromInt64(7)
	arena := mle.NewArena(8)
	builder := mle.NewFinalRoundBuilder(arena, nil)

	w, err := membership.FinalRound(builder, source, candidate, 0, 2, m, alpha, beta, noopCommit)
	require.NoError(t, err)

	subpolys := membership.Constraints(w, alpha, beta)
	total := sumSubpoly(arena, subpolys[2], 2)
	require.False(t, total.IsZero(), "empty source against a nonempty candidate must not balance")
}

func TestValidateRejectsMismatchedColumnCounts(t *testing.T) {
	require.Error(t, membership.Validate(0, 1))
	require.Error(t, membership.Validate(2, 1))
	require.NoError(t, membership.Validate(1, 1))
}
