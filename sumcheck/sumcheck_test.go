package sumcheck_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
	"github.com/opaquelabs/veriql/sumcheck"
)

// TestZeroSumRoundTrip builds a single ZeroSum subpolynomial a - a (which
// sums to zero identically) and checks the prover's round messages all
// satisfy the verifier's running-claim consistency check, ending at a
// final claim the prover's folded evaluation reproduces exactly.
func TestZeroSumRoundTrip(t *testing.T) {
	arena := mle.NewArena(4)
	a := arena.Alloc([]scalar.Element{
		scalar.TryFromInt64(1), scalar.TryFromInt64(2),
		scalar.TryFromInt64(3), scalar.TryFromInt64(4),
	})

	subpolys := []mle.Subpolynomial{
		{
			Kind: mle.ZeroSum,
			Products: []mle.Product{
				{Coeff: scalar.One, Terms: []mle.Term{{Vec: a}}},
				{Coeff: scalar.TryFromInt64(-1), Terms: []mle.Term{{Vec: a}}},
			},
		},
	}
	outerWeights := []scalar.Element{scalar.One}

	driver := sumcheck.NewDriver(arena, subpolys, outerWeights, nil, 4)
	verifier := sumcheck.NewVerifierState(scalar.Zero, driver.NumVars())

	challenges := []scalar.Element{scalar.TryFromInt64(5), scalar.TryFromInt64(7)}
	for round := 0; round < driver.NumVars(); round++ {
		msg := driver.ProveRound()
		r := challenges[round]
		require.NoError(t, verifier.CheckRound(msg, r))
		driver.FoldRound(context.Background(), r)
	}

	require.True(t, verifier.Done())
	require.True(t, driver.FinalEvaluation().Equal(verifier.FinalClaim()))
}

// TestIdentityViaEqVector exercises an Identity subpolynomial (a itself,
// required to vanish pointwise) folded against a synthesized eq(x,tau)
// vector, same way NewDriver wires Identity-kind constraints.
func TestIdentityViaEqVector(t *testing.T) {
	arena := mle.NewArena(4)
	zero := scalar.Zero
	a := arena.Alloc([]scalar.Element{zero, zero, zero, zero})

	tau := []scalar.Element{scalar.TryFromInt64(3), scalar.TryFromInt64(9)}
	eqVec := make([]scalar.Element, 4)
	for i := range eqVec {
		bits := []int{(i >> 1) & 1, i & 1}
		eqVec[i] = mle.EqPoly(bits, tau)
	}

	subpolys := []mle.Subpolynomial{
		{
			Kind: mle.Identity,
			Products: []mle.Product{
				{Coeff: scalar.One, Terms: []mle.Term{{Vec: a}}},
			},
		},
	}
	outerWeights := []scalar.Element{scalar.One}

	driver := sumcheck.NewDriver(arena, subpolys, outerWeights, eqVec, 4)
	verifier := sumcheck.NewVerifierState(scalar.Zero, driver.NumVars())

	challenges := []scalar.Element{scalar.TryFromInt64(11), scalar.TryFromInt64(13)}
	for round := 0; round < driver.NumVars(); round++ {
		msg := driver.ProveRound()
		r := challenges[round]
		require.NoError(t, verifier.CheckRound(msg, r))
		driver.FoldRound(context.Background(), r)
	}

	require.True(t, verifier.Done())
	require.True(t, driver.FinalEvaluation().IsZero())
	require.True(t, verifier.FinalClaim().IsZero())
}
