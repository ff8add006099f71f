package plan

import (
	"fmt"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/membership"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// firstRoundFilter evaluates Input, then Predicate against it (full
// NULL-aware semantics, §9 resolved Open Question #1: a NULL predicate
// result excludes the row), and materializes the kept rows via
// withSelectedRows.
func firstRoundFilter(n Filter, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, finalRoundFn, error) {
	input, inputFinal, err := firstRound(n.Input, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	predCol, predType, err := evalExpr(n.Predicate, input)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	if predType.Kind != coltype.Boolean {
		return ScalarTable{}, nil, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("WHERE predicate must be BOOLEAN, got %s", predType), nil)
	}
	keep := make([]bool, input.NumRows)
	for i := 0; i < input.NumRows; i++ {
		v, ok := predCol.ScalarAt(i)
		keep[i] = ok && v.Equal(scalar.One)
	}
	output, err := withSelectedRows(input, keep)
	if err != nil {
		return ScalarTable{}, nil, err
	}

	// The gadget's own relation lengths (source = every input row,
	// candidate = the kept rows) are requested here rather than relying on
	// Input having already requested its row count — Filter is the owner
	// of this particular membership instance's one-eval lengths.
	membership.FirstRound(b, input.NumRows, output.NumRows)
	b.RecordClaimedCardinality(output.NumRows)

	final := func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		if inputFinal != nil {
			if err := inputFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		return buildFilterConstraints(b, n, input, output, keep, alpha, beta, commitFn)
	}
	return output, final, nil
}

func buildFilterConstraints(b *mle.FinalRoundBuilder, n Filter, input, output ScalarTable, keep []bool, alpha, beta scalar.Element, commitFn CommitFunc) error {
	nIn := input.NumRows
	keepVec := make([]scalar.Element, nIn)
	for i, k := range keep {
		if k {
			keepVec[i] = scalar.One
		}
	}
	keepRef := b.ProduceIntermediate(keepVec, commitFn(keepVec))
	booleanRangeConstraint(b, keepRef)

	// sel[i] is the predicate honestly re-derived through the constraint
	// system (NULL degraded to a type default, per the resolved Open
	// Question on the constraint-witness path — see DESIGN.md); binding it
	// to keepVec pointwise proves keepVec really is the predicate's truth
	// value at every input row, not an unconstrained flag.
	refs := exprRefs{}
	selRef, _, _, err := buildExprWitness(b, n.Predicate, input, refs, commitFn)
	if err != nil {
		return err
	}
	b.AddSubpolynomial(linearSum([]mle.Ref{selRef, keepRef}, []scalar.Element{scalar.One, scalar.Neg(scalar.One)}, scalar.Zero))

	// Σ keepVec[i] must equal output.NumRows (a public value, already
	// committed via the result table's one-evaluation length) — encoded as
	// a ZeroSum against a deterministic constant vector rather than a bare
	// scalar, since a bare constant Product would sum across the whole
	// padded hypercube (2^ν rows) instead of just the nIn real rows.
	if nIn > 0 {
		constVec := make([]scalar.Element, nIn)
		target := scalar.Mul(scalar.TryFromInt64(int64(output.NumRows)), scalar.Inverse(scalar.TryFromInt64(int64(nIn))))
		for i := range constVec {
			constVec[i] = target
		}
		constRef := b.ProduceIntermediate(constVec, commitFn(constVec))
		b.AddSubpolynomial(mle.Subpolynomial{
			Kind: mle.ZeroSum,
			Products: []mle.Product{
				{Coeff: scalar.One, Terms: []mle.Term{{Vec: keepRef}}},
				{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: constRef}}},
			},
		})
	}

	// Membership containment: every output (candidate) row's full value
	// tuple, extended with a trailing "was kept" flag fixed to 1, must
	// match some input (source) row's tuple extended with its own keepVec
	// value — so a candidate row can only match a source row where keepVec
	// genuinely equals 1, tying multiset containment to the predicate
	// binding above instead of letting candidate be an arbitrary
	// input sub-multiset.
	sourceCols := append(input.ScalarColumns(), keepVec)
	candidateOnes := make([]scalar.Element, output.NumRows)
	for i := range candidateOnes {
		candidateOnes[i] = scalar.One
	}
	candidateCols := append(output.ScalarColumns(), candidateOnes)
	multiplicities := membership.Multiplicities(sourceCols, candidateCols, nIn, output.NumRows)
	_, err = membership.FinalRound(b, sourceCols, candidateCols, nIn, output.NumRows, multiplicities, alpha, beta, commitFn)
	return err
}
