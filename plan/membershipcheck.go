package plan

import (
	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/membership"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// firstRoundMembershipCheck directly exposes the membership gadget as a
// plan node: unlike Filter, which reuses the same machinery internally
// and discards the multiplicity witness, this node surfaces m as an
// extra output column so a query can inspect or further constrain it
// (e.g. a HAVING-style check on how many times a row recurs). m is
// indexed by SOURCE rows (membership.Multiplicities: "m_i is how many
// candidate rows equal source row i"), so the result table is keyed by
// Source, not Candidate — Source's own columns plus the multiplicity.
func firstRoundMembershipCheck(n MembershipCheck, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, finalRoundFn, error) {
	source, sourceFinal, err := firstRound(n.Source, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	candidate, candidateFinal, err := firstRound(n.Candidate, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}

	sourceCols, err := projectedScalarColumns(source, n.SourceCols)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	candidateCols, err := projectedScalarColumns(candidate, n.CandidateCols)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	if err := membership.Validate(len(sourceCols), len(candidateCols)); err != nil {
		return ScalarTable{}, nil, err
	}

	m := membership.Multiplicities(sourceCols, candidateCols, source.NumRows, candidate.NumRows)
	membership.FirstRound(b, source.NumRows, candidate.NumRows)

	mOwned := column.Owned{Type: coltype.Simple(coltype.Int128), Int128s: m}
	result := ScalarTable{
		Idents:  append(append([]ast.Ident{}, source.Idents...), multiplicityIdent),
		Columns: append(append([]column.Nullable{}, source.Columns...), column.AllPresent(mOwned)),
		NumRows: source.NumRows,
	}

	final := func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		if sourceFinal != nil {
			if err := sourceFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		if candidateFinal != nil {
			if err := candidateFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		_, err := membership.FinalRound(b, sourceCols, candidateCols, source.NumRows, candidate.NumRows, m, alpha, beta, commitFn)
		return err
	}
	return result, final, nil
}

// multiplicityIdent names the gadget's witness column in a
// MembershipCheck node's output; not a column any base table can carry,
// avoiding collision with a real query-visible identifier.
var multiplicityIdent = ast.Ident("__multiplicity")

func projectedScalarColumns(t ScalarTable, cols []ast.Ident) ([][]scalar.Element, error) {
	out := make([][]scalar.Element, len(cols))
	for i, id := range cols {
		col, _, ok := t.Column(id)
		if !ok {
			return nil, qerror.NewQueryError(qerror.KindUnknownIdentifier, "unknown membership column "+string(id), nil)
		}
		vec := make([]scalar.Element, col.Len())
		for r := 0; r < col.Len(); r++ {
			v, _ := col.ScalarAt(r)
			vec[r] = v
		}
		out[i] = vec
	}
	return out, nil
}
