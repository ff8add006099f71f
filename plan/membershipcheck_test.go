package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

var candidates = ast.TableRef{Schema: "public", Table: "candidates"}

func TestMembershipCheckSurfacesMultiplicities(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"v": col(coltype.Int, 1, 2, 3),
	})
	acc.Tables[candidates] = map[ast.Ident]column.Nullable{
		"v": col(coltype.Int, 1, 2, 2, 1, 2),
	}
	acc.Commitments[candidates] = commitment.Table{Range: commitment.Range{Start: 0, End: 5}}

	node := MembershipCheck{
		Source:        TableScan{Table: widgets, Columns: []ast.Ident{"v"}},
		Candidate:     TableScan{Table: candidates, Columns: []ast.Ident{"v"}},
		SourceCols:    []ast.Ident{"v"},
		CandidateCols: []ast.Ident{"v"},
	}

	fb := mle.NewFirstRoundBuilder()
	result, final, err := firstRound(node, acc, nil, fb, noopCommitTest)
	require.NoError(t, err)
	require.Equal(t, 3, result.NumRows)

	mCol, _, ok := result.Column(multiplicityIdent)
	require.True(t, ok)
	want := []int64{2, 3, 0}
	for i, w := range want {
		v, present := mCol.ScalarAt(i)
		require.True(t, present)
		require.True(t, v.Equal(scalar.TryFromInt64(w)), "row %d", i)
	}

	arena := mle.NewArena(32)
	fin := mle.NewFinalRoundBuilder(arena, nil)
	require.NoError(t, final(fin, scalar.TryFromInt64(53), scalar.TryFromInt64(59)))
	// Identities must vanish across the wider of the two relations (5
	// candidate rows > 3 source rows); ZeroSum is checked the same way.
	_, _, ok = checkAllConstraintsHold(fin, 5)
	require.True(t, ok)
}
