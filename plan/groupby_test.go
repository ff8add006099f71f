package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func TestGroupByCountStarAndSum(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"cat":   col(coltype.Int, 1, 2, 1, 2, 1),
		"price": col(coltype.Int, 10, 20, 30, 40, 50),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"cat", "price"}}
	node := GroupBy{
		Input:     scan,
		GroupCols: []ast.Ident{"cat"},
		Aggregates: []AggregateItem{
			{Kind: ast.AggCountStar, Alias: "n"},
			{Kind: ast.AggSum, Arg: ast.Column{Name: "price"}, Alias: "total"},
		},
	}

	fb := mle.NewFirstRoundBuilder()
	result, final, err := firstRound(node, acc, nil, fb, noopCommitTest)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRows)

	catCol, _, ok := result.Column("cat")
	require.True(t, ok)
	nCol, _, ok := result.Column("n")
	require.True(t, ok)
	totalCol, _, ok := result.Column("total")
	require.True(t, ok)

	// Group 1 is first-seen (cat=1: rows 0,2,4 -> n=3, total=90).
	// Group 2 is second-seen (cat=2: rows 1,3 -> n=2, total=60).
	c0, _ := catCol.ScalarAt(0)
	require.True(t, c0.Equal(scalar.TryFromInt64(1)))
	n0, _ := nCol.ScalarAt(0)
	require.True(t, n0.Equal(scalar.TryFromInt64(3)))
	t0, _ := totalCol.ScalarAt(0)
	require.True(t, t0.Equal(scalar.TryFromInt64(90)))

	c1, _ := catCol.ScalarAt(1)
	require.True(t, c1.Equal(scalar.TryFromInt64(2)))
	n1, _ := nCol.ScalarAt(1)
	require.True(t, n1.Equal(scalar.TryFromInt64(2)))
	t1, _ := totalCol.ScalarAt(1)
	require.True(t, t1.Equal(scalar.TryFromInt64(60)))

	arena := mle.NewArena(64)
	fin := mle.NewFinalRoundBuilder(arena, nil)
	require.NoError(t, final(fin, scalar.TryFromInt64(61), scalar.TryFromInt64(67)))
	identities, zeroSums, ok := checkAllConstraintsHold(fin, 5)
	require.True(t, ok, "groupby constraints must hold over the 5 input rows")
	require.Greater(t, identities, 0)
	require.Greater(t, zeroSums, 0)
}

func TestGroupBySingleGroup(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"cat": col(coltype.Int, 9, 9, 9),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"cat"}}
	node := GroupBy{
		Input:      scan,
		GroupCols:  []ast.Ident{"cat"},
		Aggregates: []AggregateItem{{Kind: ast.AggCountStar, Alias: "n"}},
	}

	result, err := Evaluate(node, acc)
	require.NoError(t, err)
	require.Equal(t, 1, result.NumRows)
	nCol, _, _ := result.Column("n")
	v, _ := nCol.ScalarAt(0)
	require.True(t, v.Equal(scalar.TryFromInt64(3)))
}
