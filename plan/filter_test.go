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

// TestFilterBooleanColumnPredicate covers §8 scenario 1: WHERE over a
// plain BOOLEAN column.
func TestFilterBooleanColumnPredicate(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"id":     col(coltype.Int, 1, 2, 3, 4),
		"active": boolCol(true, false, true, false),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"id", "active"}}
	node := Filter{Input: scan, Predicate: ast.Column{Name: "active"}}

	fb := mle.NewFirstRoundBuilder()
	result, final, err := firstRound(node, acc, nil, fb, noopCommitTest)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRows)

	idCol, _, ok := result.Column("id")
	require.True(t, ok)
	v0, _ := idCol.ScalarAt(0)
	v1, _ := idCol.ScalarAt(1)
	require.True(t, v0.Equal(scalar.TryFromInt64(1)))
	require.True(t, v1.Equal(scalar.TryFromInt64(3)))

	arena := mle.NewArena(32)
	fin := mle.NewFinalRoundBuilder(arena, nil)
	require.NoError(t, final(fin, scalar.TryFromInt64(31), scalar.TryFromInt64(37)))
	identities, zeroSums, ok := checkAllConstraintsHold(fin, 4)
	require.True(t, ok, "filter constraints must hold over the 4 input rows")
	require.Greater(t, identities, 0)
	require.Greater(t, zeroSums, 0)
}

// TestFilterComparisonOrPredicate covers §8 scenario 4's filter half:
// a > b OR c = 4, over TinyInt columns.
func TestFilterComparisonOrPredicate(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"a": col(coltype.TinyInt, 5, 1, 2, 9),
		"b": col(coltype.TinyInt, 2, 3, 2, 1),
		"c": col(coltype.TinyInt, 0, 4, 0, 0),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"a", "b", "c"}}
	pred := ast.Binary{
		Op:   ast.Or,
		Left: ast.Binary{Op: ast.Gt, Left: ast.Column{Name: "a"}, Right: ast.Column{Name: "b"}},
		Right: ast.Binary{Op: ast.Eq, Left: ast.Column{Name: "c"}, Right: ast.Literal{Kind: ast.LitInt128, IntVal: "4"}},
	}
	node := Filter{Input: scan, Predicate: pred}

	fb := mle.NewFirstRoundBuilder()
	result, final, err := firstRound(node, acc, nil, fb, noopCommitTest)
	require.NoError(t, err)
	// row0: 5>2 true -> kept. row1: 1>3 false, c=4 true -> kept.
	// row2: 2>2 false, c=0 -> dropped. row3: 9>1 true -> kept.
	require.Equal(t, 3, result.NumRows)

	arena := mle.NewArena(32)
	fin := mle.NewFinalRoundBuilder(arena, nil)
	require.NoError(t, final(fin, scalar.TryFromInt64(41), scalar.TryFromInt64(43)))
	_, _, ok := checkAllConstraintsHold(fin, 4)
	require.True(t, ok)
}

func TestFilterRejectsNonBooleanPredicate(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"id": col(coltype.Int, 1, 2),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"id"}}
	node := Filter{Input: scan, Predicate: ast.Column{Name: "id"}}

	_, err := Evaluate(node, acc)
	require.Error(t, err)
}
