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

// TestProjectArithmeticExpression covers §8 scenario 4's shape: a
// TinyInt expression a*b+b, evaluated both for its public result and for
// the final-round constraint witness, checked to agree pointwise.
func TestProjectArithmeticExpression(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"a": col(coltype.TinyInt, 2, 3, 4),
		"b": col(coltype.TinyInt, 5, 1, 0),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"a", "b"}}
	expr := ast.Binary{
		Op:   ast.Add,
		Left: ast.Binary{Op: ast.Mul, Left: ast.Column{Name: "a"}, Right: ast.Column{Name: "b"}},
		Right: ast.Column{Name: "b"},
	}
	node := Project{Input: scan, Items: []ProjectItem{{Expr: expr, Alias: "result"}}}

	fb := mle.NewFirstRoundBuilder()
	result, final, err := firstRound(node, acc, nil, fb, noopCommitTest)
	require.NoError(t, err)
	require.Equal(t, 3, result.NumRows)

	resultCol, _, ok := result.Column("result")
	require.True(t, ok)
	want := []int64{2*5 + 5, 3*1 + 1, 4*0 + 0}
	for i, w := range want {
		v, present := resultCol.ScalarAt(i)
		require.True(t, present)
		require.True(t, v.Equal(scalar.TryFromInt64(w)), "row %d: got %s want %d", i, v, w)
	}

	arena := mle.NewArena(16)
	fin := mle.NewFinalRoundBuilder(arena, nil)
	require.NoError(t, final(fin, scalar.TryFromInt64(11), scalar.TryFromInt64(13)))
	_, _, ok = checkAllConstraintsHold(fin, 3)
	require.True(t, ok, "every constraint built for the projected expression must hold pointwise")
}

func TestProjectStarPassesThroughColumns(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"id": col(coltype.Int, 7, 8),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"id"}}
	node := Project{Input: scan, Items: []ProjectItem{{Star: true}}}

	result, err := Evaluate(node, acc)
	require.NoError(t, err)
	require.Equal(t, []ast.Ident{"id"}, result.Idents)
	require.Equal(t, 2, result.NumRows)
}
