package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/scalar"
)

var widgets = ast.TableRef{Schema: "public", Table: "widgets"}

func TestEvaluateTableScan(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"id":    col(coltype.Int, 1, 2, 3),
		"price": col(coltype.Int, 10, 20, 30),
	})
	node := TableScan{Table: widgets, Columns: []ast.Ident{"id", "price"}}

	result, err := Evaluate(node, acc)
	require.NoError(t, err)
	require.Equal(t, 3, result.NumRows)
	require.Equal(t, []ast.Ident{"id", "price"}, result.Idents)

	gotID, _, ok := result.Column("id")
	require.True(t, ok)
	v, present := gotID.ScalarAt(1)
	require.True(t, present)
	require.True(t, v.Equal(scalar.TryFromInt64(2)))
}

func TestEvaluateUnknownNodeKindRejected(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{"id": col(coltype.Int, 1)})
	_, err := Evaluate(unknownNode{}, acc)
	require.Error(t, err)
}

type unknownNode struct{}

func (unknownNode) isNode() {}

func TestFusedChainsChildrenAndReturnsLastResult(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{
		"id": col(coltype.Int, 1, 2, 3),
	})
	scan := TableScan{Table: widgets, Columns: []ast.Ident{"id"}}
	proj := Project{Input: scan, Items: []ProjectItem{{Star: true}}}
	fused := Fused{Children: []Node{scan, proj}}

	result, err := Evaluate(fused, acc)
	require.NoError(t, err)
	require.Equal(t, []ast.Ident{"id"}, result.Idents)
	require.Equal(t, 3, result.NumRows)
}

func TestFusedWithNoChildrenRejected(t *testing.T) {
	acc := newMemoryAccessor(widgets, map[ast.Ident]column.Nullable{"id": col(coltype.Int, 1)})
	_, err := Evaluate(Fused{}, acc)
	require.Error(t, err)
}
