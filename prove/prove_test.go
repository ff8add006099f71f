package prove_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/registry"
	"github.com/opaquelabs/veriql/plan"
	"github.com/opaquelabs/veriql/prove"
	"github.com/opaquelabs/veriql/scalar"
)

var widgets = ast.TableRef{Schema: "public", Table: "widgets"}

func col(t coltype.Kind, vals ...int64) column.Nullable {
	vs := make([]scalar.Element, len(vals))
	for i, v := range vals {
		vs[i] = scalar.TryFromInt64(v)
	}
	owned, err := column.TryFromScalars(vs, coltype.Simple(t))
	if err != nil {
		panic(err)
	}
	return column.AllPresent(owned)
}

func boolCol(vals ...bool) column.Nullable {
	vs := make([]scalar.Element, len(vals))
	for i, v := range vals {
		if v {
			vs[i] = scalar.One
		}
	}
	owned, err := column.TryFromScalars(vs, coltype.Simple(coltype.Boolean))
	if err != nil {
		panic(err)
	}
	return column.AllPresent(owned)
}

// newFilterFixture builds the accessor/node pair this package's tests
// share: a 4-row table and a Filter over its boolean column.
func newFilterFixture() (*accessor.MemoryAccessor, plan.Node) {
	acc := accessor.NewMemoryAccessor()
	idCol := col(coltype.Int, 1, 2, 3, 4)
	activeCol := boolCol(true, false, true, false)
	acc.Tables[widgets] = map[ast.Ident]column.Nullable{
		"id":     idCol,
		"active": activeCol,
	}
	tbl, err := commitment.CommitTable(
		[]ast.Ident{"id", "active"},
		[]column.Nullable{idCol, activeCol},
		commitment.Range{Start: 0, End: 4},
	)
	if err != nil {
		panic(err)
	}
	acc.Commitments[widgets] = tbl
	scan := plan.TableScan{Table: widgets, Columns: []ast.Ident{"id", "active"}}
	node := plan.Filter{Input: scan, Predicate: ast.Column{Name: "active"}}
	return acc, node
}

func TestProveProducesCorrectResultAndNonemptyProof(t *testing.T) {
	acc, node := newFilterFixture()
	scheme := registry.ForBackend(evalproof.InnerProduct)
	params := scheme.Setup(64)

	res, err := prove.Prove(node, acc, acc, scheme, params)
	require.NoError(t, err)

	require.Equal(t, 2, res.Table.NumRows)
	idCol, _, ok := res.Table.Column("id")
	require.True(t, ok)
	v0, _ := idCol.ScalarAt(0)
	v1, _ := idCol.ScalarAt(1)
	require.True(t, v0.Equal(scalar.TryFromInt64(1)))
	require.True(t, v1.Equal(scalar.TryFromInt64(3)))

	require.NotEmpty(t, res.Proof.RoundMessages)
	require.Len(t, res.Proof.FirstRoundCommits, len(res.Table.Columns))
	require.Len(t, res.Proof.ResultEvaluations, len(res.Table.Columns))
	require.Len(t, res.Proof.ResultOpenings, len(res.Table.Columns))
	require.Equal(t, len(res.Proof.IntermediateCommits), len(res.Proof.ArenaEvaluations))
	require.Equal(t, len(res.Proof.IntermediateCommits), len(res.Proof.ArenaOpenings))
	require.Equal(t, []int{2}, res.Proof.ClaimedCardinalities)
	require.Len(t, res.Proof.BaseColumnOpenings, 2)
}

func TestProveRejectsNonBooleanPredicate(t *testing.T) {
	acc := accessor.NewMemoryAccessor()
	acc.Tables[widgets] = map[ast.Ident]column.Nullable{
		"id": col(coltype.Int, 1, 2),
	}
	acc.Commitments[widgets] = commitment.Table{
		Range:   commitment.Range{Start: 0, End: 2},
		Columns: map[ast.Ident]commitment.Column{"id": {Type: coltype.Simple(coltype.Int)}},
	}
	scan := plan.TableScan{Table: widgets, Columns: []ast.Ident{"id"}}
	node := plan.Filter{Input: scan, Predicate: ast.Column{Name: "id"}}

	scheme := registry.ForBackend(evalproof.InnerProduct)
	params := scheme.Setup(16)
	_, err := prove.Prove(node, acc, acc, scheme, params)
	require.Error(t, err)
}
