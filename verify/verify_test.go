package verify_test

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
	"github.com/opaquelabs/veriql/verify"
)

var orders = ast.TableRef{Schema: "public", Table: "orders"}

func intCol(vals ...int64) column.Nullable {
	vs := make([]scalar.Element, len(vals))
	for i, v := range vals {
		vs[i] = scalar.TryFromInt64(v)
	}
	owned, err := column.TryFromScalars(vs, coltype.Simple(coltype.Int))
	if err != nil {
		panic(err)
	}
	return column.AllPresent(owned)
}

func boolColV(vals ...bool) column.Nullable {
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

// newOrdersFixture builds a 4-row table ("amount","paid") and a Filter
// keeping only the paid rows, plus the matching public commitment set a
// verifier is handed instead of real data.
func newOrdersFixture() (*accessor.MemoryAccessor, plan.Node) {
	acc := accessor.NewMemoryAccessor()
	amountCol := intCol(10, 20, 30, 40)
	paidCol := boolColV(true, true, false, false)
	acc.Tables[orders] = map[ast.Ident]column.Nullable{
		"amount": amountCol,
		"paid":   paidCol,
	}
	tbl, err := commitment.CommitTable(
		[]ast.Ident{"amount", "paid"},
		[]column.Nullable{amountCol, paidCol},
		commitment.Range{Start: 0, End: 4},
	)
	if err != nil {
		panic(err)
	}
	acc.Commitments[orders] = tbl
	scan := plan.TableScan{Table: orders, Columns: []ast.Ident{"amount", "paid"}}
	node := plan.Filter{Input: scan, Predicate: ast.Column{Name: "paid"}}
	return acc, node
}

func TestVerifyAcceptsHonestProof(t *testing.T) {
	acc, node := newOrdersFixture()
	scheme := registry.ForBackend(evalproof.InnerProduct)
	params := scheme.Setup(64)

	res, err := prove.Prove(node, acc, acc, scheme, params)
	require.NoError(t, err)
	require.Equal(t, 2, res.Table.NumRows)

	err = verify.Verify(node, res.Table, res.Proof, acc, scheme, params)
	require.NoError(t, err)
}

func TestVerifyRejectsTamperedResultEvaluation(t *testing.T) {
	acc, node := newOrdersFixture()
	scheme := registry.ForBackend(evalproof.InnerProduct)
	params := scheme.Setup(64)

	res, err := prove.Prove(node, acc, acc, scheme, params)
	require.NoError(t, err)
	require.NotEmpty(t, res.Proof.ResultEvaluations)

	res.Proof.ResultEvaluations[0] = scalar.Add(res.Proof.ResultEvaluations[0], scalar.One)

	err = verify.Verify(node, res.Table, res.Proof, acc, scheme, params)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedClaimedCardinality(t *testing.T) {
	acc, node := newOrdersFixture()
	scheme := registry.ForBackend(evalproof.InnerProduct)
	params := scheme.Setup(64)

	res, err := prove.Prove(node, acc, acc, scheme, params)
	require.NoError(t, err)
	require.Equal(t, []int{2}, res.Proof.ClaimedCardinalities)

	res.Proof.ClaimedCardinalities[0] = 3

	err = verify.Verify(node, res.Table, res.Proof, acc, scheme, params)
	require.Error(t, err)
}
