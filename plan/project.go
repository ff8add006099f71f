package plan

import (
	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

// firstRoundProject evaluates Input, then each ProjectItem (Star expands
// to Input's whole column list; an expression item evaluates via
// evalExpr). The result's row count always equals Input's — Project
// never changes cardinality (Filter/GroupBy/MembershipCheck do).
func firstRoundProject(n Project, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, finalRoundFn, error) {
	input, inputFinal, err := firstRound(n.Input, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}

	var idents []ast.Ident
	var cols []column.Nullable
	for _, item := range n.Items {
		if item.Star {
			idents = append(idents, input.Idents...)
			cols = append(cols, input.Columns...)
			continue
		}
		col, _, err := evalExpr(item.Expr, input)
		if err != nil {
			return ScalarTable{}, nil, err
		}
		idents = append(idents, item.Alias)
		cols = append(cols, col)
	}
	result := ScalarTable{Idents: idents, Columns: cols, NumRows: input.NumRows}

	final := func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		if inputFinal != nil {
			if err := inputFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		refs := exprRefs{}
		for _, item := range n.Items {
			if item.Star {
				continue
			}
			if _, _, _, err := buildExprWitness(b, item.Expr, input, refs, commitFn); err != nil {
				return err
			}
		}
		return nil
	}
	return result, final, nil
}
