package plan

import (
	"fmt"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
)

// bindBaseColumns allocates every column of table into the arena with
// commitment bytes derived from the database's own published
// commitment.Table — reversing §4.5's sign-correction offset via
// commitment.BindRawColumnCommitment — rather than a commitment freshly
// computed from whatever data the caller ran Prove against. It populates
// table.BaseRefs so buildExprWitness's ast.Column case reuses these refs
// instead of allocating its own, unbound witness for the same data, and
// registers each ref in fb.BaseColumnBindings so prove.Prove/verify.Verify
// can additionally open it against the real commitment (§9: the opening
// reuses the same sumcheck challenge point every other witness opens at,
// so a single Schwartz-Zippel argument ties the two commitments'
// underlying vectors together without requiring them to share a
// generator basis).
func bindBaseColumns(fb *mle.FinalRoundBuilder, commitments accessor.CommitmentAccessor, table ast.TableRef, t ScalarTable) error {
	tbl, err := commitments.TableCommitment(table)
	if err != nil {
		return err
	}
	for _, id := range t.Idents {
		col, ok := tbl.Columns[id]
		if !ok {
			return qerror.NewQueryError(qerror.KindUnknownIdentifier,
				fmt.Sprintf("column %q has no commitment in table %s.%s", id, table.Schema, table.Table), nil)
		}
		vec, typ, err := ownedVec(t, id)
		if err != nil {
			return err
		}
		bound := commitment.BindRawColumnCommitment(col, t.NumRows)
		ref := fb.ProduceIntermediate(vec, bound.Bytes())
		fb.BindBaseColumn(table, id, ref, t.NumRows)
		t.BaseRefs[id] = refEntry{ref: ref, typ: typ}
	}
	return nil
}
