package plan

import (
	"fmt"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// finalRoundFn is the deferred second half of a node's evaluation: the
// work that can only run once the transcript has squeezed every
// post-result challenge the plan requested in the first round (§4.7).
// alpha, beta are the proof-wide membership-gadget challenges (§4.10,
// §4.11 transcript.T.SqueezePostResultChallenges, which returns them as
// its leading pair) threaded to every Filter/GroupBy/MembershipCheck node
// in the plan, whether or not they use them.
type finalRoundFn func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error

// FinalRoundFn is finalRoundFn, exported so prove.Prove can hold onto the
// continuation firstRound returns without needing a package-internal type.
type FinalRoundFn = finalRoundFn

// CommitFunc computes commitment bytes for a freshly produced witness
// vector. Kept abstract here so plan stays independent of the concrete
// commitment/curve backend (mirrors membership.FinalRound's commit
// parameter).
type CommitFunc func([]scalar.Element) []byte

// chain composes final-round functions in order, short-circuiting on
// the first error — used by Fused to run its children's final rounds in
// order.
func chain(fns ...finalRoundFn) finalRoundFn {
	return func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(b, alpha, beta); err != nil {
				return err
			}
		}
		return nil
	}
}

// Evaluate runs a node's first round in isolation, discarding the
// final-round continuation — the entry point for computing a plan's
// public result table without constructing a proof (e.g. so a caller
// can sanity-check a query's output before proving it).
func Evaluate(node Node, acc accessor.DataAccessor) (ScalarTable, error) {
	b := mle.NewFirstRoundBuilder()
	result, _, err := firstRound(node, acc, nil, b, noopCommit)
	return result, err
}

func noopCommit([]scalar.Element) []byte { return nil }

// ProveFirstRound is firstRound's exported entry point, letting prove.Prove
// (a separate package) drive the two-phase evaluation flow described in
// §4.7 without reaching into plan's unexported dispatch table. commitments
// is the real CommitmentAccessor a proving session holds alongside its
// materialized data, used to bind every base-table leaf to the database's
// actual published commitment rather than trusting self-reported bytes
// (§4.5); pass nil only for replay contexts that never open a proof (e.g.
// Evaluate).
func ProveFirstRound(node Node, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	return firstRound(node, acc, commitments, b, commitFn)
}

// firstRound dispatches by node kind (Design Notes §9: dispatch once per
// node, not once per virtual call). It returns the node's materialized
// result table and a closure capturing whatever first-round state its
// own final round will need (witness vectors, child continuations).
// commitFn computes a commitment for any witness vector a node's final
// round allocates; Evaluate passes a no-op since it never runs the final
// round, prove.Prove supplies the real commitment-package implementation.
func firstRound(node Node, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, finalRoundFn, error) {
	switch n := node.(type) {
	case TableScan:
		return firstRoundTableScan(n, acc, commitments, b)
	case Literal:
		return firstRoundLiteral(n, b)
	case Project:
		return firstRoundProject(n, acc, commitments, b, commitFn)
	case Filter:
		return firstRoundFilter(n, acc, commitments, b, commitFn)
	case GroupBy:
		return firstRoundGroupBy(n, acc, commitments, b, commitFn)
	case MembershipCheck:
		return firstRoundMembershipCheck(n, acc, commitments, b, commitFn)
	case Fused:
		return firstRoundFused(n, acc, commitments, b, commitFn)
	default:
		return ScalarTable{}, nil, qerror.NewQueryError(qerror.KindInvalidPlan,
			fmt.Sprintf("unknown plan node %T", node), nil)
	}
}

// firstRoundTableScan materializes a base table's columns. When
// commitments is non-nil (a real proving or verifying session, as
// opposed to Evaluate's plain replay), its final round binds every
// scanned column to the database's real, already-published
// commitment.Column.Value rather than letting a fresh, self-reported
// commitment stand in for it (§4.5) — the only point in the plan where
// real committed data enters the constraint system, since every other
// node's witnesses are derived from a TableScan's output.
func firstRoundTableScan(n TableScan, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder) (ScalarTable, finalRoundFn, error) {
	cols, rng, err := acc.Columns(n.Table, n.Columns)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	numRows := int(rng.Len())
	b.RequestOneEvalLength(numRows)
	result := ScalarTable{Idents: n.Columns, Columns: cols, NumRows: numRows, BaseRefs: exprRefs{}}
	if commitments == nil {
		return result, nil, nil
	}
	final := func(fb *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		return bindBaseColumns(fb, commitments, n.Table, result)
	}
	return result, final, nil
}

func firstRoundLiteral(n Literal, b *mle.FirstRoundBuilder) (ScalarTable, finalRoundFn, error) {
	vals := make([]scalar.Element, n.NumRows)
	for i := range vals {
		vals[i] = n.Value
	}
	owned, err := column.TryFromScalars(vals, n.Type)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	result := ScalarTable{
		Idents:  []ast.Ident{n.Alias},
		Columns: []column.Nullable{column.AllPresent(owned)},
		NumRows: n.NumRows,
	}
	// A public constant column needs no one-evaluation length or
	// witness: every evaluation of it is directly computable by a
	// verifier, never opened against a commitment.
	return result, nil, nil
}

func firstRoundFused(n Fused, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, finalRoundFn, error) {
	if len(n.Children) == 0 {
		return ScalarTable{}, nil, qerror.NewQueryError(qerror.KindInvalidPlan, "fused node has no children", nil)
	}
	fns := make([]finalRoundFn, 0, len(n.Children))
	var last ScalarTable
	for _, child := range n.Children {
		res, fn, err := firstRound(child, acc, commitments, b, commitFn)
		if err != nil {
			return ScalarTable{}, nil, err
		}
		fns = append(fns, fn)
		last = res
	}
	// A fused node's public result is its last child's — earlier
	// children are side-effecting witness producers folded in purely for
	// scheduling (e.g. a shared sub-expression computed once).
	return last, chain(fns...), nil
}
