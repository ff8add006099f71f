package plan

import (
	"fmt"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/membership"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// ClaimCursor replays the data-dependent output row counts a prover
// recorded via mle.FirstRoundBuilder.ClaimedCardinalities (Filter's kept-
// row count, GroupBy's group count), in the same depth-first order a
// verifier's structural replay visits the corresponding nodes. These
// counts are never trusted on their own — they only shape which witness
// positions VerifierFirstRound allocates; a false claim produces
// subpolynomials whose sumcheck check fails, and every TableScan leaf
// feeding those subpolynomials is additionally opened against
// commitments.TableCommitment's real, published column commitments
// (plan.bindBaseColumns, prove.Prove/verify.Verify's base-column opening
// pass), so a claim can't be propped up with fabricated row data either.
type ClaimCursor struct {
	claims []int
	i      int
}

// NewClaimCursor wraps a prover's declared claimed cardinalities for
// verifier-side replay.
func NewClaimCursor(claims []int) *ClaimCursor {
	return &ClaimCursor{claims: claims}
}

func (c *ClaimCursor) next() (int, error) {
	if c.i >= len(c.claims) {
		return 0, qerror.NewProofError(qerror.KindInvalidTranscript,
			"claimed cardinality list exhausted", nil)
	}
	n := c.claims[c.i]
	c.i++
	return n, nil
}

// CommitmentPlaceholderAccessor adapts a CommitmentAccessor into a
// DataAccessor a verifier's structural replay can drive: every base
// table's columns come back zero-filled, sized from the real, public
// commitment's row range, never from materialized data the verifier
// never sees. VerifierFirstRound only uses the resulting ScalarTable
// shapes to reconstruct subpolynomial topology identical to the
// prover's; the numeric content is irrelevant because every witness
// it allocates is opened against the real commitments at the real
// sumcheck point, not against this placeholder data.
type CommitmentPlaceholderAccessor struct {
	Commitments accessor.CommitmentAccessor
}

// Columns implements accessor.DataAccessor.
func (a *CommitmentPlaceholderAccessor) Columns(table ast.TableRef, cols []ast.Ident) ([]column.Nullable, commitment.Range, error) {
	tbl, err := a.Commitments.TableCommitment(table)
	if err != nil {
		return nil, commitment.Range{}, err
	}
	n := int(tbl.Range.Len())
	out := make([]column.Nullable, len(cols))
	for i, id := range cols {
		col, ok := tbl.Columns[id]
		if !ok {
			return nil, commitment.Range{}, qerror.NewQueryError(qerror.KindUnknownIdentifier,
				fmt.Sprintf("unknown column %q in table commitment", id), nil)
		}
		out[i] = zeroColumn(col.Type, n)
	}
	return out, tbl.Range, nil
}

// RowCount implements accessor.DataAccessor.
func (a *CommitmentPlaceholderAccessor) RowCount(table ast.TableRef) (int, error) {
	tbl, err := a.Commitments.TableCommitment(table)
	if err != nil {
		return 0, err
	}
	return int(tbl.Range.Len()), nil
}

// zeroColumn builds an all-present, all-zero-valued column of type t and
// length n — shape only, never read for its numeric content by anything
// downstream of a verifier-side replay.
func zeroColumn(t coltype.Type, n int) column.Nullable {
	out := column.Owned{Type: t}
	switch t.Kind {
	case coltype.Boolean:
		out.Bools = make([]bool, n)
	case coltype.Uint8:
		out.Uint8s = make([]uint8, n)
	case coltype.TinyInt:
		out.Int8s = make([]int8, n)
	case coltype.SmallInt:
		out.Int16s = make([]int16, n)
	case coltype.Int:
		out.Int32s = make([]int32, n)
	case coltype.BigInt, coltype.TimestampTZ:
		out.Int64s = make([]int64, n)
	case coltype.Int128:
		out.Int128s = make([]scalar.Element, n)
	case coltype.Decimal75:
		out.Decimals = make([]scalar.Element, n)
	case coltype.Scalar:
		out.Scalars = make([]scalar.Element, n)
	case coltype.VarChar:
		out.Strings = make([]string, n)
	case coltype.VarBinary:
		out.Bytes = make([][]byte, n)
	case coltype.FixedSizeBinary:
		width := t.ByteSize()
		fs := make([][]byte, n)
		for i := range fs {
			fs[i] = make([]byte, width)
		}
		out.FixedSize = fs
	default:
		qerror.Panic("plan: zeroColumn unsupported type %s", t)
	}
	return column.AllPresent(out)
}

// VerifierFirstRound mirrors ProveFirstRound's traversal exactly, except
// for Filter and GroupBy, whose output cardinality is genuinely
// data-dependent and therefore consumed from claims rather than derived
// from (absent) real data. Every other node kind's shape is a pure
// function of its children's row counts: TableScan and Literal run the
// prover's own first-round code unmodified against acc's zero-filled
// placeholder columns, and Project, MembershipCheck and Fused have
// verifier-side versions that recurse through VerifierFirstRound.
func VerifierFirstRound(node Node, claims *ClaimCursor, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	switch n := node.(type) {
	case TableScan:
		return firstRoundTableScan(n, acc, commitments, b)
	case Literal:
		return firstRoundLiteral(n, b)
	case Project:
		return verifierFirstRoundProject(n, claims, acc, commitments, b, commitFn)
	case Filter:
		return verifierFirstRoundFilter(n, claims, acc, commitments, b, commitFn)
	case GroupBy:
		return verifierFirstRoundGroupBy(n, claims, acc, commitments, b, commitFn)
	case MembershipCheck:
		return verifierFirstRoundMembershipCheck(n, claims, acc, commitments, b, commitFn)
	case Fused:
		return verifierFirstRoundFused(n, claims, acc, commitments, b, commitFn)
	default:
		return ScalarTable{}, nil, qerror.NewQueryError(qerror.KindInvalidPlan,
			fmt.Sprintf("unknown plan node %T", node), nil)
	}
}

func verifierFirstRoundProject(n Project, claims *ClaimCursor, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	input, inputFinal, err := VerifierFirstRound(n.Input, claims, acc, commitments, b, commitFn)
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

func verifierFirstRoundFused(n Fused, claims *ClaimCursor, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	if len(n.Children) == 0 {
		return ScalarTable{}, nil, qerror.NewQueryError(qerror.KindInvalidPlan, "fused node has no children", nil)
	}
	fns := make([]finalRoundFn, 0, len(n.Children))
	var last ScalarTable
	for _, child := range n.Children {
		res, fn, err := VerifierFirstRound(child, claims, acc, commitments, b, commitFn)
		if err != nil {
			return ScalarTable{}, nil, err
		}
		fns = append(fns, fn)
		last = res
	}
	return last, chain(fns...), nil
}

func verifierFirstRoundMembershipCheck(n MembershipCheck, claims *ClaimCursor, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	source, sourceFinal, err := VerifierFirstRound(n.Source, claims, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	candidate, candidateFinal, err := VerifierFirstRound(n.Candidate, claims, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}

	sourceCols, err := projectedScalarColumns(source, n.SourceCols)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	candidateCols, err := projectedScalarColumns(candidate, n.CandidateCols)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	if err := membership.Validate(len(sourceCols), len(candidateCols)); err != nil {
		return ScalarTable{}, nil, err
	}

	// source.NumRows and candidate.NumRows are both already fixed by the
	// recursive replay above (neither is a new data-dependent quantity at
	// this node, unlike Filter/GroupBy's own output count), so the
	// multiplicities vector's shape is known; its content is a placeholder.
	m := make([]scalar.Element, source.NumRows)
	membership.FirstRound(b, source.NumRows, candidate.NumRows)

	mOwned := column.Owned{Type: coltype.Simple(coltype.Int128), Int128s: m}
	result := ScalarTable{
		Idents:  append(append([]ast.Ident{}, source.Idents...), multiplicityIdent),
		Columns: append(append([]column.Nullable{}, source.Columns...), column.AllPresent(mOwned)),
		NumRows: source.NumRows,
	}

	final := func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		if sourceFinal != nil {
			if err := sourceFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		if candidateFinal != nil {
			if err := candidateFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		_, err := membership.FinalRound(b, sourceCols, candidateCols, source.NumRows, candidate.NumRows, m, alpha, beta, commitFn)
		return err
	}
	return result, final, nil
}

func verifierFirstRoundFilter(n Filter, claims *ClaimCursor, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	input, inputFinal, err := VerifierFirstRound(n.Input, claims, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	claimedOut, err := claims.next()
	if err != nil {
		return ScalarTable{}, nil, err
	}
	if claimedOut < 0 || claimedOut > input.NumRows {
		return ScalarTable{}, nil, qerror.NewProofError(qerror.KindInvalidTranscript,
			fmt.Sprintf("filter claimed %d kept rows out of %d input rows", claimedOut, input.NumRows), nil)
	}
	// Placement is irrelevant — withSelectedRows only needs keep's true
	// count to fix output.NumRows; every permutation of claimedOut true
	// entries produces an isomorphic (unconstrained, placeholder) result.
	keep := make([]bool, input.NumRows)
	for i := 0; i < claimedOut; i++ {
		keep[i] = true
	}
	output, err := withSelectedRows(input, keep)
	if err != nil {
		return ScalarTable{}, nil, err
	}

	membership.FirstRound(b, input.NumRows, output.NumRows)

	final := func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		if inputFinal != nil {
			if err := inputFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		return buildFilterConstraints(b, n, input, output, keep, alpha, beta, commitFn)
	}
	return output, final, nil
}

func verifierFirstRoundGroupBy(n GroupBy, claims *ClaimCursor, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, FinalRoundFn, error) {
	input, inputFinal, err := VerifierFirstRound(n.Input, claims, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	nIn := input.NumRows
	numGroups, err := claims.next()
	if err != nil {
		return ScalarTable{}, nil, err
	}
	if numGroups < 0 || (numGroups == 0 && nIn != 0) || numGroups > nIn {
		return ScalarTable{}, nil, qerror.NewProofError(qerror.KindInvalidTranscript,
			fmt.Sprintf("group-by claimed %d groups out of %d input rows", numGroups, nIn), nil)
	}

	sortPerm := identityPerm(nIn)
	sortedRows, err := permuteTable(input, sortPerm)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	groupEnd := evenSplit(nIn, numGroups)
	isLastOfGroup := make([]bool, nIn)
	for _, end := range groupEnd {
		if end > 0 {
			isLastOfGroup[end-1] = true
		}
	}
	firstOfGroup := firstRowOfGroupSorted(groupEnd)

	idents := append([]ast.Ident{}, n.GroupCols...)
	cols := make([]column.Nullable, len(n.GroupCols))
	for i, id := range n.GroupCols {
		col, _, _ := sortedRows.Column(id)
		cols[i] = selectRows(col, firstOfGroup)
	}
	for _, aggItem := range n.Aggregates {
		col, err := evalAggregate(aggItem, sortedRows, groupEnd)
		if err != nil {
			return ScalarTable{}, nil, err
		}
		idents = append(idents, aggItem.Alias)
		cols = append(cols, col)
	}
	result := ScalarTable{Idents: idents, Columns: cols, NumRows: numGroups}

	membership.FirstRound(b, nIn, numGroups)

	final := func(b *mle.FinalRoundBuilder, alpha, beta scalar.Element) error {
		if inputFinal != nil {
			if err := inputFinal(b, alpha, beta); err != nil {
				return err
			}
		}
		return buildGroupByConstraints(b, n, input, sortedRows, result, sortPerm, groupEnd, isLastOfGroup, alpha, beta, commitFn)
	}
	return result, final, nil
}

func identityPerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// evenSplit partitions n rows into numGroups contiguous groups as evenly
// as possible — the shape bucketSort's real grouping would have produced
// had the claimed counts come from real data; the grouping's soundness
// never rests on any particular partition, only on the permutation and
// extraction constraints buildGroupByConstraints adds around it.
func evenSplit(n, numGroups int) []int {
	groupEnd := make([]int, numGroups)
	if numGroups == 0 {
		return groupEnd
	}
	base := n / numGroups
	extra := n % numGroups
	running := 0
	for g := 0; g < numGroups; g++ {
		size := base
		if g < extra {
			size++
		}
		running += size
		groupEnd[g] = running
	}
	return groupEnd
}
