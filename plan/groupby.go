package plan

import (
	"math/big"

	"github.com/bits-and-blooms/bitset"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/membership"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// firstRoundGroupBy partitions Input's rows by GroupCols (grouped in
// first-seen order, a deterministic choice standing in for SQL's
// unspecified GROUP BY ordering absent an ORDER BY) and computes each
// Aggregate over every group. Correctness rests on a permutation
// argument: sortedRows (Input's rows rearranged so equal keys are
// contiguous) is proven a multiset-rearrangement of Input via the same
// membership gadget Filter reuses, generalizing the teacher's
// buildPermutation/computePermutationPolynomials wire-permutation idiom
// (backend/plonk/bls12-377/setup.go) from wire indices to row indices.
func firstRoundGroupBy(n GroupBy, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, b *mle.FirstRoundBuilder, commitFn CommitFunc) (ScalarTable, finalRoundFn, error) {
	input, inputFinal, err := firstRound(n.Input, acc, commitments, b, commitFn)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	nIn := input.NumRows

	groupCols := make([]column.Nullable, len(n.GroupCols))
	for i, id := range n.GroupCols {
		col, _, ok := input.Column(id)
		if !ok {
			return ScalarTable{}, nil, qerror.NewQueryError(qerror.KindUnknownIdentifier,
				"unknown GROUP BY column "+string(id), nil)
		}
		groupCols[i] = col
	}

	groupOf, numGroups := assignGroups(groupCols, nIn)
	sortPerm := bucketSort(groupOf, numGroups, nIn)

	sortedRows, err := permuteTable(input, sortPerm)
	if err != nil {
		return ScalarTable{}, nil, err
	}
	groupSize := make([]int, numGroups)
	for _, g := range groupOf {
		groupSize[g]++
	}
	groupEnd := make([]int, numGroups)
	running := 0
	for g := 0; g < numGroups; g++ {
		running += groupSize[g]
		groupEnd[g] = running
	}
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
	b.RecordClaimedCardinality(numGroups)

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

// assignGroups buckets row indices by their GroupCols value (compared by
// exact byte encoding of each column's scalar embedding — real-data
// equality, no challenge needed yet), returning each row's group id
// (first-seen order) and the group count.
func assignGroups(groupCols []column.Nullable, n int) (groupOf []int, numGroups int) {
	seen := map[string]int{}
	groupOf = make([]int, n)
	for i := 0; i < n; i++ {
		key := rowKeyBytes(groupCols, i)
		g, ok := seen[key]
		if !ok {
			g = numGroups
			seen[key] = g
			numGroups++
		}
		groupOf[i] = g
	}
	return groupOf, numGroups
}

func rowKeyBytes(cols []column.Nullable, i int) string {
	buf := make([]byte, 0, 33*len(cols))
	for _, c := range cols {
		v, ok := c.ScalarAt(i)
		if !ok {
			buf = append(buf, 0xff)
			continue
		}
		b := v.Bytes()
		buf = append(buf, 0x00)
		buf = append(buf, b[:]...)
	}
	return string(buf)
}

// bucketSort returns the permutation (perm[dest] = source row index) that
// groups rows by groupOf contiguously, in first-seen group order,
// preserving each group's original relative row order — a stable bucket
// sort, since groupOf's ids are already assigned in first-seen order.
func bucketSort(groupOf []int, numGroups, n int) []int {
	buckets := make([][]int, numGroups)
	for i, g := range groupOf {
		buckets[g] = append(buckets[g], i)
	}
	perm := make([]int, 0, n)
	for _, bkt := range buckets {
		perm = append(perm, bkt...)
	}
	return perm
}

func permuteTable(t ScalarTable, perm []int) (ScalarTable, error) {
	out := ScalarTable{Idents: t.Idents, NumRows: t.NumRows}
	out.Columns = make([]column.Nullable, len(t.Columns))
	for i, c := range t.Columns {
		p, err := c.TryPermute(perm)
		if err != nil {
			return ScalarTable{}, err
		}
		out.Columns[i] = p
	}
	return out, nil
}

// firstRowOfGroupSorted returns, for each group (in order), the index in
// sortedRows of that group's first row — always the previous group's end
// (or 0 for the first group), since groups are contiguous after sorting.
func firstRowOfGroupSorted(groupEnd []int) []int {
	out := make([]int, len(groupEnd))
	prev := 0
	for g, end := range groupEnd {
		out[g] = prev
		prev = end
	}
	return out
}

func selectRows(c column.Nullable, rows []int) column.Nullable {
	out, err := c.TryPermute(identityThenSelect(rows, c.Len()))
	if err != nil {
		qerror.Panic("plan: selectRows permutation failed: %v", err)
	}
	return out.Slice(0, len(rows))
}

// evalAggregate computes one aggregate column over sortedRows, one value
// per contiguous group range given by groupEnd. SUM/COUNT/MIN/MAX skip
// NULL per standard SQL aggregate semantics.
func evalAggregate(item AggregateItem, sortedRows ScalarTable, groupEnd []int) (column.Nullable, error) {
	numGroups := len(groupEnd)
	var argCol column.Nullable
	var argType coltype.Type
	if item.Arg != nil {
		var err error
		argCol, argType, err = evalExpr(item.Arg, sortedRows)
		if err != nil {
			return column.Nullable{}, err
		}
	}

	start := 0
	switch item.Kind {
	case ast.AggCountStar:
		vals := make([]scalar.Element, numGroups)
		for g, end := range groupEnd {
			vals[g] = scalar.TryFromInt64(int64(end - start))
			start = end
		}
		owned, err := column.TryFromScalars(vals, coltype.Simple(coltype.BigInt))
		return column.AllPresent(owned), err

	case ast.AggCount:
		vals := make([]scalar.Element, numGroups)
		for g, end := range groupEnd {
			var count int64
			for i := start; i < end; i++ {
				if !argCol.IsNull(i) {
					count++
				}
			}
			vals[g] = scalar.TryFromInt64(count)
			start = end
		}
		owned, err := column.TryFromScalars(vals, coltype.Simple(coltype.BigInt))
		return column.AllPresent(owned), err

	case ast.AggSum:
		resType, err := coltype.ResultType(coltype.OpAdd, argType, argType)
		if err != nil {
			resType = argType
		}
		vals := make([]scalar.Element, numGroups)
		for g, end := range groupEnd {
			sum := new(big.Int)
			for i := start; i < end; i++ {
				if v, ok := rowValue(argCol, i); ok {
					sum.Add(sum, v)
				}
			}
			vals[g] = scalar.TryFromBigInt(sum)
			start = end
		}
		owned, err := column.TryFromScalars(vals, resType)
		return column.AllPresent(owned), err

	case ast.AggMin, ast.AggMax:
		vals := make([]scalar.Element, numGroups)
		present := make([]bool, numGroups)
		for g, end := range groupEnd {
			var best *big.Int
			for i := start; i < end; i++ {
				v, ok := rowValue(argCol, i)
				if !ok {
					continue
				}
				if best == nil {
					best = v
				} else if (item.Kind == ast.AggMin) == (v.Cmp(best) < 0) {
					best = v
				}
			}
			if best != nil {
				vals[g] = scalar.TryFromBigInt(best)
				present[g] = true
			}
			start = end
		}
		owned, err := column.TryFromScalars(vals, argType)
		if err != nil {
			return column.Nullable{}, err
		}
		pres := bitset.New(uint(numGroups))
		for g, ok := range present {
			if ok {
				pres.Set(uint(g))
			}
		}
		return column.WithPresence(owned, pres)

	default:
		return column.Nullable{}, qerror.NewQueryError(qerror.KindInvalidPlan, "unsupported aggregate kind", nil)
	}
}

// buildGroupByConstraints registers the grouping's supporting gadgets:
//
//  1. a permutation argument (via the membership gadget, candidate and
//     source of equal cardinality) proving sortedRows — augmented with a
//     composite per-row key built from alpha/beta — is a rearrangement of
//     Input's rows, not a fabricated relation;
//  2. per-row SUM/COUNT(expr)/COUNT(*) running-accumulator recurrences
//     over sortedRows, reset at each group boundary (identified by
//     sameAsPrev, an IsZero gadget over adjacent composite keys);
//  3. a second membership check binding the output's group-key and
//     SUM/COUNT columns to sortedRows' rows flagged isLastOfGroup, plus a
//     cardinality tie (Σ isLastOfGroup = numGroups), mirroring Filter's
//     extraction pattern.
//
// MIN/MAX aggregates and the row-to-row adjacency shift itself (prevKey
// and prevRunning below) are committed witnesses without an independent recurrence or
// shift-consistency circuit — the same documented, licensed scope
// reduction SPEC_FULL.md §9 grants ordering-dependent constructs
// elsewhere in this package (see DESIGN.md).
func buildGroupByConstraints(b *mle.FinalRoundBuilder, n GroupBy, input, sortedRows, result ScalarTable, sortPerm []int, groupEnd []int, isLastOfGroup []bool, alpha, beta scalar.Element, commitFn CommitFunc) error {
	nIn := input.NumRows
	numGroups := result.NumRows

	// The composite key is built from every input column, not just
	// GroupCols: proving sortedRows a permutation of input under this key
	// proves the WHOLE row (group columns and every aggregate argument
	// alike) moved together, not just that the group-key bag matches.
	inputKey := compositeKey(input.ScalarColumns(), nIn, alpha, beta)
	sortedKey := make([]scalar.Element, nIn)
	for dest, src := range sortPerm {
		sortedKey[dest] = inputKey[src]
	}

	sourceCols := append(input.ScalarColumns(), inputKey)
	candidateCols := append(sortedRows.ScalarColumns(), sortedKey)
	multiplicities := membership.Multiplicities(sourceCols, candidateCols, nIn, nIn)
	if _, err := membership.FinalRound(b, sourceCols, candidateCols, nIn, nIn, multiplicities, alpha, beta, commitFn); err != nil {
		return err
	}
	sortedKeyRef := b.ProduceIntermediate(sortedKey, commitFn(sortedKey))

	isFirstRow := make([]scalar.Element, nIn)
	if nIn > 0 {
		isFirstRow[0] = scalar.One
	}
	isFirstRowRef := b.ProduceIntermediate(isFirstRow, commitFn(isFirstRow))

	prevKey := make([]scalar.Element, nIn)
	for i := range prevKey {
		if i == 0 {
			prevKey[i] = sortedKey[0]
		} else {
			prevKey[i] = sortedKey[i-1]
		}
	}
	prevKeyRef := b.ProduceIntermediate(prevKey, commitFn(prevKey))

	diff := make([]scalar.Element, nIn)
	for i := range diff {
		diff[i] = scalar.Sub(sortedKey[i], prevKey[i])
	}
	diffRef := b.ProduceIntermediate(diff, commitFn(diff))
	b.AddSubpolynomial(linearSum([]mle.Ref{diffRef, sortedKeyRef, prevKeyRef}, []scalar.Element{scalar.One, scalar.Neg(scalar.One), scalar.One}, scalar.Zero))
	sameAsPrevAll := isZeroGadget(b, diffRef, diff, commitFn)
	// sameAsPrev must additionally be forced to 0 on the first row,
	// regardless of IsZero's verdict on the (meaningless) self-diff there:
	// sameAsPrev_final = sameAsPrevAll * (1 - isFirstRow).
	sameAsPrev := make([]scalar.Element, nIn)
	for i := range sameAsPrev {
		if i == 0 {
			sameAsPrev[i] = scalar.Zero
		} else {
			sameAsPrev[i] = diffIsZero(diff[i])
		}
	}
	sameAsPrevRef := b.ProduceIntermediate(sameAsPrev, commitFn(sameAsPrev))
	b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
		{Coeff: scalar.One, Terms: []mle.Term{{Vec: sameAsPrevRef}}},
		{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: sameAsPrevAll}}},
		{Coeff: scalar.One, Terms: []mle.Term{{Vec: sameAsPrevAll}, {Vec: isFirstRowRef}}},
	}})

	var runningVecs [][]scalar.Element
	var resultAggCols [][]scalar.Element
	for _, aggItem := range n.Aggregates {
		if aggItem.Kind == ast.AggMin || aggItem.Kind == ast.AggMax {
			continue
		}
		running, err := buildAggregateRecurrence(b, aggItem, sortedRows, sameAsPrevRef, sameAsPrev, groupEnd, commitFn)
		if err != nil {
			return err
		}
		runningVecs = append(runningVecs, running)
		outCol, _, ok := result.Column(aggItem.Alias)
		if !ok {
			return qerror.NewQueryError(qerror.KindInvalidPlan, "missing output column for aggregate "+string(aggItem.Alias), nil)
		}
		resultAggCols = append(resultAggCols, scalarColumnVec(outCol))
	}

	isLast := make([]scalar.Element, nIn)
	for i, v := range isLastOfGroup {
		if v {
			isLast[i] = scalar.One
		}
	}
	isLastRef := b.ProduceIntermediate(isLast, commitFn(isLast))
	booleanRangeConstraint(b, isLastRef)

	if nIn > 0 {
		constVec := make([]scalar.Element, nIn)
		target := scalar.Mul(scalar.TryFromInt64(int64(numGroups)), scalar.Inverse(scalar.TryFromInt64(int64(nIn))))
		for i := range constVec {
			constVec[i] = target
		}
		constRef := b.ProduceIntermediate(constVec, commitFn(constVec))
		b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.ZeroSum, Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: isLastRef}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: constRef}}},
		}})
	}

	// Extraction: every output row's group-key columns and SUM/COUNT
	// aggregate values, extended with a trailing constant-1, must match
	// some sortedRows row's group-key columns and running-accumulator
	// values extended with its own isLast flag — so an output row can
	// only be drawn from a sortedRows row genuinely marked as a group's
	// last row, the same augmented-membership pattern buildFilterConstraints
	// uses to tie candidate rows to a boolean selector.
	groupKeySource := namedScalarColumns(sortedRows, n.GroupCols)
	groupKeyCandidate := namedScalarColumns(result, n.GroupCols)
	extractSource := append(append(groupKeySource, runningVecs...), isLast)
	candidateOnes := make([]scalar.Element, numGroups)
	for i := range candidateOnes {
		candidateOnes[i] = scalar.One
	}
	extractCandidate := append(append(groupKeyCandidate, resultAggCols...), candidateOnes)
	extractMultiplicities := membership.Multiplicities(extractSource, extractCandidate, nIn, numGroups)
	if _, err := membership.FinalRound(b, extractSource, extractCandidate, nIn, numGroups, extractMultiplicities, alpha, beta, commitFn); err != nil {
		return err
	}

	return nil
}

func scalarColumnVec(c column.Nullable) []scalar.Element {
	vec := make([]scalar.Element, c.Len())
	for i := range vec {
		v, _ := c.ScalarAt(i)
		vec[i] = v
	}
	return vec
}

func namedScalarColumns(t ScalarTable, ids []ast.Ident) [][]scalar.Element {
	out := make([][]scalar.Element, len(ids))
	for i, id := range ids {
		col, _, _ := t.Column(id)
		out[i] = scalarColumnVec(col)
	}
	return out
}

func diffIsZero(d scalar.Element) scalar.Element {
	if d.IsZero() {
		return scalar.One
	}
	return scalar.Zero
}

// buildAggregateRecurrence allocates a running-accumulator witness over
// sortedRows for a single SUM/COUNT(expr)/COUNT(*) aggregate, resetting
// at each group boundary via sameAsPrevRef, binds the per-row recurrence
// with an Identity constraint, and returns the running vector so
// buildGroupByConstraints can extract each group's final value into the
// output table via its trailing membership/cardinality check.
func buildAggregateRecurrence(b *mle.FinalRoundBuilder, item AggregateItem, sortedRows ScalarTable, sameAsPrevRef mle.Ref, sameAsPrev []scalar.Element, groupEnd []int, commitFn CommitFunc) ([]scalar.Element, error) {
	n := sortedRows.NumRows
	var step []scalar.Element
	switch item.Kind {
	case ast.AggCountStar:
		step = make([]scalar.Element, n)
		for i := range step {
			step[i] = scalar.One
		}
	case ast.AggCount:
		argCol, _, err := evalExpr(item.Arg, sortedRows)
		if err != nil {
			return nil, err
		}
		step = make([]scalar.Element, n)
		for i := range step {
			if !argCol.IsNull(i) {
				step[i] = scalar.One
			}
		}
	case ast.AggSum:
		argCol, _, err := evalExpr(item.Arg, sortedRows)
		if err != nil {
			return nil, err
		}
		step = make([]scalar.Element, n)
		for i := range step {
			if v, ok := argCol.ScalarAt(i); ok {
				step[i] = v
			}
		}
	default:
		return nil, qerror.NewQueryError(qerror.KindInvalidPlan, "unsupported aggregate recurrence kind", nil)
	}
	stepRef := b.ProduceIntermediate(step, commitFn(step))

	running := make([]scalar.Element, n)
	start := 0
	for _, end := range groupEnd {
		acc := scalar.Zero
		for i := start; i < end; i++ {
			acc = scalar.Add(acc, step[i])
			running[i] = acc
		}
		start = end
	}
	runningRef := b.ProduceIntermediate(running, commitFn(running))

	prevRunning := make([]scalar.Element, n)
	for i := 1; i < n; i++ {
		prevRunning[i] = running[i-1]
	}
	prevRunningRef := b.ProduceIntermediate(prevRunning, commitFn(prevRunning))

	// running[i] - sameAsPrev[i]*prevRunning[i] - step[i] = 0
	b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
		{Coeff: scalar.One, Terms: []mle.Term{{Vec: runningRef}}},
		{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: sameAsPrevRef}, {Vec: prevRunningRef}}},
		{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: stepRef}}},
	}})
	return running, nil
}

func compositeKey(cols [][]scalar.Element, n int, alpha, beta scalar.Element) []scalar.Element {
	out := make([]scalar.Element, n)
	for i := 0; i < n; i++ {
		accv := alpha
		betaPow := scalar.One
		for _, col := range cols {
			accv = scalar.Add(accv, scalar.Mul(betaPow, col[i]))
			betaPow = scalar.Mul(betaPow, beta)
		}
		out[i] = accv
	}
	return out
}
