package commitment

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/qerror"
)

// Range is a contiguous, half-open row range [Start, End).
type Range struct {
	Start, End uint64
}

// Len returns End-Start, or 0 if the range is empty/invalid.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Table is an ordered map of column identifier to column commitment,
// covering a contiguous row range (§3, §4.6).
type Table struct {
	Columns map[ast.Ident]Column
	Range   Range
}

// SortedIdents returns the table's column identifiers in a stable,
// deterministic order (used for schema comparisons and serialization).
func (t Table) SortedIdents() []ast.Ident {
	ids := maps.Keys(t.Columns)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// sameSchema reports whether a and b have identical column identifier
// sets and, for each, identical column types.
func sameSchema(a, b Table) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for id, ac := range a.Columns {
		bc, ok := b.Columns[id]
		if !ok || !ac.Type.Equal(bc.Type) {
			return false
		}
	}
	return true
}

// TryAdd requires contiguous, schema-equal ranges (one's end equals the
// other's start) and unions each column pairwise (§4.6).
func TryAdd(a, b Table) (Table, error) {
	if !sameSchema(a, b) {
		return Table{}, qerror.NewQueryError(qerror.KindColumnMismatch,
			"try_add requires identical column schemas", nil)
	}
	var lo, hi Table
	switch {
	case a.Range.End == b.Range.Start:
		lo, hi = a, b
	case b.Range.End == a.Range.Start:
		lo, hi = b, a
	default:
		return Table{}, qerror.NewQueryError(qerror.KindNonContiguous,
			fmt.Sprintf("ranges [%d,%d) and [%d,%d) are not adjacent", a.Range.Start, a.Range.End, b.Range.Start, b.Range.End), nil)
	}
	merged := make(map[ast.Ident]Column, len(a.Columns))
	for id, lc := range lo.Columns {
		hc := hi.Columns[id]
		uc, err := TryUnion(lc, hc)
		if err != nil {
			return Table{}, err
		}
		merged[id] = uc
	}
	return Table{Columns: merged, Range: Range{Start: lo.Range.Start, End: hi.Range.End}}, nil
}

// TrySub requires b.Range to be a prefix or suffix of a.Range; on
// success the remainder's range has Start <= End (§4.6), and it is empty
// when b covers all of a.
func TrySub(a, b Table) (Table, error) {
	if !sameSchema(a, b) {
		return Table{}, qerror.NewQueryError(qerror.KindColumnMismatch,
			"try_sub requires identical column schemas", nil)
	}
	var remRange Range
	switch {
	case b.Range.Start == a.Range.Start && b.Range.End <= a.Range.End:
		remRange = Range{Start: b.Range.End, End: a.Range.End}
	case b.Range.End == a.Range.End && b.Range.Start >= a.Range.Start:
		remRange = Range{Start: a.Range.Start, End: b.Range.Start}
	default:
		return Table{}, qerror.NewQueryError(qerror.KindNonContiguous,
			"subtrahend range must be a prefix or suffix of the minuend range", nil)
	}
	if remRange.End < remRange.Start {
		return Table{}, qerror.NewQueryError(qerror.KindNegativeRange,
			fmt.Sprintf("remainder range [%d,%d) would be negative", remRange.Start, remRange.End), nil)
	}
	diffed := make(map[ast.Ident]Column, len(a.Columns))
	for id, ac := range a.Columns {
		bc := b.Columns[id]
		dc, err := TryDifference(ac, bc)
		if err != nil {
			return Table{}, err
		}
		diffed[id] = dc
	}
	return Table{Columns: diffed, Range: remRange}, nil
}

// Validate checks the construction-time invariants from §3: all columns
// share the same (implicit, table-level) range, and identifiers are
// unique within a table. Since Columns is a Go map, duplicate
// identifiers and mixed per-column ranges cannot arise from well-typed
// construction; Validate exists for commitments assembled from an
// external (e.g. deserialized) column list, where both conditions must
// be checked explicitly.
func Validate(ids []ast.Ident, cols []Column, rng Range) (Table, error) {
	if len(ids) != len(cols) {
		return Table{}, qerror.NewQueryError(qerror.KindMixedLengthColumns,
			"identifier and column slices must have equal length", nil)
	}
	seen := make(map[ast.Ident]struct{}, len(ids))
	m := make(map[ast.Ident]Column, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return Table{}, qerror.NewQueryError(qerror.KindDuplicateIdentifiers,
				fmt.Sprintf("duplicate column identifier %q", id), nil)
		}
		seen[id] = struct{}{}
		m[id] = cols[i]
	}
	if rng.End < rng.Start {
		return Table{}, qerror.NewQueryError(qerror.KindNegativeRange, "range end before start", nil)
	}
	return Table{Columns: m, Range: rng}, nil
}
