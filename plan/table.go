package plan

import (
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// ScalarTable is the materialized result a node's first round hands to
// its parent: an ordered set of named, nullable columns sharing a row
// count. It is the plan-level analogue of accessor.DataAccessor's
// per-table view, but may also represent an intermediate (unmaterialized
// in storage) result, e.g. a Filter's output.
type ScalarTable struct {
	Idents  []ast.Ident
	Columns []column.Nullable
	NumRows int

	// BaseRefs caches the arena Ref a base table scan bound to its real,
	// pre-existing commitment.Column for each of its own columns (§4.5),
	// populated by firstRoundTableScan's final round once it runs. A
	// ScalarTable that is not itself a table scan's direct result (e.g.
	// Filter's output) leaves this nil; buildExprWitness falls back to
	// committing a fresh witness for such columns, exactly as before.
	BaseRefs exprRefs
}

// Column returns the named column and its type, or false if absent.
func (t ScalarTable) Column(id ast.Ident) (column.Nullable, coltype.Type, bool) {
	for i, ident := range t.Idents {
		if ident == id {
			return t.Columns[i], t.Columns[i].Values.Type, true
		}
	}
	return column.Nullable{}, coltype.Type{}, false
}

// ScalarColumns returns every column's per-row scalar embedding (ignoring
// NULL; callers that need NULL-awareness use Column directly), in the
// table's own order — the shape the membership gadget's per-column
// []scalar.Element slices need.
func (t ScalarTable) ScalarColumns() [][]scalar.Element {
	out := make([][]scalar.Element, len(t.Columns))
	for i, c := range t.Columns {
		vec := make([]scalar.Element, c.Len())
		for r := 0; r < c.Len(); r++ {
			v, _ := c.ScalarAt(r)
			vec[r] = v
		}
		out[i] = vec
	}
	return out
}

// withSelectedRows builds a new ScalarTable containing only the rows
// where keep[i] is true, preserving column order and identifiers.
func withSelectedRows(in ScalarTable, keep []bool) (ScalarTable, error) {
	perm := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			perm = append(perm, i)
		}
	}
	out := ScalarTable{Idents: in.Idents, NumRows: len(perm)}
	out.Columns = make([]column.Nullable, len(in.Columns))
	for i, c := range in.Columns {
		permuted, err := c.TryPermute(identityThenSelect(perm, c.Len()))
		if err != nil {
			return ScalarTable{}, err
		}
		out.Columns[i] = permuted.Slice(0, len(perm))
	}
	return out, nil
}

// identityThenSelect returns a permutation of length n whose first
// len(sel) entries are sel (the rows to keep, in order) and whose
// remaining entries enumerate every other row once — TryPermute requires
// a full-length bijection, but the caller only wants a prefix of it.
func identityThenSelect(sel []int, n int) []int {
	kept := make(map[int]bool, len(sel))
	for _, s := range sel {
		kept[s] = true
	}
	perm := make([]int, 0, n)
	perm = append(perm, sel...)
	for i := 0; i < n; i++ {
		if !kept[i] {
			perm = append(perm, i)
		}
	}
	if len(perm) != n {
		qerror.Panic("plan: identityThenSelect produced length %d, expected %d", len(perm), n)
	}
	return perm
}
