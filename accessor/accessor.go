// Package accessor defines the prover/verifier's view of committed data:
// an interface over materialized table data (for the prover) and over
// stored table commitments (for both), keyed on a table reference.
package accessor

import (
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/commitment"
)

// DataAccessor is the prover-side view: materialized column data for a
// table reference, restricted to the requested column identifiers.
type DataAccessor interface {
	// Columns returns the requested columns (in request order) for the
	// given table, along with the row range they cover.
	Columns(table ast.TableRef, cols []ast.Ident) ([]column.Nullable, commitment.Range, error)
	// RowCount reports the table's total row count (used for
	// one-evaluation lengths, §4.7).
	RowCount(table ast.TableRef) (int, error)
}

// CommitmentAccessor is the verifier-side (and prover-side, for
// incremental maintenance) view: stored table commitments keyed by
// table reference. Commitments outlive the columns they describe (§3
// "Lifecycle").
type CommitmentAccessor interface {
	TableCommitment(table ast.TableRef) (commitment.Table, error)
}

// MemoryAccessor is a simple in-memory implementation of both
// interfaces, suitable for tests and for small embedded deployments.
type MemoryAccessor struct {
	Tables      map[ast.TableRef]map[ast.Ident]column.Nullable
	Commitments map[ast.TableRef]commitment.Table
}

// NewMemoryAccessor returns an empty MemoryAccessor.
func NewMemoryAccessor() *MemoryAccessor {
	return &MemoryAccessor{
		Tables:      make(map[ast.TableRef]map[ast.Ident]column.Nullable),
		Commitments: make(map[ast.TableRef]commitment.Table),
	}
}

// Columns implements DataAccessor.
func (m *MemoryAccessor) Columns(table ast.TableRef, cols []ast.Ident) ([]column.Nullable, commitment.Range, error) {
	tbl, ok := m.Tables[table]
	if !ok {
		return nil, commitment.Range{}, &accessorError{table: table}
	}
	out := make([]column.Nullable, len(cols))
	n := 0
	for i, c := range cols {
		out[i] = tbl[c]
		if l := out[i].Len(); l > n {
			n = l
		}
	}
	rng := commitment.Range{Start: 0, End: uint64(n)}
	if cm, ok := m.Commitments[table]; ok {
		rng = cm.Range
	}
	return out, rng, nil
}

// RowCount implements DataAccessor.
func (m *MemoryAccessor) RowCount(table ast.TableRef) (int, error) {
	tbl, ok := m.Tables[table]
	if !ok {
		return 0, &accessorError{table: table}
	}
	for _, c := range tbl {
		return c.Len(), nil
	}
	return 0, nil
}

// TableCommitment implements CommitmentAccessor.
func (m *MemoryAccessor) TableCommitment(table ast.TableRef) (commitment.Table, error) {
	cm, ok := m.Commitments[table]
	if !ok {
		return commitment.Table{}, &accessorError{table: table}
	}
	return cm, nil
}

type accessorError struct{ table ast.TableRef }

func (e *accessorError) Error() string {
	return "accessor: unknown table " + string(e.table.Schema) + "." + string(e.table.Table)
}
