// Package plan implements the proof-plan DAG (§4.7): a tagged variant of
// node kinds, each evaluated twice against the same tree — once in a
// first round that reads real data and records one-evaluation lengths,
// once in a final round (run only after the transcript has squeezed its
// post-result challenges) that allocates intermediate MLE witnesses and
// the subpolynomial constraints tying them together.
//
// Node mirrors ast.Expr's closed-interface, marker-method dispatch
// (isNode, matching isExpr) rather than an interface with virtual calls
// per node — one type switch per traversal, not one per node (Design
// Notes §9: "avoid trait-object virtual tables in hot loops; dispatch
// once per node").
package plan

import (
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/scalar"
)

// Node is the closed proof-plan node sum type.
type Node interface{ isNode() }

// TableScan reads a base table's columns from the accessor. Its columns
// are never re-derived: their commitments already exist in the
// accessor's CommitmentAccessor. When one is supplied, TableScan's final
// round allocates each scanned column as a witness bound to that
// published commitment (see bindBaseColumns); without one it
// contributes no final-round witnesses.
type TableScan struct {
	Table   ast.TableRef
	Columns []ast.Ident
}

func (TableScan) isNode() {}

// Literal projects a constant value across NumRows rows — used for
// "SELECT 1" style constant columns and as the Arg-less leaf inside
// larger expressions is instead handled by ast.Literal directly; this
// node exists for a bare constant relation (no FROM), e.g. a derived
// single-row table.
type Literal struct {
	Alias   ast.Ident
	Value   scalar.Element
	Type    coltype.Type
	NumRows int
}

func (Literal) isNode() {}

// ProjectItem is one output column: either a bare "*" (Star) or a named
// expression.
type ProjectItem struct {
	Expr  ast.Expr
	Alias ast.Ident
	Star  bool
}

// Project evaluates a SELECT list against Input's result.
type Project struct {
	Input Node
	Items []ProjectItem
}

func (Project) isNode() {}

// Filter keeps Input's rows where Predicate evaluates to (non-NULL)
// true, §9 resolved Open Question #1: a NULL predicate result excludes
// the row. Proven via the membership gadget: treat Input's rows as the
// source relation and the filtered output as the candidate, so "every
// output row is one of the input rows, with the right multiplicity"
// plus a direct binding constraint tying the membership witness to the
// boolean selector (see filter.go).
type Filter struct {
	Input     Node
	Predicate ast.Expr
}

func (Filter) isNode() {}

// AggregateItem is one aggregate output column: its ast.AggKind, its
// argument, and its output alias.
type AggregateItem struct {
	Kind  ast.AggKind
	Arg   ast.Expr // nil for COUNT(*)
	Alias ast.Ident
}

// GroupBy partitions Input's rows by GroupCols and computes Aggregates
// per group. Correctness of each aggregate is proven via a
// permutation-argument: Input's rows, sorted so equal group keys are
// contiguous, must be a permutation of the original rows (grounded on
// the teacher's wire-permutation idiom, generalized to a row-partition
// permutation — see groupby.go).
type GroupBy struct {
	Input      Node
	GroupCols  []ast.Ident
	Aggregates []AggregateItem
}

func (GroupBy) isNode() {}

// MembershipCheck directly exposes the §4.10 gadget as a plan node: it
// proves Candidate's rows (over CandidateCols) are a sub-multiset of
// Source's rows (over SourceCols), surfacing the multiplicities vector
// as an extra output column rather than filtering rows itself (compare
// Filter, which reuses the same machinery internally but discards m).
type MembershipCheck struct {
	Source, Candidate         Node
	SourceCols, CandidateCols []ast.Ident
}

func (MembershipCheck) isNode() {}

// Fused wraps an arbitrary set of child nodes whose own constraints are
// already self-contained, letting a plan-specific optimization collapse
// several nodes into one scheduling unit without inventing a new Node
// kind per optimization (Design Notes §9: "a generic fused node for
// plan-specific gadgets").
type Fused struct {
	Children []Node
}

func (Fused) isNode() {}
