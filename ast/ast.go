// Package ast defines the intermediate AST the (external, out-of-scope)
// SQL parser hands to this module's proof-plan builder (§6). Nothing in
// this package parses SQL text; it only names the tree shape the
// documented grammar produces, so the core's behavior is well-defined
// even though the parser itself is an external collaborator.
package ast

import "github.com/opaquelabs/veriql/coltype"

// MaxIdentLength is the identifier length limit named in §6 ("≈64
// bytes").
const MaxIdentLength = 64

// Ident is a column or table identifier.
type Ident string

// TableRef names a schema-qualified table. Schema-qualified column
// references (table.col) and sub-queries are rejected by the external
// parser per §6 and never appear in this AST.
type TableRef struct {
	Schema Ident
	Table  Ident
}

// Select is the top-level query AST: SELECT ... FROM ... [WHERE ...]
// [GROUP BY ...] [ORDER BY ...] [LIMIT n [OFFSET m]].
type Select struct {
	Projection []ProjectionItem
	From       TableRef
	Where      Expr // nil if absent
	GroupBy    []Ident
	OrderBy    []OrderItem
	Limit      *int64
	Offset     *int64
}

// ProjectionItem is one SELECT-list entry: an expression plus an
// optional output alias. A bare "*" is represented as a nil Expr with
// Star set.
type ProjectionItem struct {
	Expr  Expr
	Alias Ident
	Star  bool
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr descExpr
	Desc bool
}

type descExpr = Expr

// Expr is the closed expression sum type: arithmetic, comparison,
// logical, aggregate, literal, column reference, and the IS-predicates.
type Expr interface{ isExpr() }

// Column references an unqualified column by name (schema-qualified
// references are rejected by the parser, §6).
type Column struct{ Name Ident }

func (Column) isExpr() {}

// BinaryOp is one of + - * / = <> != < <= > >= AND OR.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
	And
	Or
)

// Binary is a binary expression. AND/OR are left-associative with
// precedence NOT > AND > OR (§6).
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

func (Binary) isExpr() {}

// Not is logical negation, binding tighter than AND/OR but looser than
// comparison (§6: "NOT above comparison").
type Not struct{ Operand Expr }

func (Not) isExpr() {}

// IsPredicate is IS NULL / IS NOT NULL / IS TRUE.
type IsKind int

const (
	IsNull IsKind = iota
	IsNotNull
	IsTrueKind
)

type IsPredicate struct {
	Operand Expr
	Kind    IsKind
}

func (IsPredicate) isExpr() {}

// AggKind enumerates the supported aggregates (§6: MIN MAX SUM COUNT
// COUNT(*)).
type AggKind int

const (
	AggMin AggKind = iota
	AggMax
	AggSum
	AggCount
	AggCountStar
)

// Aggregate is an aggregate expression; Arg is nil for COUNT(*).
type Aggregate struct {
	Kind AggKind
	Arg  Expr
}

func (Aggregate) isExpr() {}

// LiteralKind enumerates literal payload kinds.
type LiteralKind int

const (
	LitInt128 LiteralKind = iota
	LitDecimal
	LitString
	LitBool
	LitNull
)

// Literal is a parsed constant. IntVal is valid for LitInt128 (as a
// string of decimal digits, optionally signed, already range-checked by
// the parser against i128 — out-of-range literals fail at parse time
// with QueryParseError{"i128 out of range"}, §6 scenario 2, and so never
// reach this AST).
type Literal struct {
	Kind    LiteralKind
	IntVal  string
	DecVal  string
	DecType coltype.Type
	StrVal  string
	BoolVal bool
}

func (Literal) isExpr() {}
