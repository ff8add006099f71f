// Package commitment implements the commitment layer (§4.4-§4.6): limb
// packing for homomorphic commitments, the column-bounds lattice,
// per-column commitments with type/bounds metadata, and table
// commitments with append/extend/add/sub arithmetic over contiguous row
// ranges.
package commitment

import (
	"math/big"

	"github.com/opaquelabs/veriql/coltype"
)

// BoundsKind distinguishes the lattice elements a ColumnBounds can be in.
type BoundsKind int

const (
	// Empty describes a column with zero rows: any bound is vacuously
	// true, so Empty unions/differences as the identity.
	Empty BoundsKind = iota
	// Bounded carries a concrete [Lo,Hi] interval.
	Bounded
	// Top means "no usable bound was derivable" (e.g. after a difference
	// that could not be tightened) — still sound, just uninformative.
	Top
	// NoOrder marks non-ordered types (Boolean, VarChar, VarBinary,
	// Scalar, FixedSizeBinary) for which bounds are not tracked at all.
	NoOrder
)

// ColumnBounds is the per-numeric-column lattice element from §3.
type ColumnBounds struct {
	Kind   BoundsKind
	Lo, Hi *big.Int // only meaningful when Kind == Bounded
}

// NoOrderBounds is the fixed bounds value for non-ordered types.
func NoOrderBounds() ColumnBounds { return ColumnBounds{Kind: NoOrder} }

// EmptyBounds is the fixed bounds value for a zero-row column.
func EmptyBounds() ColumnBounds { return ColumnBounds{Kind: Empty} }

// NewBounded builds a Bounded(lo,hi) value.
func NewBounded(lo, hi *big.Int) ColumnBounds {
	return ColumnBounds{Kind: Bounded, Lo: lo, Hi: hi}
}

// BoundsForType reports whether a type tracks ordered bounds at all
// (§3: "NoOrder for non-ordered types").
func BoundsForType(t coltype.Type) ColumnBounds {
	if t.IsNumeric() {
		return EmptyBounds()
	}
	return NoOrderBounds()
}

// Union widens two bounds to cover both (§3 "union widens").
func Union(a, b ColumnBounds) ColumnBounds {
	if a.Kind == NoOrder || b.Kind == NoOrder {
		return NoOrderBounds()
	}
	if a.Kind == Empty {
		return b
	}
	if b.Kind == Empty {
		return a
	}
	if a.Kind == Top || b.Kind == Top {
		return ColumnBounds{Kind: Top}
	}
	lo := a.Lo
	if b.Lo.Cmp(lo) < 0 {
		lo = b.Lo
	}
	hi := a.Hi
	if b.Hi.Cmp(hi) > 0 {
		hi = b.Hi
	}
	return NewBounded(new(big.Int).Set(lo), new(big.Int).Set(hi))
}

// Difference weakens to a Bounded interval covering both endpoints, even
// when the result is disjoint from one operand — §3: "the result is an
// over-approximation, never claiming a sharper interval than is provable
// by subtraction."
func Difference(a, b ColumnBounds) ColumnBounds {
	if a.Kind == NoOrder || b.Kind == NoOrder {
		return NoOrderBounds()
	}
	if a.Kind == Empty {
		return b
	}
	if b.Kind == Empty {
		return a
	}
	if a.Kind == Top || b.Kind == Top {
		return ColumnBounds{Kind: Top}
	}
	lo := a.Lo
	if b.Lo.Cmp(lo) < 0 {
		lo = b.Lo
	}
	hi := a.Hi
	if b.Hi.Cmp(hi) > 0 {
		hi = b.Hi
	}
	return NewBounded(new(big.Int).Set(lo), new(big.Int).Set(hi))
}

// Equal reports bounds equality, used by tests and by table-commitment
// schema comparisons.
func (c ColumnBounds) Equal(o ColumnBounds) bool {
	if c.Kind != o.Kind {
		return false
	}
	if c.Kind != Bounded {
		return true
	}
	return c.Lo.Cmp(o.Lo) == 0 && c.Hi.Cmp(o.Hi) == 0
}
