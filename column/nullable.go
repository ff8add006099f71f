package column

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// Nullable pairs an Owned value vector with a presence vector: bit i
// clear means row i is NULL, in which case Values' entry at i carries a
// type-default sentinel that no consumer should read directly. A nil
// Presence means "every row present" (the common case, avoids an
// allocation per all-non-null column).
type Nullable struct {
	Values   Owned
	Presence *bitset.BitSet
}

// WithPresence builds a Nullable, checking that presence (when non-nil)
// agrees in length with values.
func WithPresence(values Owned, presence *bitset.BitSet) (Nullable, error) {
	if presence != nil && int(presence.Len()) != values.Len() {
		return Nullable{}, qerror.NewQueryError(qerror.KindPresenceLengthMismatch,
			fmt.Sprintf("presence vector has %d bits, column has %d rows", presence.Len(), values.Len()), nil)
	}
	return Nullable{Values: values, Presence: presence}, nil
}

// AllPresent wraps values with no NULLs.
func AllPresent(values Owned) Nullable {
	return Nullable{Values: values}
}

// Len returns the row count.
func (n Nullable) Len() int { return n.Values.Len() }

// IsNull reports whether row i is NULL.
func (n Nullable) IsNull(i int) bool {
	if n.Presence == nil {
		return false
	}
	return !n.Presence.Test(uint(i))
}

// ScalarAt returns row i's scalar value and whether it is present;
// present=false means NULL, and the value is then zero. Every type in
// the closed type set has a scalar representation, so there is no
// separate "not materializable" result.
func (n Nullable) ScalarAt(i int) (val scalar.Element, present bool) {
	if n.IsNull(i) {
		return scalar.Zero, false
	}
	return n.Values.ScalarAt(i), true
}

// Slice returns rows [start,end).
func (n Nullable) Slice(start, end int) Nullable {
	var pres *bitset.BitSet
	if n.Presence != nil {
		pres = bitset.New(uint(end - start))
		for i := start; i < end; i++ {
			if n.Presence.Test(uint(i)) {
				pres.Set(uint(i - start))
			}
		}
	}
	return Nullable{Values: n.Values.Slice(start, end), Presence: pres}
}

// TryPermute reorders rows, including the presence vector.
func (n Nullable) TryPermute(perm []int) (Nullable, error) {
	vals, err := n.Values.TryPermute(perm)
	if err != nil {
		return Nullable{}, err
	}
	if n.Presence == nil {
		return Nullable{Values: vals}, nil
	}
	pres := bitset.New(uint(len(perm)))
	for i, p := range perm {
		if n.Presence.Test(uint(p)) {
			pres.Set(uint(i))
		}
	}
	return Nullable{Values: vals, Presence: pres}, nil
}
