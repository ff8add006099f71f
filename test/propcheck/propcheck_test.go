package propcheck

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/commitment"
)

// TestInt32ColumnScalarRoundTripsProperty exercises §4.3's round-trip
// property ("OwnedType <-> scalar embedding") over arbitrary Int
// columns: ScalarAt is stable under repeated reads and never panics on
// a column Int32Column built.
func TestInt32ColumnScalarRoundTripsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Int column ScalarAt is stable", prop.ForAll(
		func(owned column.Owned) bool {
			for i := 0; i < owned.Len(); i++ {
				if !owned.ScalarAt(i).Equal(owned.ScalarAt(i)) {
					return false
				}
			}
			return true
		},
		Int32Column(32),
	))

	properties.TestingRun(t)
}

// TestPermutationIsBijectiveProperty checks every generated Permutation
// visits each index exactly once — the precondition column.TryPermute
// requires of its perm argument (§4.3) — and that applying it to an
// Int32Column and reading it back via TryPermute never errors.
func TestPermutationIsBijectiveProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	const n = 8
	properties.Property("Permutation is a bijection on [0,n)", prop.ForAll(
		func(perm []int) bool {
			seen := make([]bool, n)
			for _, p := range perm {
				if p < 0 || p >= n || seen[p] {
					return false
				}
				seen[p] = true
			}
			return true
		},
		Permutation(n),
	))

	properties.Property("TryPermute never errors on a bijective permutation", prop.ForAll(
		func(owned column.Owned, perm []int) bool {
			if owned.Len() != len(perm) {
				return true
			}
			_, err := owned.TryPermute(perm)
			return err == nil
		},
		Int32Column(n),
		Permutation(n),
	))

	properties.TestingRun(t)
}

// TestBoundsUnionIsCommutativeAndWideningProperty exercises §3's bounds
// lattice: Union must be commutative and must never narrow past either
// input's own interval.
func TestBoundsUnionIsCommutativeAndWideningProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("Union is commutative and widening", prop.ForAll(
		func(aLo, aWidth, bLo, bWidth int64) bool {
			a := commitment.NewBounded(big.NewInt(aLo), big.NewInt(aLo+aWidth))
			b := commitment.NewBounded(big.NewInt(bLo), big.NewInt(bLo+bWidth))

			u1 := commitment.Union(a, b)
			u2 := commitment.Union(b, a)
			if !u1.Equal(u2) {
				return false
			}
			return u1.Lo.Cmp(a.Lo) <= 0 && u1.Lo.Cmp(b.Lo) <= 0 &&
				u1.Hi.Cmp(a.Hi) >= 0 && u1.Hi.Cmp(b.Hi) >= 0
		},
		gen.Int64Range(-1_000_000, 1_000_000), gen.Int64Range(0, 1_000_000),
		gen.Int64Range(-1_000_000, 1_000_000), gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}

// TestRangeLenMatchesAdjacentSplitProperty exercises §4.6's contiguous
// row-range arithmetic: splitting [start,end) at an interior point and
// summing both halves' Len recovers the whole range's Len.
func TestRangeLenMatchesAdjacentSplitProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("adjacent range lengths sum to the whole", prop.ForAll(
		func(length uint64, rawOffset uint64) bool {
			if length == 0 {
				return true
			}
			offset := rawOffset % length
			whole := commitment.Range{Start: 0, End: length}
			split := offset + 1
			lo := commitment.Range{Start: 0, End: split}
			hi := commitment.Range{Start: split, End: length}
			return lo.Len()+hi.Len() == whole.Len()
		},
		gen.UInt64Range(0, 1_000_000), gen.UInt64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}
