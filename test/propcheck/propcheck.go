// Package propcheck gathers the gopter generators §8's property-based
// suites share — arbitrary in-range integer columns and arbitrary
// permutations — grounded on scalar_test.go's own use of gopter for
// the field's Add-commutativity/round-trip properties, extended here
// one layer up to column algebra. Compound values (an adjacent range
// pair, a bounded interval) are built in each property's own
// prop.ForAll from several independent generators rather than through
// gopter's FlatMap, the same multi-argument style scalar_test.go's
// "Add is commutative" property already uses.
package propcheck

import (
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/scalar"
)

// Int32Column generates a column.Owned(Int) of exactly n rows from
// arbitrary int32 values — every value is representable by
// construction, so TryFromScalars never fails on it.
func Int32Column(n int) gopter.Gen {
	return gen.SliceOfN(n, gen.Int32()).Map(func(vals []int32) column.Owned {
		scalars := make([]scalar.Element, len(vals))
		for i, v := range vals {
			scalars[i] = scalar.TryFromInt64(int64(v))
		}
		owned, err := column.TryFromScalars(scalars, coltype.Simple(coltype.Int))
		if err != nil {
			panic(err)
		}
		return owned
	})
}

// Permutation generates a shuffled permutation of [0,n), driven by n
// independent shuffle keys so gopter's own shrink/replay machinery
// stays in control of the randomness (no math/rand call here).
func Permutation(n int) gopter.Gen {
	return gen.SliceOfN(n, gen.IntRange(0, 1<<30)).Map(func(keys []int) []int {
		perm := make([]int, n)
		for i := range perm {
			perm[i] = i
		}
		for i := n - 1; i > 0; i-- {
			j := keys[i] % (i + 1)
			if j < 0 {
				j += i + 1
			}
			perm[i], perm[j] = perm[j], perm[i]
		}
		return perm
	})
}
