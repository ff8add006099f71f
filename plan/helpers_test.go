package plan

import (
	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

// newMemoryAccessor wires a single TableScan-able table for tests.
func newMemoryAccessor(tbl ast.TableRef, cols map[ast.Ident]column.Nullable) *accessor.MemoryAccessor {
	a := accessor.NewMemoryAccessor()
	a.Tables[tbl] = cols
	n := 0
	for _, c := range cols {
		if c.Len() > n {
			n = c.Len()
		}
	}
	a.Commitments[tbl] = commitment.Table{Range: commitment.Range{Start: 0, End: uint64(n)}}
	return a
}

func col(t coltype.Kind, vals ...int64) column.Nullable {
	vs := make([]scalar.Element, len(vals))
	for i, v := range vals {
		vs[i] = scalar.TryFromInt64(v)
	}
	owned, err := column.TryFromScalars(vs, coltype.Simple(t))
	if err != nil {
		panic(err)
	}
	return column.AllPresent(owned)
}

func boolCol(vals ...bool) column.Nullable {
	vs := make([]scalar.Element, len(vals))
	for i, v := range vals {
		if v {
			vs[i] = scalar.One
		}
	}
	owned, err := column.TryFromScalars(vs, coltype.Simple(coltype.Boolean))
	if err != nil {
		panic(err)
	}
	return column.AllPresent(owned)
}

func noopCommitTest([]scalar.Element) []byte { return nil }

// at mirrors membership's own test helper: zero-extends any ref past its
// natural length, the same padding sumcheck's Driver applies.
func at(arena *mle.Arena, ref mle.Ref, i int) scalar.Element {
	v := arena.Get(ref)
	if i >= len(v) {
		return scalar.Zero
	}
	return v[i]
}

func evalSubpoly(arena *mle.Arena, sp mle.Subpolynomial, i int) scalar.Element {
	acc := scalar.Zero
	for _, p := range sp.Products {
		term := p.Coeff
		for _, t := range p.Terms {
			v := at(arena, t.Vec, i)
			if t.Negate {
				v = scalar.Neg(v)
			}
			term = scalar.Mul(term, v)
		}
		acc = scalar.Add(acc, term)
	}
	return acc
}

func sumSubpoly(arena *mle.Arena, sp mle.Subpolynomial, n int) scalar.Element {
	acc := scalar.Zero
	for i := 0; i < n; i++ {
		acc = scalar.Add(acc, evalSubpoly(arena, sp, i))
	}
	return acc
}

// checkAllConstraintsHold asserts every Identity subpolynomial in b
// vanishes at every row in [0,n) and every ZeroSum subpolynomial sums to
// zero over the same range, returning how many of each it checked.
func checkAllConstraintsHold(b *mle.FinalRoundBuilder, n int) (identities, zeroSums int, ok bool) {
	ok = true
	for _, sp := range b.Subpolynomials {
		switch sp.Kind {
		case mle.Identity:
			identities++
			for i := 0; i < n; i++ {
				if !evalSubpoly(b.Arena, sp, i).IsZero() {
					ok = false
				}
			}
		case mle.ZeroSum:
			zeroSums++
			if !sumSubpoly(b.Arena, sp, n).IsZero() {
				ok = false
			}
		}
	}
	return identities, zeroSums, ok
}
