package commitment

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/curve"
)

func col(v int64, t coltype.Type) Column {
	return Column{
		Type:   t,
		Bounds: NewBounded(big.NewInt(v), big.NewInt(v)),
		Value:  curve.Identity,
	}
}

func TestTryUnionRequiresSameType(t *testing.T) {
	a := col(1, coltype.Simple(coltype.Int))
	b := col(2, coltype.Simple(coltype.BigInt))
	_, err := TryUnion(a, b)
	require.Error(t, err)
}

func TestTryUnionWidensBounds(t *testing.T) {
	a := col(1, coltype.Simple(coltype.Int))
	b := col(5, coltype.Simple(coltype.Int))
	u, err := TryUnion(a, b)
	require.NoError(t, err)
	require.Equal(t, 0, u.Bounds.Lo.Cmp(big.NewInt(1)))
	require.Equal(t, 0, u.Bounds.Hi.Cmp(big.NewInt(5)))
}

func TestTableTryAddRequiresContiguousRanges(t *testing.T) {
	ty := coltype.Simple(coltype.Int)
	a, err := Validate([]ast.Ident{"x"}, []Column{col(1, ty)}, Range{0, 2})
	require.NoError(t, err)
	b, err := Validate([]ast.Ident{"x"}, []Column{col(2, ty)}, Range{2, 4})
	require.NoError(t, err)

	merged, err := TryAdd(a, b)
	require.NoError(t, err)
	require.Equal(t, Range{0, 4}, merged.Range)

	// reverse order still works: b.try_add(a) == a.try_add(b) when contiguous.
	merged2, err := TryAdd(b, a)
	require.NoError(t, err)
	require.Equal(t, merged.Range, merged2.Range)

	c, err := Validate([]ast.Ident{"x"}, []Column{col(3, ty)}, Range{5, 8})
	require.NoError(t, err)
	_, err = TryAdd(a, c)
	require.Error(t, err)
}

func TestTableTrySubPrefixSuffix(t *testing.T) {
	ty := coltype.Simple(coltype.Int)
	a, _ := Validate([]ast.Ident{"x"}, []Column{col(1, ty)}, Range{0, 10})
	b, _ := Validate([]ast.Ident{"x"}, []Column{col(1, ty)}, Range{0, 4})
	rem, err := TrySub(a, b)
	require.NoError(t, err)
	require.Equal(t, Range{4, 10}, rem.Range)

	b2, _ := Validate([]ast.Ident{"x"}, []Column{col(1, ty)}, Range{6, 10})
	rem2, err := TrySub(a, b2)
	require.NoError(t, err)
	require.Equal(t, Range{0, 6}, rem2.Range)
}

func TestDuplicateIdentifiersRejected(t *testing.T) {
	ty := coltype.Simple(coltype.Int)
	_, err := Validate([]ast.Ident{"x", "x"}, []Column{col(1, ty), col(2, ty)}, Range{0, 1})
	require.Error(t, err)
}
