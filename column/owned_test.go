package column

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/scalar"
)

func tinyIntCol(vs ...int8) Owned {
	return Owned{Type: coltype.Simple(coltype.TinyInt), Int8s: vs}
}

func TestSliceAndPermuteRoundTrip(t *testing.T) {
	c := tinyIntCol(3, 5, 2, 1)
	perm := []int{2, 0, 3, 1} // dest i <- source perm[i]
	permuted, err := c.TryPermute(perm)
	require.NoError(t, err)
	require.Equal(t, []int8{2, 3, 1, 5}, permuted.Int8s)

	s := c.Slice(1, 3)
	require.Equal(t, []int8{5, 2}, s.Int8s)
}

// TestPermuteScalarColumnStructural compares the whole permuted Owned
// struct with cmp.Diff instead of a single field: a Scalars-typed column
// nests scalar.Element slices that require comparing by the field's own
// Equal method, which testify's ObjectsAreEqual does not know to call
// but cmp does.
func TestPermuteScalarColumnStructural(t *testing.T) {
	c := Owned{
		Type: coltype.Simple(coltype.Scalar),
		Scalars: []scalar.Element{
			scalar.TryFromInt64(10), scalar.TryFromInt64(20), scalar.TryFromInt64(30),
		},
	}
	perm := []int{2, 0, 1}
	permuted, err := c.TryPermute(perm)
	require.NoError(t, err)

	want := Owned{
		Type: coltype.Simple(coltype.Scalar),
		Scalars: []scalar.Element{
			scalar.TryFromInt64(30), scalar.TryFromInt64(10), scalar.TryFromInt64(20),
		},
	}
	if diff := cmp.Diff(want, permuted); diff != "" {
		t.Fatalf("permuted column mismatch (-want +got):\n%s", diff)
	}
}

func TestInnerProduct(t *testing.T) {
	c := tinyIntCol(1, 2, 3)
	vec := []scalar.Element{scalar.TryFromInt64(1), scalar.TryFromInt64(1), scalar.TryFromInt64(1)}
	got, err := c.InnerProduct(vec)
	require.NoError(t, err)
	want := scalar.TryFromInt64(6)
	require.True(t, got.Equal(want))
}

func TestNullablePresence(t *testing.T) {
	vals := tinyIntCol(1, 2, 3)
	presence := bitset.New(3)
	presence.Set(0)
	presence.Set(2) // row 1 is NULL

	nc, err := WithPresence(vals, presence)
	require.NoError(t, err)
	require.True(t, nc.IsNull(1))
	require.False(t, nc.IsNull(0))

	_, present := nc.ScalarAt(1)
	require.False(t, present)
	v, present := nc.ScalarAt(0)
	require.True(t, present)
	require.False(t, v.IsZero())
}

func TestPresenceLengthMismatch(t *testing.T) {
	vals := tinyIntCol(1, 2, 3)
	presence := bitset.New(2)
	_, err := WithPresence(vals, presence)
	require.Error(t, err)
}
