package arrowbridge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/internal/arrowbridge"
	"github.com/opaquelabs/veriql/scalar"
)

func TestRoundTripInt(t *testing.T) {
	vals := []scalar.Element{scalar.TryFromInt64(1), scalar.TryFromInt64(-2), scalar.TryFromInt64(3)}
	owned, err := column.TryFromScalars(vals, coltype.Simple(coltype.Int))
	require.NoError(t, err)
	nullable := column.AllPresent(owned)

	arr, err := arrowbridge.FromOwned(nullable)
	require.NoError(t, err)
	require.Equal(t, []int32{1, -2, 3}, arr.Int32s)

	back, err := arrowbridge.ToOwned(arr)
	require.NoError(t, err)
	for i, want := range vals {
		v, present := back.ScalarAt(i)
		require.True(t, present)
		require.True(t, v.Equal(want))
	}
}

func TestRoundTripVarChar(t *testing.T) {
	owned := column.Owned{Type: coltype.Simple(coltype.VarChar), Strings: []string{"a", "bb", "ccc"}}
	nullable := column.AllPresent(owned)

	arr, err := arrowbridge.FromOwned(nullable)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "bb", "ccc"}, arr.Strings)

	back, err := arrowbridge.ToOwned(arr)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "bb", "ccc"}, back.Values.Strings)
}

func TestFromOwnedRejectsScalarColumn(t *testing.T) {
	owned := column.Owned{Type: coltype.Simple(coltype.Scalar), Scalars: []scalar.Element{scalar.One}}
	nullable := column.AllPresent(owned)

	_, err := arrowbridge.FromOwned(nullable)
	require.Error(t, err)
}
