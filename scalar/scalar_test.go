package scalar

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestPow10Table(t *testing.T) {
	require.True(t, Pow10(0).Equal(One))
	ten := TryFromInt64(10)
	require.True(t, Pow10(1).Equal(ten))
	hundred := Mul(ten, ten)
	require.True(t, Pow10(2).Equal(hundred))
}

func TestSignedCmpOrdersNegativesBelowPositives(t *testing.T) {
	neg := TryFromInt64(-5)
	pos := TryFromInt64(5)
	require.Equal(t, -1, SignedCmp(neg, pos))
	require.Equal(t, 1, SignedCmp(pos, neg))
	require.Equal(t, 0, SignedCmp(neg, neg))
}

func TestTryIntoInt64Overflow(t *testing.T) {
	tooBig := TryFromBigInt(new(big.Int).Lsh(big.NewInt(1), 100))
	_, err := TryIntoInt64(tooBig)
	require.Error(t, err)
}

func TestInt128MinRoundTrips(t *testing.T) {
	min128 := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	e := TryFromBigInt(min128)
	got, err := TryIntoInt(e, 128)
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(min128))

	oneLess := new(big.Int).Sub(min128, big.NewInt(1))
	e2 := TryFromBigInt(oneLess)
	_, err = TryIntoInt(e2, 128)
	require.Error(t, err)
}

func TestInt64RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("TryFromInt64/TryIntoInt64 round-trips", prop.ForAll(
		func(x int64) bool {
			e := TryFromInt64(x)
			got, err := TryIntoInt64(e)
			return err == nil && got == x
		},
		gen.Int64(),
	))

	properties.Property("Add is commutative", prop.ForAll(
		func(a, b int64) bool {
			ea, eb := TryFromInt64(a), TryFromInt64(b)
			return Add(ea, eb).Equal(Add(eb, ea))
		},
		gen.Int64(), gen.Int64(),
	))

	properties.TestingRun(t)
}
