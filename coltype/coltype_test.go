package coltype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTinyIntAddStaysTinyInt(t *testing.T) {
	// §8 scenario 4: a*b+b+c on all-TinyInt columns stays TinyInt.
	rt, err := ResultType(OpMul, Simple(TinyInt), Simple(TinyInt))
	require.NoError(t, err)
	require.Equal(t, TinyInt, rt.Kind)

	rt2, err := ResultType(OpAdd, rt, Simple(TinyInt))
	require.NoError(t, err)
	require.Equal(t, TinyInt, rt2.Kind)
}

func TestDecimalAddScaleAndPrecision(t *testing.T) {
	a, err := NewDecimal75(10, 2)
	require.NoError(t, err)
	b, err := NewDecimal75(8, 4)
	require.NoError(t, err)

	rt, err := ResultType(OpAdd, a, b)
	require.NoError(t, err)
	require.Equal(t, Decimal75, rt.Kind)
	require.Equal(t, int8(4), rt.Scale)
	require.Equal(t, uint8(13), rt.Precision)
}

func TestDecimalMulClampsPrecisionTo75(t *testing.T) {
	a, err := NewDecimal75(75, 0)
	require.NoError(t, err)
	b, err := NewDecimal75(75, 0)
	require.NoError(t, err)

	rt, err := ResultType(OpMul, a, b)
	require.NoError(t, err)
	require.Equal(t, uint8(75), rt.Precision)
}

func TestDivideByComputesMinimumScaleSix(t *testing.T) {
	a, err := NewDecimal75(5, 0)
	require.NoError(t, err)
	b, err := NewDecimal75(5, 0)
	require.NoError(t, err)

	rt, err := ResultType(OpDiv, a, b)
	require.NoError(t, err)
	require.Equal(t, int8(6), rt.Scale)
}

func TestComparisonRequiresCompatibleTypes(t *testing.T) {
	_, err := ResultType(OpEq, Simple(VarChar), Simple(Int))
	require.Error(t, err)

	rt, err := ResultType(OpEq, Simple(VarChar), Simple(VarChar))
	require.NoError(t, err)
	require.Equal(t, Boolean, rt.Kind)
}

func TestAndOrRequireBoolean(t *testing.T) {
	_, err := ResultType(OpAnd, Simple(Int), Simple(Boolean))
	require.Error(t, err)

	rt, err := ResultType(OpOr, Simple(Boolean), Simple(Boolean))
	require.NoError(t, err)
	require.Equal(t, Boolean, rt.Kind)
}

func TestFixedSizeBinaryValidatesWidth(t *testing.T) {
	_, err := NewFixedSizeBinary(0)
	require.Error(t, err)
	ty, err := NewFixedSizeBinary(4)
	require.NoError(t, err)
	require.Equal(t, 4, ty.ByteSize())
}
