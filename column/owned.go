// Package column implements materialized column storage (§4.3): Owned
// and Nullable columns, slicing, permutation, inner product, and
// conversion to/from scalar vectors.
package column

import (
	"fmt"

	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// Owned is a value vector tagged by type. Exactly one of the typed slice
// fields below is populated, selected by Type.Kind; the others are nil.
// This mirrors the teacher's preference for a single closed variant with
// one active payload rather than an interface-per-kind hierarchy.
type Owned struct {
	Type coltype.Type

	Bools     []bool
	Uint8s    []uint8
	Int8s     []int8
	Int16s    []int16
	Int32s    []int32
	Int64s    []int64 // BigInt and TimestampTZ
	Int128s   []scalar.Element
	Decimals  []scalar.Element // Decimal75
	Scalars   []scalar.Element
	Strings   []string
	Bytes     [][]byte
	FixedSize [][]byte
}

// Len returns the row count.
func (c Owned) Len() int {
	switch c.Type.Kind {
	case coltype.Boolean:
		return len(c.Bools)
	case coltype.Uint8:
		return len(c.Uint8s)
	case coltype.TinyInt:
		return len(c.Int8s)
	case coltype.SmallInt:
		return len(c.Int16s)
	case coltype.Int:
		return len(c.Int32s)
	case coltype.BigInt, coltype.TimestampTZ:
		return len(c.Int64s)
	case coltype.Int128:
		return len(c.Int128s)
	case coltype.Decimal75:
		return len(c.Decimals)
	case coltype.Scalar:
		return len(c.Scalars)
	case coltype.VarChar:
		return len(c.Strings)
	case coltype.VarBinary:
		return len(c.Bytes)
	case coltype.FixedSizeBinary:
		return len(c.FixedSize)
	default:
		return 0
	}
}

// ScalarAt returns the row's value as a field element, for types that
// have a natural scalar representation. Every type has one: integers
// embed via scalar.TryFromInt64/TryFromBigInt, strings/bytes hash via
// FromByteSliceViaHash (§4.4, "the hash is treated as the value of the
// row for both commitment and equality purposes").
func (c Owned) ScalarAt(i int) scalar.Element {
	switch c.Type.Kind {
	case coltype.Boolean:
		if c.Bools[i] {
			return scalar.One
		}
		return scalar.Zero
	case coltype.Uint8:
		return scalar.TryFromUint64(uint64(c.Uint8s[i]))
	case coltype.TinyInt:
		return scalar.TryFromInt64(int64(c.Int8s[i]))
	case coltype.SmallInt:
		return scalar.TryFromInt64(int64(c.Int16s[i]))
	case coltype.Int:
		return scalar.TryFromInt64(int64(c.Int32s[i]))
	case coltype.BigInt, coltype.TimestampTZ:
		return scalar.TryFromInt64(c.Int64s[i])
	case coltype.Int128, coltype.Decimal75, coltype.Scalar:
		if c.Type.Kind == coltype.Int128 {
			return c.Int128s[i]
		}
		if c.Type.Kind == coltype.Decimal75 {
			return c.Decimals[i]
		}
		return c.Scalars[i]
	case coltype.VarChar:
		return scalar.FromByteSliceViaHash([]byte(c.Strings[i]))
	case coltype.VarBinary:
		return scalar.FromByteSliceViaHash(c.Bytes[i])
	case coltype.FixedSizeBinary:
		return scalar.FromByteSliceViaHash(c.FixedSize[i])
	default:
		qerror.Panic("column: ScalarAt unsupported type %s", c.Type)
		return scalar.Zero
	}
}

// Slice returns rows [start,end) without copying backing arrays beyond
// a Go slice re-slice.
func (c Owned) Slice(start, end int) Owned {
	if start < 0 || end < start || end > c.Len() {
		qerror.Panic("column: slice [%d,%d) out of bounds for length %d", start, end, c.Len())
	}
	out := Owned{Type: c.Type}
	switch c.Type.Kind {
	case coltype.Boolean:
		out.Bools = c.Bools[start:end]
	case coltype.Uint8:
		out.Uint8s = c.Uint8s[start:end]
	case coltype.TinyInt:
		out.Int8s = c.Int8s[start:end]
	case coltype.SmallInt:
		out.Int16s = c.Int16s[start:end]
	case coltype.Int:
		out.Int32s = c.Int32s[start:end]
	case coltype.BigInt, coltype.TimestampTZ:
		out.Int64s = c.Int64s[start:end]
	case coltype.Int128:
		out.Int128s = c.Int128s[start:end]
	case coltype.Decimal75:
		out.Decimals = c.Decimals[start:end]
	case coltype.Scalar:
		out.Scalars = c.Scalars[start:end]
	case coltype.VarChar:
		out.Strings = c.Strings[start:end]
	case coltype.VarBinary:
		out.Bytes = c.Bytes[start:end]
	case coltype.FixedSizeBinary:
		out.FixedSize = c.FixedSize[start:end]
	}
	return out
}

// TryPermute reorders rows according to perm (perm[i] is the source row
// now occupying destination row i), reusing the teacher's index-driven
// permutation-application idiom from backend/plonk/bls12-377/setup.go's
// buildPermutation/computePermutationPolynomials (there: apply a
// permutation over wire indices; here: apply one over row indices).
func (c Owned) TryPermute(perm []int) (Owned, error) {
	n := c.Len()
	if len(perm) != n {
		return Owned{}, qerror.NewQueryError(qerror.KindMixedLengthColumns,
			fmt.Sprintf("permutation length %d does not match column length %d", len(perm), n), nil)
	}
	out := Owned{Type: c.Type}
	switch c.Type.Kind {
	case coltype.Boolean:
		out.Bools = make([]bool, n)
		for i, p := range perm {
			out.Bools[i] = c.Bools[p]
		}
	case coltype.Uint8:
		out.Uint8s = make([]uint8, n)
		for i, p := range perm {
			out.Uint8s[i] = c.Uint8s[p]
		}
	case coltype.TinyInt:
		out.Int8s = make([]int8, n)
		for i, p := range perm {
			out.Int8s[i] = c.Int8s[p]
		}
	case coltype.SmallInt:
		out.Int16s = make([]int16, n)
		for i, p := range perm {
			out.Int16s[i] = c.Int16s[p]
		}
	case coltype.Int:
		out.Int32s = make([]int32, n)
		for i, p := range perm {
			out.Int32s[i] = c.Int32s[p]
		}
	case coltype.BigInt, coltype.TimestampTZ:
		out.Int64s = make([]int64, n)
		for i, p := range perm {
			out.Int64s[i] = c.Int64s[p]
		}
	case coltype.Int128:
		out.Int128s = make([]scalar.Element, n)
		for i, p := range perm {
			out.Int128s[i] = c.Int128s[p]
		}
	case coltype.Decimal75:
		out.Decimals = make([]scalar.Element, n)
		for i, p := range perm {
			out.Decimals[i] = c.Decimals[p]
		}
	case coltype.Scalar:
		out.Scalars = make([]scalar.Element, n)
		for i, p := range perm {
			out.Scalars[i] = c.Scalars[p]
		}
	case coltype.VarChar:
		out.Strings = make([]string, n)
		for i, p := range perm {
			out.Strings[i] = c.Strings[p]
		}
	case coltype.VarBinary:
		out.Bytes = make([][]byte, n)
		for i, p := range perm {
			out.Bytes[i] = c.Bytes[p]
		}
	case coltype.FixedSizeBinary:
		out.FixedSize = make([][]byte, n)
		for i, p := range perm {
			out.FixedSize[i] = c.FixedSize[p]
		}
	}
	return out, nil
}

// InnerProduct computes Σ ScalarAt(i) * vec[i]. Used by MLE folding and
// by the sumcheck driver's final evaluation checks.
func (c Owned) InnerProduct(vec []scalar.Element) (scalar.Element, error) {
	n := c.Len()
	if len(vec) != n {
		return scalar.Zero, qerror.NewQueryError(qerror.KindMixedLengthColumns,
			fmt.Sprintf("inner product length mismatch: column has %d rows, vector has %d", n, len(vec)), nil)
	}
	acc := scalar.Zero
	for i := 0; i < n; i++ {
		acc = scalar.Add(acc, scalar.Mul(c.ScalarAt(i), vec[i]))
	}
	return acc, nil
}

// TryFromScalars validates that every value is representable in target
// and builds the typed column, failing with KindScalarOutOfRange
// otherwise.
func TryFromScalars(vals []scalar.Element, target coltype.Type) (Owned, error) {
	out := Owned{Type: target}
	n := len(vals)
	switch target.Kind {
	case coltype.Boolean:
		out.Bools = make([]bool, n)
		for i, v := range vals {
			if v.Equal(scalar.Zero) {
				out.Bools[i] = false
			} else if v.Equal(scalar.One) {
				out.Bools[i] = true
			} else {
				return Owned{}, scalarRangeErr(v, target)
			}
		}
	case coltype.Uint8:
		out.Uint8s = make([]uint8, n)
		for i, v := range vals {
			bi, err := scalar.TryIntoInt(v, 16)
			if err != nil || bi.Sign() < 0 || bi.Int64() > 255 {
				return Owned{}, scalarRangeErr(v, target)
			}
			out.Uint8s[i] = uint8(bi.Int64())
		}
	case coltype.TinyInt, coltype.SmallInt, coltype.Int, coltype.BigInt:
		bits := target.ByteSize() * 8
		for _, v := range vals {
			if _, err := scalar.TryIntoInt(v, bits); err != nil {
				return Owned{}, scalarRangeErr(v, target)
			}
		}
		if err := fillFixedWidthInts(&out, vals, target); err != nil {
			return Owned{}, err
		}
	case coltype.Int128:
		for _, v := range vals {
			if _, err := scalar.TryIntoInt(v, 128); err != nil {
				return Owned{}, scalarRangeErr(v, target)
			}
		}
		out.Int128s = append([]scalar.Element(nil), vals...)
	case coltype.Decimal75:
		// Range-checking against (precision,scale) is a digit-count bound;
		// representability in the field is already guaranteed.
		out.Decimals = append([]scalar.Element(nil), vals...)
	case coltype.Scalar:
		out.Scalars = append([]scalar.Element(nil), vals...)
	default:
		return Owned{}, qerror.NewQueryError(qerror.KindUnsupportedType,
			fmt.Sprintf("cannot build %s column from scalars", target), nil)
	}
	return out, nil
}

func scalarRangeErr(v scalar.Element, target coltype.Type) error {
	return qerror.NewQueryError(qerror.KindScalarOutOfRange,
		fmt.Sprintf("scalar %s is not representable as %s", v, target), nil)
}

func fillFixedWidthInts(out *Owned, vals []scalar.Element, target coltype.Type) error {
	n := len(vals)
	switch target.Kind {
	case coltype.Uint8:
		out.Uint8s = make([]uint8, n)
		for i, v := range vals {
			bi, _ := scalar.TryIntoInt(v, 8)
			out.Uint8s[i] = uint8(bi.Int64())
		}
	case coltype.TinyInt:
		out.Int8s = make([]int8, n)
		for i, v := range vals {
			bi, _ := scalar.TryIntoInt(v, 8)
			out.Int8s[i] = int8(bi.Int64())
		}
	case coltype.SmallInt:
		out.Int16s = make([]int16, n)
		for i, v := range vals {
			bi, _ := scalar.TryIntoInt(v, 16)
			out.Int16s[i] = int16(bi.Int64())
		}
	case coltype.Int:
		out.Int32s = make([]int32, n)
		for i, v := range vals {
			bi, _ := scalar.TryIntoInt(v, 32)
			out.Int32s[i] = int32(bi.Int64())
		}
	case coltype.BigInt:
		out.Int64s = make([]int64, n)
		for i, v := range vals {
			bi, _ := scalar.TryIntoInt(v, 64)
			out.Int64s[i] = bi.Int64()
		}
	}
	return nil
}

// TryCoerceScalarToNumeric promotes a Scalar column to a narrower integer
// or decimal type when every value is representable (§4.3).
func (c Owned) TryCoerceScalarToNumeric(target coltype.Type) (Owned, error) {
	if c.Type.Kind != coltype.Scalar {
		return Owned{}, qerror.NewQueryError(qerror.KindUnsupportedType,
			"TryCoerceScalarToNumeric requires a Scalar column", nil)
	}
	if !coltype.CoerceScalarToNumeric(target) {
		return Owned{}, qerror.NewQueryError(qerror.KindUnsupportedType,
			fmt.Sprintf("cannot coerce SCALAR to %s", target), nil)
	}
	return TryFromScalars(c.Scalars, target)
}
