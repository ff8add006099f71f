// Package arrowbridge implements the §6 external type-bridge table: a
// `column.Owned`/`column.Nullable` on one side, a minimal typed-array
// representation standing in for an external columnar format (Arrow,
// or any other typed-array producer a caller's ingestion layer uses)
// on the other. The mapping below is reimplemented from
// original_source/.../owned_and_arrow_conversions.rs's documented
// Owned<->Arrow table idiomatically — this package never imports a
// real Arrow binding, since none ships in this module's dependency
// set (§1 keeps the wire format out of scope; only the *shape* of the
// bridge is carried over).
package arrowbridge

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// TypedArray is the external, type-tagged buffer a caller's ingestion
// layer hands in or expects back — the bridge's "Arrow side." Presence
// mirrors column.Nullable's convention: nil means every row present.
type TypedArray struct {
	Type     coltype.Type
	Presence *bitset.BitSet

	Bools   []bool
	Uint8s  []uint8
	Int8s   []int8
	Int16s  []int16
	Int32s  []int32
	Int64s  []int64
	Strings []string
	Bytes   [][]byte
}

func (a TypedArray) len() int {
	switch a.Type.Kind {
	case coltype.Boolean:
		return len(a.Bools)
	case coltype.Uint8:
		return len(a.Uint8s)
	case coltype.TinyInt:
		return len(a.Int8s)
	case coltype.SmallInt:
		return len(a.Int16s)
	case coltype.Int:
		return len(a.Int32s)
	case coltype.BigInt, coltype.TimestampTZ:
		return len(a.Int64s)
	case coltype.VarChar:
		return len(a.Strings)
	case coltype.VarBinary, coltype.FixedSizeBinary:
		return len(a.Bytes)
	default:
		return 0
	}
}

// FromOwned bridges a column.Nullable to its external typed-array form
// (the `impl From<OwnedNullableColumn<S>> for ArrayRef` direction).
// Int128/Decimal75/Scalar have no natural typed-array representation in
// this minimal bridge (the original maps them to Decimal128/Decimal256,
// both Arrow-specific fixed-width decimal encodings this package does
// not carry a binding for) and are rejected rather than silently
// truncated.
func FromOwned(col column.Nullable) (TypedArray, error) {
	t := col.Values.Type
	out := TypedArray{Type: t, Presence: col.Presence}
	n := col.Len()
	switch t.Kind {
	case coltype.Boolean:
		out.Bools = append([]bool(nil), col.Values.Bools...)
	case coltype.Uint8:
		out.Uint8s = append([]uint8(nil), col.Values.Uint8s...)
	case coltype.TinyInt:
		out.Int8s = append([]int8(nil), col.Values.Int8s...)
	case coltype.SmallInt:
		out.Int16s = append([]int16(nil), col.Values.Int16s...)
	case coltype.Int:
		out.Int32s = append([]int32(nil), col.Values.Int32s...)
	case coltype.BigInt, coltype.TimestampTZ:
		out.Int64s = append([]int64(nil), col.Values.Int64s...)
	case coltype.VarChar:
		out.Strings = append([]string(nil), col.Values.Strings...)
	case coltype.VarBinary, coltype.FixedSizeBinary:
		bs := col.Values.Bytes
		if t.Kind == coltype.FixedSizeBinary {
			bs = col.Values.FixedSize
		}
		out.Bytes = append([][]byte(nil), bs...)
	default:
		return TypedArray{}, qerror.NewQueryError(qerror.KindUnsupportedType,
			fmt.Sprintf("arrowbridge: %s has no external typed-array representation", t), nil)
	}
	if out.len() != n {
		qerror.Panic("arrowbridge: bridged array length %d disagrees with column length %d", out.len(), n)
	}
	return out, nil
}

// ToOwned reverses FromOwned (the `TryFrom<ArrayRef> for OwnedColumn`
// direction), validating every value is representable in target via
// column.TryFromScalars — the same range-check path every other
// ingestion route in this module already uses, so a malformed external
// array fails the identical way a malformed literal would.
func ToOwned(a TypedArray) (column.Nullable, error) {
	n := a.len()
	vals := make([]scalar.Element, n)
	for i := 0; i < n; i++ {
		if a.Presence != nil && !a.Presence.Test(uint(i)) {
			continue
		}
		switch a.Type.Kind {
		case coltype.Boolean:
			if a.Bools[i] {
				vals[i] = scalar.One
			}
		case coltype.Uint8:
			vals[i] = scalar.TryFromUint64(uint64(a.Uint8s[i]))
		case coltype.TinyInt:
			vals[i] = scalar.TryFromInt64(int64(a.Int8s[i]))
		case coltype.SmallInt:
			vals[i] = scalar.TryFromInt64(int64(a.Int16s[i]))
		case coltype.Int:
			vals[i] = scalar.TryFromInt64(int64(a.Int32s[i]))
		case coltype.BigInt, coltype.TimestampTZ:
			vals[i] = scalar.TryFromInt64(a.Int64s[i])
		case coltype.VarChar:
			vals[i] = scalar.FromByteSliceViaHash([]byte(a.Strings[i]))
		case coltype.VarBinary, coltype.FixedSizeBinary:
			vals[i] = scalar.FromByteSliceViaHash(a.Bytes[i])
		default:
			return column.Nullable{}, qerror.NewQueryError(qerror.KindUnsupportedType,
				fmt.Sprintf("arrowbridge: %s has no owned-column conversion", a.Type), nil)
		}
	}

	// Column kinds whose ScalarAt already hashes the value (VarChar,
	// VarBinary, FixedSizeBinary) cannot round-trip through
	// TryFromScalars (it builds typed storage from the *pre-hash*
	// values), so those are reassembled directly instead.
	var owned column.Owned
	var err error
	switch a.Type.Kind {
	case coltype.VarChar:
		owned = column.Owned{Type: a.Type, Strings: append([]string(nil), a.Strings...)}
	case coltype.VarBinary:
		owned = column.Owned{Type: a.Type, Bytes: append([][]byte(nil), a.Bytes...)}
	case coltype.FixedSizeBinary:
		owned = column.Owned{Type: a.Type, FixedSize: append([][]byte(nil), a.Bytes...)}
	default:
		owned, err = column.TryFromScalars(vals, a.Type)
		if err != nil {
			return column.Nullable{}, err
		}
	}
	return column.WithPresence(owned, a.Presence)
}
