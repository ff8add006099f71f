// Package coltype implements the closed column-type algebra (§4.2): a
// fixed enum of supported column types plus the deterministic result-type
// rules for comparison, ordering, and arithmetic operators, including
// T-SQL-style decimal precision/scale propagation.
package coltype

import (
	"fmt"
	"math/big"

	"github.com/opaquelabs/veriql/qerror"
)

// Kind enumerates the closed set of column types. New kinds are never
// added outside this file — every consumer switches exhaustively over
// Kind and a new case would need to touch every switch.
type Kind int

const (
	Boolean Kind = iota
	Uint8
	TinyInt  // i8
	SmallInt // i16
	Int      // i32
	BigInt   // i64
	Int128
	Decimal75
	Scalar
	VarChar
	VarBinary
	TimestampTZ
	FixedSizeBinary
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "BOOLEAN"
	case Uint8:
		return "UINT8"
	case TinyInt:
		return "TINYINT"
	case SmallInt:
		return "SMALLINT"
	case Int:
		return "INT"
	case BigInt:
		return "BIGINT"
	case Int128:
		return "INT128"
	case Decimal75:
		return "DECIMAL75"
	case Scalar:
		return "SCALAR"
	case VarChar:
		return "VARCHAR"
	case VarBinary:
		return "VARBINARY"
	case TimestampTZ:
		return "TIMESTAMPTZ"
	case FixedSizeBinary:
		return "FIXEDSIZEBINARY"
	default:
		return "UNKNOWN"
	}
}

// TimeUnit is the resolution a TimestampTZ's backing i64 is measured in.
type TimeUnit int

const (
	Seconds TimeUnit = iota
	Millis
	Micros
	Nanos
)

// Type is a fully-specified column type: Kind plus the payload fields
// that only some kinds use (Decimal75's precision/scale, TimestampTZ's
// unit/zone, FixedSizeBinary's width).
type Type struct {
	Kind Kind

	// Decimal75
	Precision uint8 // 1..=75
	Scale     int8  // -128..=127

	// TimestampTZ
	Unit TimeUnit
	Zone string // e.g. "UTC", "+05:30"

	// FixedSizeBinary
	Width int // > 0
}

// Simple constructs a Type for any kind that carries no payload.
func Simple(k Kind) Type { return Type{Kind: k} }

// NewDecimal75 validates precision ∈ [1,75] and scale ∈ [-128,127].
func NewDecimal75(precision uint8, scale int8) (Type, error) {
	if precision < 1 || precision > 75 {
		return Type{}, qerror.NewQueryError(qerror.KindInvalidDecimal,
			fmt.Sprintf("precision %d out of range [1,75]", precision), nil)
	}
	return Type{Kind: Decimal75, Precision: precision, Scale: scale}, nil
}

// NewTimestampTZ builds a TimestampTZ type.
func NewTimestampTZ(unit TimeUnit, zone string) Type {
	return Type{Kind: TimestampTZ, Unit: unit, Zone: zone}
}

// NewFixedSizeBinary validates width > 0.
func NewFixedSizeBinary(width int) (Type, error) {
	if width <= 0 {
		return Type{}, qerror.NewQueryError(qerror.KindInvalidDecimal,
			fmt.Sprintf("fixed size binary width %d must be > 0", width), nil)
	}
	return Type{Kind: FixedSizeBinary, Width: width}, nil
}

// Equal reports whether two types are identical, including payload
// fields. Used everywhere a spec rule says "requires a.type == b.type".
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Decimal75:
		return t.Precision == o.Precision && t.Scale == o.Scale
	case TimestampTZ:
		return t.Unit == o.Unit && t.Zone == o.Zone
	case FixedSizeBinary:
		return t.Width == o.Width
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case Decimal75:
		return fmt.Sprintf("DECIMAL75(%d,%d)", t.Precision, t.Scale)
	case TimestampTZ:
		return fmt.Sprintf("TIMESTAMPTZ(%d,%s)", t.Unit, t.Zone)
	case FixedSizeBinary:
		return fmt.Sprintf("FIXEDSIZEBINARY(%d)", t.Width)
	default:
		return t.Kind.String()
	}
}

// IsSigned reports whether the type's integer embedding uses negative
// values (everything except Boolean and Uint8 among the integer kinds;
// Decimal75 and TimestampTZ are signed too, Scalar is not).
func (t Type) IsSigned() bool {
	switch t.Kind {
	case TinyInt, SmallInt, Int, BigInt, Int128, Decimal75, TimestampTZ:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the type participates in arithmetic/ordering
// as a number (as opposed to Boolean, strings/bytes, or raw Scalar, which
// are NoOrder per §3).
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case Uint8, TinyInt, SmallInt, Int, BigInt, Int128, Decimal75, TimestampTZ:
		return true
	default:
		return false
	}
}

// ByteSize is the limb width used for commitments (§3 "each has a fixed
// byte size").
func (t Type) ByteSize() int {
	switch t.Kind {
	case Boolean, Uint8:
		return 1
	case TinyInt:
		return 1
	case SmallInt:
		return 2
	case Int:
		return 4
	case BigInt, TimestampTZ:
		return 8
	case Int128:
		return 16
	case Decimal75, Scalar, VarChar, VarBinary:
		return 32 // materialized as [4]uint64 limbs
	case FixedSizeBinary:
		return t.Width
	default:
		return 0
	}
}

// BitSize is the bit-table entry width (§4.4).
func (t Type) BitSize() int {
	switch t.Kind {
	case Boolean:
		return 1
	default:
		return t.ByteSize() * 8
	}
}

// HasFixedIntegerRange reports whether t is a twos-complement-style
// fixed-width signed integer with a Min() offset (§4.5's sign-correction
// path). Decimal75 is signed and numeric but has no bit-width-derived
// minimum — its range comes from precision/scale, and §4.4 commits it as
// a raw limb-packed scalar with no sign offset — so it is deliberately
// excluded here even though IsSigned() && IsNumeric() both hold for it.
func (t Type) HasFixedIntegerRange() bool {
	switch t.Kind {
	case TinyInt, SmallInt, Int, BigInt, Int128, TimestampTZ:
		return true
	default:
		return false
	}
}

// Min returns the canonical minimum value for a fixed-width signed
// integer type, used as the sign-correction offset in §4.5. Int128's
// minimum (-2^127) does not fit an int64, hence the *big.Int return.
// Panics for any type HasFixedIntegerRange reports false for — callers
// only call this after checking HasFixedIntegerRange().
func (t Type) Min() *big.Int {
	switch t.Kind {
	case TinyInt:
		return big.NewInt(-(1 << 7))
	case SmallInt:
		return big.NewInt(-(1 << 15))
	case Int:
		return big.NewInt(-(1 << 31))
	case BigInt, TimestampTZ:
		return big.NewInt(-(1 << 63))
	case Int128:
		min := new(big.Int).Lsh(big.NewInt(1), 127)
		return min.Neg(min)
	default:
		qerror.Panic("coltype: Min() called on non-fixed-width-integer type %s", t)
		return nil
	}
}
