package coltype

import (
	"fmt"

	"github.com/opaquelabs/veriql/qerror"
)

// Op enumerates the binary operators whose result type this package
// computes. Unary NOT and IS [NOT] NULL/IS TRUE don't need a result-type
// rule (NOT : Boolean -> Boolean, IS* : T -> Boolean) and are handled
// directly by the plan package.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

func clampInt8(v int) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}

func clampPrecision(v int) uint8 {
	if v > 75 {
		return 75
	}
	if v < 1 {
		return 1
	}
	return uint8(v)
}

// asDecimal views any numeric type uniformly as a Decimal75 operand: an
// integer type T is Decimal(precision_of(T), 0); Decimal75 passes
// through; non-numeric types have no decimal view.
func asDecimal(t Type) (precision uint8, scale int8, ok bool) {
	switch t.Kind {
	case Decimal75:
		return t.Precision, t.Scale, true
	case Uint8:
		return 3, 0, true // 0..255
	case TinyInt:
		return 3, 0, true
	case SmallInt:
		return 5, 0, true
	case Int:
		return 10, 0, true
	case BigInt:
		return 19, 0, true
	case Int128:
		return 39, 0, true
	default:
		return 0, 0, false
	}
}

// isIntegerKind reports whether t is a plain (non-Decimal75) fixed-width
// integer kind, used to decide whether an add/sub/mul/div result should
// collapse back to that integer kind (both operands integers, no decimal
// ever introduced) or be reported as Decimal75.
func isIntegerKind(t Type) bool {
	switch t.Kind {
	case Uint8, TinyInt, SmallInt, Int, BigInt, Int128:
		return true
	default:
		return false
	}
}

// widestInteger picks the wider of two plain integer kinds by byte size,
// ties broken toward signedness (signed wins: Uint8, the only unsigned
// kind, mixed with the one-byte TinyInt gives TinyInt).
func widestInteger(a, b Type) Type {
	if a.ByteSize() == b.ByteSize() && !a.IsSigned() && b.IsSigned() {
		return b
	}
	if a.ByteSize() >= b.ByteSize() {
		return a
	}
	return b
}

// ResultType computes the result type of applying op to operands of type
// l and r, per §4.2.
func ResultType(op Op, l, r Type) (Type, error) {
	switch op {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		if !l.IsNumeric() || !r.IsNumeric() {
			if !l.Equal(r) {
				return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
					fmt.Sprintf("cannot compare %s and %s", l, r), nil)
			}
			return Simple(Boolean), nil
		}
		// Decimal-aware comparison: both sides have a decimal view; the
		// comparison itself is computed at scalar-evaluation time (§4.2),
		// this function only validates operand compatibility.
		if _, _, ok := asDecimal(l); !ok {
			return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
				fmt.Sprintf("%s is not comparable", l), nil)
		}
		if _, _, ok := asDecimal(r); !ok {
			return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
				fmt.Sprintf("%s is not comparable", r), nil)
		}
		return Simple(Boolean), nil

	case OpAnd, OpOr:
		if l.Kind != Boolean || r.Kind != Boolean {
			return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
				fmt.Sprintf("AND/OR require BOOLEAN operands, got %s and %s", l, r), nil)
		}
		return Simple(Boolean), nil

	case OpAdd, OpSub:
		return decimalAddSub(l, r)
	case OpMul:
		return decimalMul(l, r)
	case OpDiv:
		return decimalDiv(l, r)
	}
	return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch, "unknown operator", nil)
}

// decimalAddSub implements §4.2's add/sub rule: new scale = max(sl, sr),
// new precision = one more than the natural upper bound clamped to 75.
// If both operands are plain (non-decimal) integers, the result collapses
// back to the wider plain integer kind instead of being reported as
// Decimal75 — this keeps scenario 4 of §8 ("types stay TinyInt") exact.
func decimalAddSub(l, r Type) (Type, error) {
	if isIntegerKind(l) && isIntegerKind(r) {
		return widestInteger(l, r), nil
	}
	pl, sl, ok := asDecimal(l)
	if !ok {
		return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("%s is not numeric", l), nil)
	}
	pr, sr, ok := asDecimal(r)
	if !ok {
		return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("%s is not numeric", r), nil)
	}
	scale := sl
	if sr > scale {
		scale = sr
	}
	integerDigitsL := int(pl) - int(sl)
	integerDigitsR := int(pr) - int(sr)
	maxIntegerDigits := integerDigitsL
	if integerDigitsR > maxIntegerDigits {
		maxIntegerDigits = integerDigitsR
	}
	precision := clampPrecision(maxIntegerDigits + int(scale) + 1)
	return NewDecimal75(precision, clampInt8(int(scale)))
}

// decimalMul implements §4.2's multiply rule: scale = sl+sr clamped to
// ±128, precision = pl+pr+1 clamped to 75.
func decimalMul(l, r Type) (Type, error) {
	if isIntegerKind(l) && isIntegerKind(r) {
		return widestInteger(l, r), nil
	}
	pl, sl, ok := asDecimal(l)
	if !ok {
		return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("%s is not numeric", l), nil)
	}
	pr, sr, ok := asDecimal(r)
	if !ok {
		return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("%s is not numeric", r), nil)
	}
	scale := clampInt8(int(sl) + int(sr))
	precision := clampPrecision(int(pl) + int(pr) + 1)
	return NewDecimal75(precision, scale)
}

// decimalDiv implements §4.2's divide rule: new scale = max(6, pr+sl+1),
// new precision = pl-sl+sr+new_scale. Division by zero is not a type
// error; it's a QueryError raised at evaluation time (§7), so this
// function only computes the result type.
func decimalDiv(l, r Type) (Type, error) {
	pl, sl, ok := asDecimal(l)
	if !ok {
		return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("%s is not numeric", l), nil)
	}
	pr, sr, ok := asDecimal(r)
	if !ok {
		return Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("%s is not numeric", r), nil)
	}
	newScale := int(pr) + int(sl) + 1
	if newScale < 6 {
		newScale = 6
	}
	newPrecision := int(pl) - int(sl) + int(sr) + newScale
	return NewDecimal75(clampPrecision(newPrecision), clampInt8(newScale))
}

// CoerceScalarToNumeric supplements §4.3's try_coerce_scalar_to_numeric:
// it reports whether a raw Scalar column may be narrowed to target, at
// the type-algebra level only (the column package performs the
// corresponding value-level range check).
func CoerceScalarToNumeric(target Type) bool {
	return target.IsNumeric() || target.Kind == Boolean
}

// EqualityScaleDelta returns |sl - sr| for use by the comparison
// evaluator (§4.2): "If Δ exceeds the decimal side's precision, equality
// collapses to both-are-zero".
func EqualityScaleDelta(l, r Type) (delta uint8, widerIsLeft bool) {
	_, sl, _ := asDecimal(l)
	_, sr, _ := asDecimal(r)
	d := int(sl) - int(sr)
	if d < 0 {
		return uint8(-d), false
	}
	return uint8(d), true
}

// DecimalPrecisionScale exposes asDecimal for use outside the package
// (the column/plan packages need the same "view any numeric as a
// decimal" logic to evaluate comparisons and arithmetic).
func DecimalPrecisionScale(t Type) (precision uint8, scale int8, ok bool) {
	return asDecimal(t)
}
