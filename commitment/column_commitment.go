package commitment

import (
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/qerror"
)

// Column is a per-column commitment with type and value-range metadata
// (§3, §4.6): (type, bounds, commitment_value).
type Column struct {
	Type   coltype.Type
	Bounds ColumnBounds
	Value  curve.Point
}

// TryUnion requires a.Type == b.Type and combines bounds (widening) and
// commitment values (group addition) — §4.6.
func TryUnion(a, b Column) (Column, error) {
	if !a.Type.Equal(b.Type) {
		return Column{}, qerror.NewQueryError(qerror.KindColumnMismatch,
			"try_union requires identical column types", nil)
	}
	return Column{
		Type:   a.Type,
		Bounds: Union(a.Bounds, b.Bounds),
		Value:  curve.Add(a.Value, b.Value),
	}, nil
}

// TryDifference requires a.Type == b.Type and combines bounds
// (weakening/over-approximating) and commitment values (group
// subtraction) — §4.6.
func TryDifference(a, b Column) (Column, error) {
	if !a.Type.Equal(b.Type) {
		return Column{}, qerror.NewQueryError(qerror.KindColumnMismatch,
			"try_difference requires identical column types", nil)
	}
	return Column{
		Type:   a.Type,
		Bounds: Difference(a.Bounds, b.Bounds),
		Value:  curve.Sub(a.Value, b.Value),
	}, nil
}
