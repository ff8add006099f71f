// Package wire implements persisted-state encode/decode for table
// commitments (§6): a version-gated envelope wrapping a per-column
// (type_tag, bounds_tag, bounds_payload, group_element_bytes) tuple
// list, the shape named for exactly what a commitment.Table needs to
// survive a round trip to disk or across a network hop without any real
// row data ever entering the encoding.
package wire

import (
	"fmt"
	"math/big"

	"github.com/blang/semver/v4"
	"github.com/consensys/compress/lzss"
	"github.com/fxamacker/cbor/v2"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/qerror"
)

// FormatVersion is this package's wire layout version. A major bump
// means the tuple shape below changed; minor/patch bumps are reserved
// for additive, backward-readable changes (§6: "stable across patch
// releases, major bump on layout change").
var FormatVersion = semver.MustParse("1.0.0")

type typeTag struct {
	Kind      coltype.Kind
	Precision uint8
	Scale     int8
	Unit      coltype.TimeUnit
	Zone      string
	Width     int
}

func encodeType(t coltype.Type) typeTag {
	return typeTag{Kind: t.Kind, Precision: t.Precision, Scale: t.Scale, Unit: t.Unit, Zone: t.Zone, Width: t.Width}
}

func (tt typeTag) decode() coltype.Type {
	return coltype.Type{Kind: tt.Kind, Precision: tt.Precision, Scale: tt.Scale, Unit: tt.Unit, Zone: tt.Zone, Width: tt.Width}
}

type bigIntTag struct {
	Neg bool
	Abs []byte
}

func encodeBigInt(v *big.Int) *bigIntTag {
	if v == nil {
		return nil
	}
	return &bigIntTag{Neg: v.Sign() < 0, Abs: new(big.Int).Abs(v).Bytes()}
}

func (b *bigIntTag) decode() *big.Int {
	if b == nil {
		return nil
	}
	v := new(big.Int).SetBytes(b.Abs)
	if b.Neg {
		v.Neg(v)
	}
	return v
}

// boundsTag is the wire form of commitment.ColumnBounds: Kind plus the
// Lo/Hi payload that is only present for Bounded.
type boundsTag struct {
	Kind commitment.BoundsKind
	Lo   *bigIntTag
	Hi   *bigIntTag
}

func encodeBounds(b commitment.ColumnBounds) boundsTag {
	return boundsTag{Kind: b.Kind, Lo: encodeBigInt(b.Lo), Hi: encodeBigInt(b.Hi)}
}

func (bt boundsTag) decode() commitment.ColumnBounds {
	return commitment.ColumnBounds{Kind: bt.Kind, Lo: bt.Lo.decode(), Hi: bt.Hi.decode()}
}

// columnWire is the per-column (type_tag, bounds_tag, bounds_payload,
// group_element_bytes) tuple §6 names, plus the ident it belongs to.
type columnWire struct {
	Ident  ast.Ident
	Type   typeTag
	Bounds boundsTag
	Value  []byte
}

type tableWire struct {
	Start, End uint64
	Columns    []columnWire
}

// envelope is the outer, version-checked frame every encoded payload
// carries. Compressed marks whether Payload was run through
// consensys/compress/lzss (the teacher dependency gnark-crypto itself
// uses for witness/calldata compression) before being wrapped here.
type envelope struct {
	FormatVersion string
	Compressed    bool
	Payload       []byte
}

// EncodeTableCommitment serializes tbl as a version-tagged envelope.
// compress selects whether the inner tuple payload is additionally run
// through LZSS — worthwhile for large tables with many narrow bounds,
// wasted work for the handful-of-columns case most queries touch, so
// it is the caller's choice rather than always-on.
func EncodeTableCommitment(tbl commitment.Table, compress bool) ([]byte, error) {
	tw := tableWire{Start: tbl.Range.Start, End: tbl.Range.End}
	for _, id := range tbl.SortedIdents() {
		col := tbl.Columns[id]
		tw.Columns = append(tw.Columns, columnWire{
			Ident:  id,
			Type:   encodeType(col.Type),
			Bounds: encodeBounds(col.Bounds),
			Value:  col.Value.Bytes(),
		})
	}
	payload, err := cbor.Marshal(tw)
	if err != nil {
		return nil, qerror.NewQueryError(qerror.KindInternalError, "wire: encoding table commitment", err)
	}
	env := envelope{FormatVersion: FormatVersion.String()}
	if compress {
		compressed, err := lzss.NewCompressor(nil).Compress(payload)
		if err != nil {
			return nil, qerror.NewQueryError(qerror.KindInternalError, "wire: compressing payload", err)
		}
		env.Compressed = true
		env.Payload = compressed
	} else {
		env.Payload = payload
	}
	out, err := cbor.Marshal(env)
	if err != nil {
		return nil, qerror.NewQueryError(qerror.KindInternalError, "wire: encoding envelope", err)
	}
	return out, nil
}

// DecodeTableCommitment reverses EncodeTableCommitment, rejecting a
// payload whose major FormatVersion differs from this package's
// (qerror.KindIncompatibleWireVersion) rather than guessing at a
// best-effort decode of an unknown layout.
func DecodeTableCommitment(data []byte) (commitment.Table, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return commitment.Table{}, qerror.NewQueryError(qerror.KindInternalError, "wire: decoding envelope", err)
	}
	v, err := semver.Parse(env.FormatVersion)
	if err != nil {
		return commitment.Table{}, qerror.NewQueryError(qerror.KindIncompatibleWireVersion,
			fmt.Sprintf("wire: unparseable format version %q", env.FormatVersion), err)
	}
	if v.Major != FormatVersion.Major {
		return commitment.Table{}, qerror.NewQueryError(qerror.KindIncompatibleWireVersion,
			fmt.Sprintf("wire: payload format version %s is incompatible with running version %s", v, FormatVersion), nil)
	}

	payload := env.Payload
	if env.Compressed {
		decompressed, err := lzss.Decompress(env.Payload, nil)
		if err != nil {
			return commitment.Table{}, qerror.NewQueryError(qerror.KindInternalError, "wire: decompressing payload", err)
		}
		payload = decompressed
	}

	var tw tableWire
	if err := cbor.Unmarshal(payload, &tw); err != nil {
		return commitment.Table{}, qerror.NewQueryError(qerror.KindInternalError, "wire: decoding table commitment payload", err)
	}

	cols := make(map[ast.Ident]commitment.Column, len(tw.Columns))
	for _, cw := range tw.Columns {
		point, err := curve.FromBytes(cw.Value)
		if err != nil {
			return commitment.Table{}, qerror.NewQueryError(qerror.KindInternalError,
				fmt.Sprintf("wire: decoding commitment point for column %q", cw.Ident), err)
		}
		cols[cw.Ident] = commitment.Column{
			Type:   cw.Type.decode(),
			Bounds: cw.Bounds.decode(),
			Value:  point,
		}
	}
	return commitment.Table{
		Columns: cols,
		Range:   commitment.Range{Start: tw.Start, End: tw.End},
	}, nil
}
