package wire_test

import (
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/internal/wire"
	"github.com/opaquelabs/veriql/scalar"
)

// rawEnvelope mirrors wire's unexported envelope shape field-for-field,
// relying on cbor's default "struct fields keyed by name" encoding to
// let this test tamper with the FormatVersion a real envelope carries
// without wire exporting anything test-only.
type rawEnvelope struct {
	FormatVersion string
	Compressed    bool
	Payload       []byte
}

func bumpMajorVersionForTest(t *testing.T, data []byte) []byte {
	t.Helper()
	var env rawEnvelope
	require.NoError(t, cbor.Unmarshal(data, &env))
	env.FormatVersion = "2.0.0"
	out, err := cbor.Marshal(env)
	require.NoError(t, err)
	return out
}

func sampleTable() commitment.Table {
	gens := curve.NewGenerators("wire-test-gens", 2)
	return commitment.Table{
		Range: commitment.Range{Start: 0, End: 10},
		Columns: map[ast.Ident]commitment.Column{
			"amount": {
				Type:   coltype.Simple(coltype.Int),
				Bounds: commitment.NewBounded(big.NewInt(-5), big.NewInt(100)),
				Value:  curve.ScalarMul(curve.FromAffine(gens.G[0]), scalar.TryFromInt64(7)),
			},
			"label": {
				Type:   coltype.Simple(coltype.VarChar),
				Bounds: commitment.NoOrderBounds(),
				Value:  curve.ScalarMul(curve.FromAffine(gens.G[1]), scalar.TryFromInt64(3)),
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tbl := sampleTable()
	for _, compress := range []bool{false, true} {
		data, err := wire.EncodeTableCommitment(tbl, compress)
		require.NoError(t, err)

		got, err := wire.DecodeTableCommitment(data)
		require.NoError(t, err)

		require.Equal(t, tbl.Range, got.Range)
		require.Len(t, got.Columns, len(tbl.Columns))
		for id, want := range tbl.Columns {
			have, ok := got.Columns[id]
			require.True(t, ok)
			require.True(t, have.Type.Equal(want.Type))
			require.True(t, have.Bounds.Equal(want.Bounds))
			require.True(t, have.Value.Equal(want.Value))
		}
	}
}

func TestDecodeRejectsIncompatibleMajorVersion(t *testing.T) {
	tbl := sampleTable()
	data, err := wire.EncodeTableCommitment(tbl, false)
	require.NoError(t, err)

	bumped := bumpMajorVersionForTest(t, data)
	_, err = wire.DecodeTableCommitment(bumped)
	require.Error(t, err)
}
