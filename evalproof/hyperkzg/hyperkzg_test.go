package hyperkzg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/evalproof/hyperkzg"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func TestProveVerifyRoundTrip(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(10), scalar.TryFromInt64(20),
		scalar.TryFromInt64(30), scalar.TryFromInt64(40),
	}
	point := []scalar.Element{scalar.TryFromInt64(6), scalar.TryFromInt64(15)}
	claimed := mle.Evaluate(vec, point)

	params, err := hyperkzg.Setup(len(vec))
	require.NoError(t, err)

	commitment, err := hyperkzg.Commit(params, vec)
	require.NoError(t, err)

	proof, err := hyperkzg.Prove(params, vec, point, claimed)
	require.NoError(t, err)

	require.NoError(t, hyperkzg.Verify(params, commitment, point, claimed, proof))
}

func TestVerifyRejectsWrongClaim(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(10), scalar.TryFromInt64(20),
		scalar.TryFromInt64(30), scalar.TryFromInt64(40),
	}
	point := []scalar.Element{scalar.TryFromInt64(6), scalar.TryFromInt64(15)}
	claimed := mle.Evaluate(vec, point)
	wrong := scalar.Add(claimed, scalar.One)

	params, err := hyperkzg.Setup(len(vec))
	require.NoError(t, err)
	commitment, err := hyperkzg.Commit(params, vec)
	require.NoError(t, err)

	proof, err := hyperkzg.Prove(params, vec, point, claimed)
	require.NoError(t, err)

	require.Error(t, hyperkzg.Verify(params, commitment, point, wrong, proof))
}
