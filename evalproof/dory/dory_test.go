package dory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/evalproof/dory"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func TestProveVerifyRoundTrip(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(7), scalar.TryFromInt64(14),
		scalar.TryFromInt64(21), scalar.TryFromInt64(28),
	}
	point := []scalar.Element{scalar.TryFromInt64(3), scalar.TryFromInt64(8)}
	claimed := mle.Evaluate(vec, point)

	params := dory.Setup(len(vec))
	commitment := dory.Commit(params, vec)

	proof, err := dory.Prove(params, vec, point, claimed)
	require.NoError(t, err)

	require.NoError(t, dory.Verify(params, commitment, point, claimed, proof))
}

func TestVerifyRejectsWrongClaim(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(7), scalar.TryFromInt64(14),
		scalar.TryFromInt64(21), scalar.TryFromInt64(28),
	}
	point := []scalar.Element{scalar.TryFromInt64(3), scalar.TryFromInt64(8)}
	claimed := mle.Evaluate(vec, point)
	wrong := scalar.Add(claimed, scalar.One)

	params := dory.Setup(len(vec))
	commitment := dory.Commit(params, vec)

	proof, err := dory.Prove(params, vec, point, claimed)
	require.NoError(t, err)

	require.Error(t, dory.Verify(params, commitment, point, wrong, proof))
}
