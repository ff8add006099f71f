package innerproduct_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/evalproof/innerproduct"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func TestProveVerifyRoundTrip(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(1), scalar.TryFromInt64(2),
		scalar.TryFromInt64(3), scalar.TryFromInt64(4),
	}
	point := []scalar.Element{scalar.TryFromInt64(5), scalar.TryFromInt64(9)}
	claimed := mle.Evaluate(vec, point)

	params := innerproduct.Setup(len(vec))
	commitment := innerproduct.Commit(params, vec)

	proof, err := innerproduct.Prove(params, vec, point, claimed)
	require.NoError(t, err)

	require.NoError(t, innerproduct.Verify(params, commitment, point, claimed, proof))
}

func TestVerifyRejectsWrongClaim(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(1), scalar.TryFromInt64(2),
		scalar.TryFromInt64(3), scalar.TryFromInt64(4),
	}
	point := []scalar.Element{scalar.TryFromInt64(5), scalar.TryFromInt64(9)}
	claimed := mle.Evaluate(vec, point)
	wrong := scalar.Add(claimed, scalar.One)

	params := innerproduct.Setup(len(vec))
	commitment := innerproduct.Commit(params, vec)

	proof, err := innerproduct.Prove(params, vec, point, claimed)
	require.NoError(t, err)

	require.Error(t, innerproduct.Verify(params, commitment, point, wrong, proof))
}
