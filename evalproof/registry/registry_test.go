package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/registry"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func TestEveryBackendRoundTrips(t *testing.T) {
	vec := []scalar.Element{
		scalar.TryFromInt64(2), scalar.TryFromInt64(4),
		scalar.TryFromInt64(6), scalar.TryFromInt64(8),
	}
	point := []scalar.Element{scalar.TryFromInt64(11), scalar.TryFromInt64(13)}
	claimed := mle.Evaluate(vec, point)

	for _, b := range []evalproof.Backend{
		evalproof.InnerProduct, evalproof.Dory, evalproof.DynamicDory, evalproof.HyperKZG,
	} {
		b := b
		t.Run(b.String(), func(t *testing.T) {
			scheme := registry.ForBackend(b)
			params := scheme.Setup(len(vec))
			commitment := scheme.Commit(params, vec)
			proof, err := scheme.Prove(params, vec, point, claimed)
			require.NoError(t, err)
			require.NoError(t, scheme.Verify(params, commitment, point, claimed, proof))
		})
	}
}
