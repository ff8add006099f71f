package dynamicdory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/evalproof/dynamicdory"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

func TestProveVerifyAcrossGrowingTable(t *testing.T) {
	small := []scalar.Element{scalar.TryFromInt64(1), scalar.TryFromInt64(2)}
	smallPoint := []scalar.Element{scalar.TryFromInt64(4)}
	smallClaim := mle.Evaluate(small, smallPoint)

	params := dynamicdory.Setup(len(small))
	smallCommit := dynamicdory.Commit(params, small)
	smallProof, err := dynamicdory.Prove(params, small, smallPoint, smallClaim)
	require.NoError(t, err)
	require.NoError(t, dynamicdory.Verify(params, smallCommit, smallPoint, smallClaim, smallProof))

	// Reusing the same Params (and its lazily-grown table) against a
	// longer vector must still work, and the earlier commitment/proof
	// must remain independently verifiable.
	big := []scalar.Element{
		scalar.TryFromInt64(1), scalar.TryFromInt64(2),
		scalar.TryFromInt64(3), scalar.TryFromInt64(4),
	}
	bigPoint := []scalar.Element{scalar.TryFromInt64(9), scalar.TryFromInt64(2)}
	bigClaim := mle.Evaluate(big, bigPoint)

	bigCommit := dynamicdory.Commit(params, big)
	bigProof, err := dynamicdory.Prove(params, big, bigPoint, bigClaim)
	require.NoError(t, err)
	require.NoError(t, dynamicdory.Verify(params, bigCommit, bigPoint, bigClaim, bigProof))

	require.NoError(t, dynamicdory.Verify(params, smallCommit, smallPoint, smallClaim, smallProof))
}
