package prove_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/registry"
	"github.com/opaquelabs/veriql/internal/profile"
	"github.com/opaquelabs/veriql/prove"
)

// TestProveRecordsProfilePhases exercises internal/profile.Recorder the
// way a benchmark harness wraps a multi-phase prove call: one phase per
// Prove invocation, merged at the end into a single profile.Profile with
// each sample's phase label intact.
func TestProveRecordsProfilePhases(t *testing.T) {
	acc, node := newFilterFixture()
	scheme := registry.ForBackend(evalproof.InnerProduct)
	params := scheme.Setup(64)

	rec := profile.NewRecorder()

	require.NoError(t, rec.StartPhase("filter-proof"))
	_, err := prove.Prove(node, acc, acc, scheme, params)
	rec.EndPhase()
	require.NoError(t, err)

	merged, err := rec.Merged()
	require.NoError(t, err)
	require.NotNil(t, merged)
}
