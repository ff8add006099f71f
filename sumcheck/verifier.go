package sumcheck

import (
	"fmt"

	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// VerifierState tracks the running claim across rounds on the verifier
// side: it never sees the witness vectors, only the round messages the
// prover sends and the challenges the transcript squeezes.
type VerifierState struct {
	claim     scalar.Element
	challenges []scalar.Element
	nu        int
}

// NewVerifierState starts a verifier run at the given claimed sum (always
// zero for this system's plan encoding, since both Identity and ZeroSum
// subpolynomials contribute zero to the total claim — see driver.go) over
// nu rounds.
func NewVerifierState(claim scalar.Element, nu int) *VerifierState {
	return &VerifierState{claim: claim, nu: nu}
}

// CheckRound verifies that msg is consistent with the running claim
// (g_j(0)+g_j(1) == claim), then folds the claim forward to g_j(r) and
// records r for the final evaluation check.
func (v *VerifierState) CheckRound(msg RoundMessage, r scalar.Element) error {
	if len(v.challenges) >= v.nu {
		qerror.Panic("sumcheck: too many rounds checked, expected %d", v.nu)
	}
	sum := scalar.Add(msg.EvalAtNode(0), msg.EvalAtNode(1))
	if !sum.Equal(v.claim) {
		return qerror.NewProofError(qerror.KindSumcheckRoundMismatch,
			fmt.Sprintf("sumcheck: round %d message inconsistent with running claim", len(v.challenges)), nil)
	}
	v.claim = msg.InterpolateAt(r)
	v.challenges = append(v.challenges, r)
	return nil
}

// Challenges returns the full challenge vector r_1..r_nu accumulated
// across CheckRound calls, in round order: round j binds bit j of the
// row index (LSB first).
func (v *VerifierState) Challenges() []scalar.Element {
	return v.challenges
}

// FinalClaim returns the claim the last round folded to: the value the
// prover's final-round evaluation (computed from the opened MLE
// evaluations via the plan's constraint expression) must match.
func (v *VerifierState) FinalClaim() scalar.Element {
	return v.claim
}

// Done reports whether all nu rounds have been checked.
func (v *VerifierState) Done() bool {
	return len(v.challenges) == v.nu
}
