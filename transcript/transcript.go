// Package transcript implements the Fiat-Shamir transcript state machine
// from §4.11: a strict sequence of Absorb/Squeeze phases, built on
// gnark-crypto's own fiat-shamir.Transcript (the same package the teacher
// transitively depends on for compiling interactive protocols to
// non-interactive ones).
package transcript

import (
	"crypto/sha256"
	"fmt"

	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"

	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// State is the explicit transcript state enum from §4.11. Any deviation
// in ordering between prover and verifier is a KindInvalidTranscript
// ProofError — never a panic, since a malicious/buggy peer controls the
// order the verifier observes.
type State int

const (
	Init State = iota
	AbsorbPlan
	AbsorbFirstRoundCommits
	SqueezePostResultChallenges
	AbsorbIntermediateCommits
	SqueezeSumcheckChallenges
	AbsorbSumcheckRound
	SqueezeOuterChallenge
	AbsorbEvaluations
	AbsorbOpeningProof
	Accept
)

func (s State) String() string {
	names := [...]string{
		"Init", "AbsorbPlan", "AbsorbFirstRoundCommits", "SqueezePostResultChallenges",
		"AbsorbIntermediateCommits", "SqueezeSumcheckChallenges", "AbsorbSumcheckRound",
		"SqueezeOuterChallenge", "AbsorbEvaluations", "AbsorbOpeningProof", "Accept",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// allowedNext lists, for each state, which states a single Bind or
// ComputeChallenge call may advance to. AbsorbSumcheckRound self-loops ν
// times (one absorb per round) before moving on.
var allowedNext = map[State][]State{
	Init:                        {AbsorbPlan},
	AbsorbPlan:                  {AbsorbFirstRoundCommits},
	AbsorbFirstRoundCommits:     {SqueezePostResultChallenges},
	SqueezePostResultChallenges: {AbsorbIntermediateCommits},
	AbsorbIntermediateCommits:   {SqueezeSumcheckChallenges},
	SqueezeSumcheckChallenges:   {AbsorbSumcheckRound},
	AbsorbSumcheckRound:         {AbsorbSumcheckRound, SqueezeOuterChallenge},
	SqueezeOuterChallenge:       {AbsorbEvaluations},
	AbsorbEvaluations:           {AbsorbOpeningProof},
	AbsorbOpeningProof:         {Accept},
}

// T wraps a gnark-crypto fiat-shamir transcript with the §4.11 state
// machine layered on top.
type T struct {
	inner *fiatshamir.Transcript
	state State
	// nRounds bounds how many AbsorbSumcheckRound self-loops are valid;
	// set once at SqueezeSumcheckChallenges time.
	nRounds, roundsDone int
}

// New starts a transcript in Init state, binding a domain-separation
// label (distinguishing this protocol/version from any other use of the
// same hash).
func New(label string) *T {
	inner := fiatshamir.NewTranscript(sha256.New(), "c")
	_ = inner.Bind("c", []byte(label))
	return &T{inner: inner, state: Init}
}

func (t *T) advance(from State, allowSelf bool) {
	next, ok := allowedNext[t.state]
	if !ok {
		qerror.Panic("transcript: state %s has no declared transitions", t.state)
	}
	valid := false
	for _, n := range next {
		if n == from || (allowSelf && n == t.state) {
			valid = true
			break
		}
	}
	if !valid {
		panic(&invalidTransition{from: t.state, to: from})
	}
	t.state = from
}

type invalidTransition struct{ from, to State }

func (e *invalidTransition) Error() string {
	return fmt.Sprintf("invalid transcript transition %s -> %s", e.from, e.to)
}

// checkTransition converts an invalid-transition panic raised by advance
// into a returned ProofError, since transcript misuse driven by untrusted
// proof bytes must never panic through to a verifier caller.
func checkTransition(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if it, ok := r.(*invalidTransition); ok {
				err = qerror.NewProofError(qerror.KindInvalidTranscript, it.Error(), nil)
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// AbsorbPlanBytes binds the serialized plan (both parties must agree on
// what is being proved before any randomness is drawn).
func (t *T) AbsorbPlanBytes(b []byte) error {
	return checkTransition(func() {
		t.advance(AbsorbPlan, false)
		_ = t.inner.Bind("c", b)
	})
}

// AbsorbFirstRoundCommitments binds first-round commitments (e.g. to the
// result table / any first-round witness commitments).
func (t *T) AbsorbFirstRoundCommitments(points [][]byte) error {
	return checkTransition(func() {
		t.advance(AbsorbFirstRoundCommits, false)
		for _, p := range points {
			_ = t.inner.Bind("c", p)
		}
	})
}

// SqueezePostResultChallenges draws the proof-wide membership-gadget
// challenges α, β (§4.10) plus k further challenges, delivered in FIFO
// request order (§5 "Post-result challenges are sampled exactly once...
// delivered to the plan in FIFO order matching the request order"). α, β
// lead every draw (rather than being folded into k's generic pool)
// because every Filter/GroupBy/MembershipCheck node in a plan shares the
// same pair whether or not it participates, while k is the sum of each
// node's own RequestPostResultChallenges count; both need to exist
// before the final round builds any witness, hence before
// AbsorbIntermediateCommits, matching §4.11's literal ordering.
func (t *T) SqueezePostResultChallenges(k int) (alpha, beta scalar.Element, rest []scalar.Element, err error) {
	err = checkTransition(func() {
		t.advance(SqueezePostResultChallenges, false)
		drawn := t.squeezeN(2 + k)
		alpha, beta = drawn[0], drawn[1]
		rest = drawn[2:]
	})
	return
}

// AbsorbIntermediateCommitments binds final-round intermediate MLE
// commitments, in the order produced (§5 "preserve this order when
// parallelizing").
func (t *T) AbsorbIntermediateCommitments(points [][]byte) error {
	return checkTransition(func() {
		t.advance(AbsorbIntermediateCommits, false)
		for _, p := range points {
			_ = t.inner.Bind("c", p)
		}
	})
}

// SqueezeSumcheckChallenges declares how many sumcheck rounds (ν) will
// follow and draws two things the combined polynomial needs before round
// 0 can be built: tau, the ν-coordinate point at which the equality
// polynomial eq(x,τ) reduces every Identity subpolynomial's "vanishes on
// the whole hypercube" claim to a single sumcheck (§4.7); and outer, one
// random linear-combination coefficient per subpolynomial the (now
// complete) final round contributed, batching every Identity/ZeroSum
// term into the one polynomial P(x) = Σ_t r_t·S_t(x) that the rounds
// actually sum over. Both must be fixed before ProveRound/CheckRound can
// run, since round j's message is an evaluation of this same P.
func (t *T) SqueezeSumcheckChallenges(nu int, nOuter int) (tau []scalar.Element, outer []scalar.Element, err error) {
	err = checkTransition(func() {
		t.advance(SqueezeSumcheckChallenges, false)
		t.nRounds = nu
		t.roundsDone = 0
		drawn := t.squeezeN(nu + nOuter)
		tau = drawn[:nu]
		outer = drawn[nu:]
	})
	return
}

// AbsorbSumcheckRound binds round j's univariate polynomial (evaluations
// at 0..d) and draws the verifier's r_j challenge for that round.
func (t *T) AbsorbSumcheckRound(evalsAt0ToD [][]byte) (scalar.Element, error) {
	var r scalar.Element
	err := checkTransition(func() {
		t.advance(AbsorbSumcheckRound, true)
		if t.roundsDone >= t.nRounds {
			panic(&invalidTransition{from: t.state, to: SqueezeOuterChallenge})
		}
		for _, e := range evalsAt0ToD {
			_ = t.inner.Bind("c", e)
		}
		r = t.squeezeN(1)[0]
		t.roundsDone++
	})
	return r, err
}

// SqueezeOuterChallenge draws one challenge, once all ν rounds are
// absorbed and every claimed evaluation at r is therefore fixed. Prove
// and Verify draw it to keep their transcripts in step but do not use
// it: each evaluation claim at r is opened with its own proof.
func (t *T) SqueezeOuterChallenge() (scalar.Element, error) {
	if t.roundsDone != t.nRounds {
		return scalar.Zero, qerror.NewProofError(qerror.KindInvalidTranscript,
			fmt.Sprintf("squeezed outer challenge after only %d/%d sumcheck rounds", t.roundsDone, t.nRounds), nil)
	}
	var r scalar.Element
	err := checkTransition(func() {
		t.advance(SqueezeOuterChallenge, false)
		r = t.squeezeN(1)[0]
	})
	return r, err
}

// AbsorbEvaluations binds the claimed MLE evaluations at the sumcheck
// point r.
func (t *T) AbsorbEvaluations(evals [][]byte) error {
	return checkTransition(func() {
		t.advance(AbsorbEvaluations, false)
		for _, e := range evals {
			_ = t.inner.Bind("c", e)
		}
	})
}

// AbsorbOpeningProof binds the MLE opening-proof bytes and moves to
// Accept.
func (t *T) AbsorbOpeningProof(proof []byte) error {
	return checkTransition(func() {
		t.advance(AbsorbOpeningProof, false)
		_ = t.inner.Bind("c", proof)
		t.state = Accept
	})
}

// State reports the current transcript state.
func (t *T) State() State { return t.state }

// squeezeN draws n field-element challenges, re-binding a round counter
// label so the underlying transcript's ComputeChallenge calls remain
// distinguishable.
func (t *T) squeezeN(n int) []scalar.Element {
	out := make([]scalar.Element, n)
	for i := 0; i < n; i++ {
		b, err := t.inner.ComputeChallenge("c")
		if err != nil {
			qerror.Panic("transcript: compute challenge: %v", err)
		}
		var e scalar.Element
		e.SetBytes(b)
		out[i] = e
		_ = t.inner.Bind("c", b)
	}
	return out
}
