// Package verify implements the verifier side of the protocol (§4.7,
// §4.12): replay a plan's structure against public commitments only,
// fold the reconstructed subpolynomials through the same sumcheck
// relation the prover used, and check every opened evaluation against
// the transmitted commitments — all without ever touching real row data.
package verify

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/innerproduct"
	"github.com/opaquelabs/veriql/internal/logger"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/plan"
	"github.com/opaquelabs/veriql/prove"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
	"github.com/opaquelabs/veriql/sumcheck"
	"github.com/opaquelabs/veriql/transcript"
)

// commitCursor replays a prover's transmitted commitments in allocation
// order, mirroring plan.ClaimCursor's trick but for commitment bytes
// rather than cardinalities: a verifier-side structural replay needs
// some []byte to hand to plan.CommitFunc at every witness allocation, and
// the only honest choice is the real commitment the prover already sent,
// never one computed from the replay's placeholder zero data.
type commitCursor struct {
	commits []evalproof.Commitment
	i       int
}

// next returns the next commitment's bytes, panicking (converted by the
// deferred recover in Verify into a KindInternalError ProofError that
// wraps this KindInvalidTranscript one) if
// the prover's list runs short — plan.CommitFunc's signature has no error
// return, so an exhausted cursor can only surface as a rejected proof via
// the same panic/recover path qerror.Panic already uses for invariant
// violations.
func (c *commitCursor) next() []byte {
	if c.i >= len(c.commits) {
		panic(qerror.NewProofError(qerror.KindInvalidTranscript,
			"intermediate commitment list exhausted during verifier replay", nil))
	}
	b := c.commits[c.i].Bytes
	c.i++
	return b
}

// Verify checks that table is node's true result over the data committed
// in commitments, given the proof a prove.Prove call produced. It never
// reads real row data: every witness shape comes from table's own public
// idents/row-count and proof's declared claimed cardinalities, replayed
// through plan.VerifierFirstRound against zero-filled placeholder
// columns sized from commitments alone.
func Verify(node plan.Node, table plan.ScalarTable, proof prove.Proof, commitments accessor.CommitmentAccessor, scheme evalproof.Scheme, params evalproof.Params) (err error) {
	defer qerror.RecoverAsProofError(&err)

	log := logger.Logger()
	t := transcript.New("veriql-query-proof-v1")

	planBytes, encErr := cbor.Marshal(node)
	if encErr != nil {
		return qerror.NewQueryError(qerror.KindInvalidPlan, "encoding plan for transcript binding", encErr)
	}
	if err := t.AbsorbPlanBytes(planBytes); err != nil {
		return err
	}

	cursor := &commitCursor{commits: proof.IntermediateCommits}
	acc := &plan.CommitmentPlaceholderAccessor{Commitments: commitments}
	claims := plan.NewClaimCursor(proof.ClaimedCardinalities)

	fb := mle.NewFirstRoundBuilder()
	placeholder, finalFn, err := plan.VerifierFirstRound(node, claims, acc, commitments, fb, func(_ []scalar.Element) []byte {
		return cursor.next()
	})
	if err != nil {
		return err
	}

	if placeholder.NumRows != table.NumRows || len(placeholder.Idents) != len(table.Idents) {
		return qerror.NewProofError(qerror.KindEvaluationDisagreement,
			"claimed result shape disagrees with the plan's replayed structure", nil)
	}
	nCols := len(table.Columns)
	if len(proof.FirstRoundCommits) != nCols || len(proof.ResultEvaluations) != nCols || len(proof.ResultOpenings) != nCols {
		return qerror.NewProofError(qerror.KindInvalidTranscript,
			"result commitment/evaluation/opening counts disagree with result column count", nil)
	}

	firstRoundBytes := make([][]byte, nCols)
	for i, c := range proof.FirstRoundCommits {
		firstRoundBytes[i] = c.Bytes
	}
	if err := t.AbsorbFirstRoundCommitments(append(append([][]byte{}, fb.FirstRoundCommits...), firstRoundBytes...)); err != nil {
		return err
	}

	alpha, beta, rest, err := t.SqueezePostResultChallenges(fb.PostResultChallengeReq)
	if err != nil {
		return err
	}

	arena := mle.NewArena(64)
	finalB := mle.NewFinalRoundBuilder(arena, rest)
	if finalFn != nil {
		if err := finalFn(finalB, alpha, beta); err != nil {
			return err
		}
	}
	if len(finalB.IntermediateCommits) != len(proof.IntermediateCommits) ||
		len(proof.ArenaEvaluations) != arena.Len() || len(proof.ArenaOpenings) != arena.Len() {
		return qerror.NewProofError(qerror.KindInvalidTranscript,
			"arena witness counts disagree between replay and transmitted proof", nil)
	}
	if len(proof.BaseColumnOpenings) != len(finalB.BaseColumnBindings) {
		return qerror.NewProofError(qerror.KindInvalidTranscript,
			"base column opening count disagrees with the plan's replayed table-scan bindings", nil)
	}
	if err := t.AbsorbIntermediateCommitments(finalB.IntermediateCommits); err != nil {
		return err
	}
	log.Debug().Int("arena_len", arena.Len()).Int("subpolys", len(finalB.Subpolynomials)).Msg("verifier replay complete")

	maxLen := 1
	for i := 0; i < arena.Len(); i++ {
		if l := len(arena.Get(mle.Ref(i))); l > maxLen {
			maxLen = l
		}
	}
	if table.NumRows > maxLen {
		maxLen = table.NumRows
	}
	nu := mle.NumVars(maxLen)
	nOuter := len(finalB.Subpolynomials)

	tau, outer, err := t.SqueezeSumcheckChallenges(nu, nOuter)
	if err != nil {
		return err
	}

	if len(proof.RoundMessages) != nu {
		return qerror.NewProofError(qerror.KindInvalidTranscript,
			"sumcheck round message count disagrees with the expected hypercube dimension", nil)
	}

	vs := sumcheck.NewVerifierState(scalar.Zero, nu)
	r := make([]scalar.Element, 0, nu)
	for j := 0; j < nu; j++ {
		msg := proof.RoundMessages[j]
		rj, err := t.AbsorbSumcheckRound(encodeEvals(msg.Evals))
		if err != nil {
			return err
		}
		if err := vs.CheckRound(msg, rj); err != nil {
			return err
		}
		r = append(r, rj)
	}

	if _, err := t.SqueezeOuterChallenge(); err != nil {
		return err
	}

	allEvalBytes := make([][]byte, 0, len(proof.ArenaEvaluations)+len(proof.ResultEvaluations))
	for _, e := range proof.ArenaEvaluations {
		allEvalBytes = append(allEvalBytes, encodeScalar(e))
	}
	for _, e := range proof.ResultEvaluations {
		allEvalBytes = append(allEvalBytes, encodeScalar(e))
	}
	if err := t.AbsorbEvaluations(allEvalBytes); err != nil {
		return err
	}

	eqAtR := mle.EqPolyAtPoint(r, tau)
	evalAt := func(ref mle.Ref) scalar.Element { return proof.ArenaEvaluations[ref] }
	combined := sumcheck.CombineOpenedEvaluations(finalB.Subpolynomials, outer, eqAtR, evalAt)
	if !combined.Equal(vs.FinalClaim()) {
		return qerror.NewProofError(qerror.KindEvaluationDisagreement,
			"combined subpolynomial evaluation disagrees with the sumcheck's final claim", nil)
	}

	openingBytes := make([][]byte, 0, len(proof.ArenaOpenings)+len(proof.ResultOpenings))
	for i := 0; i < arena.Len(); i++ {
		if err := scheme.Verify(params, proof.IntermediateCommits[i], r, proof.ArenaEvaluations[i], proof.ArenaOpenings[i]); err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed,
				"arena witness opening failed", err)
		}
		openingBytes = append(openingBytes, proof.ArenaOpenings[i].Bytes)
	}
	for i, c := range proof.FirstRoundCommits {
		if err := scheme.Verify(params, c, r, proof.ResultEvaluations[i], proof.ResultOpenings[i]); err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed,
				"result column opening failed", err)
		}
		openingBytes = append(openingBytes, proof.ResultOpenings[i].Bytes)
	}

	// Every base-table leaf a TableScan bound (plan.bindBaseColumns) gets a
	// second, independent opening here against the database's own published
	// column commitment, at the same point r and claiming the same
	// evaluation the arena opening above already checked — the only way the
	// two otherwise-unrelated commitments can agree (Schwartz-Zippel) is if
	// they commit the same underlying vector, closing the gap a
	// self-reported arena commitment alone would leave open.
	for i, binding := range finalB.BaseColumnBindings {
		tbl, err := commitments.TableCommitment(binding.Table)
		if err != nil {
			return err
		}
		col, ok := tbl.Columns[binding.Column]
		if !ok {
			return qerror.NewProofError(qerror.KindInvalidTranscript,
				"base column binding references a column absent from the table commitment", nil)
		}
		bound := commitment.BindRawColumnCommitment(col, binding.NumRows)
		colParams := innerproduct.Params{
			Gens: commitment.ColumnCommitmentGenerators(binding.NumRows),
			Q:    commitment.ColumnCommitmentQ(),
		}
		colCommitment := evalproof.Commitment{Backend: evalproof.InnerProduct, Bytes: bound.Bytes()}
		if err := innerproduct.Verify(colParams, colCommitment, r, proof.ArenaEvaluations[binding.Ref], proof.BaseColumnOpenings[i]); err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed,
				"base column opening failed", err)
		}
		openingBytes = append(openingBytes, proof.BaseColumnOpenings[i].Bytes)
	}

	if err := t.AbsorbOpeningProof(concatBytes(openingBytes)); err != nil {
		return err
	}

	return nil
}

func encodeEvals(evals []scalar.Element) [][]byte {
	out := make([][]byte, len(evals))
	for i, e := range evals {
		out[i] = encodeScalar(e)
	}
	return out
}

func encodeScalar(e scalar.Element) []byte {
	b := e.Bytes()
	return b[:]
}

func concatBytes(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
