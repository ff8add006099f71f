// Package prove implements the prover side of the protocol (§4.7, §4.12):
// run a plan's two-phase evaluation over real data, fold the resulting
// subpolynomials through a sumcheck, and open every witness the sumcheck
// touched at the challenge point it lands on.
package prove

import (
	"context"

	"github.com/fxamacker/cbor/v2"

	"github.com/opaquelabs/veriql/accessor"
	"github.com/opaquelabs/veriql/commitment"
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/innerproduct"
	"github.com/opaquelabs/veriql/internal/logger"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/plan"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
	"github.com/opaquelabs/veriql/sumcheck"
	"github.com/opaquelabs/veriql/transcript"
)

// Proof is everything beyond the public result table a verifier needs to
// check it against a committed database (§4.11's transcript record, minus
// the one-evaluation lengths and post-result challenge counts — both are
// re-derived by the verifier's own structural replay of the public plan,
// never transmitted).
type Proof struct {
	// ClaimedCardinalities carries each Filter/GroupBy node's genuinely
	// data-dependent output row count, in traversal order (§4.7's
	// one-evaluation lengths, restricted to the subset a verifier cannot
	// derive from committed data alone).
	ClaimedCardinalities []int

	// FirstRoundCommits commits the public result table's own columns, in
	// column order — binding the returned answer to an openable
	// commitment independent of whatever the arena separately witnesses.
	FirstRoundCommits []evalproof.Commitment

	// IntermediateCommits commits every witness vector the final round
	// allocated into the arena, in allocation order.
	IntermediateCommits []evalproof.Commitment

	RoundMessages []sumcheck.RoundMessage

	// ResultEvaluations/ArenaEvaluations are the claimed MLE evaluations
	// at the sumcheck challenge point, parallel to FirstRoundCommits and
	// IntermediateCommits respectively.
	ResultEvaluations []scalar.Element
	ArenaEvaluations  []scalar.Element

	ResultOpenings []evalproof.Proof
	ArenaOpenings  []evalproof.Proof

	// BaseColumnOpenings proves, for every mle.FinalRoundBuilder
	// BaseColumnBinding a table scan produced, that the bound arena ref's
	// already-verified evaluation at the sumcheck challenge point also
	// equals the real, independently-committed commitment.Column's MLE at
	// that same point — the Schwartz-Zippel tie that rules out a base-table
	// leaf witness fabricated independent of the database's published
	// commitments (§4.10, reviewer-requested "opening tied to the same
	// point" fix). Parallel to finalB.BaseColumnBindings in allocation
	// order; always built with the dedicated InnerProduct instance
	// commitment.ColumnCommitmentGenerators/ColumnCommitmentQ expose,
	// independent of whichever evalproof.Scheme the rest of the proof uses.
	BaseColumnOpenings []evalproof.Proof
}

// Result bundles a query's public answer with the proof a Verify caller
// checks it against.
type Result struct {
	Table plan.ScalarTable
	Proof Proof
}

// Prove constructs a verifiable proof that node, evaluated over acc,
// produces Result.Table. Any internal invariant violation (a qerror.Bug
// raised via qerror.Panic anywhere in plan/mle/membership/sumcheck) is
// recovered here and returned as a KindInternalError ProofError rather
// than propagated as a raw panic — this package's only recover point.
func Prove(node plan.Node, acc accessor.DataAccessor, commitments accessor.CommitmentAccessor, scheme evalproof.Scheme, params evalproof.Params) (res Result, err error) {
	defer qerror.RecoverAsProofError(&err)

	log := logger.Logger()
	t := transcript.New("veriql-query-proof-v1")

	planBytes, encErr := cbor.Marshal(node)
	if encErr != nil {
		return Result{}, qerror.NewQueryError(qerror.KindInvalidPlan, "encoding plan for transcript binding", encErr)
	}
	if err := t.AbsorbPlanBytes(planBytes); err != nil {
		return Result{}, err
	}

	var intermediateCommits []evalproof.Commitment
	commitFn := func(vec []scalar.Element) []byte {
		c := scheme.Commit(params, vec)
		intermediateCommits = append(intermediateCommits, c)
		return c.Bytes
	}

	fb := mle.NewFirstRoundBuilder()
	table, finalFn, err := plan.ProveFirstRound(node, acc, commitments, fb, commitFn)
	if err != nil {
		return Result{}, err
	}
	log.Debug().Int("rows", table.NumRows).Int("cols", len(table.Idents)).Msg("first round complete")

	resultVecs := table.ScalarColumns()
	firstRoundCommits := make([]evalproof.Commitment, len(resultVecs))
	firstRoundBytes := make([][]byte, len(resultVecs))
	for i, v := range resultVecs {
		c := scheme.Commit(params, v)
		firstRoundCommits[i] = c
		firstRoundBytes[i] = c.Bytes
	}
	if err := t.AbsorbFirstRoundCommitments(append(append([][]byte{}, fb.FirstRoundCommits...), firstRoundBytes...)); err != nil {
		return Result{}, err
	}

	alpha, beta, rest, err := t.SqueezePostResultChallenges(fb.PostResultChallengeReq)
	if err != nil {
		return Result{}, err
	}

	arena := mle.NewArena(64)
	finalB := mle.NewFinalRoundBuilder(arena, rest)
	if finalFn != nil {
		if err := finalFn(finalB, alpha, beta); err != nil {
			return Result{}, err
		}
	}
	if err := t.AbsorbIntermediateCommitments(finalB.IntermediateCommits); err != nil {
		return Result{}, err
	}
	log.Debug().Int("arena_len", arena.Len()).Int("subpolys", len(finalB.Subpolynomials)).Msg("final round complete")

	maxLen := 1
	for i := 0; i < arena.Len(); i++ {
		if l := len(arena.Get(mle.Ref(i))); l > maxLen {
			maxLen = l
		}
	}
	for _, v := range resultVecs {
		if len(v) > maxLen {
			maxLen = len(v)
		}
	}
	nu := mle.NumVars(maxLen)
	nOuter := len(finalB.Subpolynomials)

	tau, outer, err := t.SqueezeSumcheckChallenges(nu, nOuter)
	if err != nil {
		return Result{}, err
	}
	eqVec := mle.EqVector(tau)
	n := 1 << nu

	driver := sumcheck.NewDriver(arena, finalB.Subpolynomials, outer, eqVec, n)
	roundMsgs := make([]sumcheck.RoundMessage, 0, nu)
	r := make([]scalar.Element, 0, nu)
	ctx := context.Background()
	for j := 0; j < nu; j++ {
		msg := driver.ProveRound()
		roundMsgs = append(roundMsgs, msg)
		rj, err := t.AbsorbSumcheckRound(encodeEvals(msg.Evals))
		if err != nil {
			return Result{}, err
		}
		driver.FoldRound(ctx, rj)
		r = append(r, rj)
	}

	if _, err := t.SqueezeOuterChallenge(); err != nil {
		return Result{}, err
	}

	arenaEvals := make([]scalar.Element, arena.Len())
	for i := 0; i < arena.Len(); i++ {
		arenaEvals[i] = mle.Evaluate(arena.Get(mle.Ref(i)), r)
	}
	resultEvals := make([]scalar.Element, len(resultVecs))
	for i, v := range resultVecs {
		resultEvals[i] = mle.Evaluate(v, r)
	}

	allEvalBytes := make([][]byte, 0, len(arenaEvals)+len(resultEvals))
	for _, e := range arenaEvals {
		allEvalBytes = append(allEvalBytes, encodeScalar(e))
	}
	for _, e := range resultEvals {
		allEvalBytes = append(allEvalBytes, encodeScalar(e))
	}
	if err := t.AbsorbEvaluations(allEvalBytes); err != nil {
		return Result{}, err
	}

	arenaOpenings := make([]evalproof.Proof, arena.Len())
	for i := 0; i < arena.Len(); i++ {
		p, err := scheme.Prove(params, arena.Get(mle.Ref(i)), r, arenaEvals[i])
		if err != nil {
			return Result{}, qerror.NewQueryError(qerror.KindInvalidPlan, "arena opening proof failed", err)
		}
		arenaOpenings[i] = p
	}
	resultOpenings := make([]evalproof.Proof, len(resultVecs))
	for i, v := range resultVecs {
		p, err := scheme.Prove(params, v, r, resultEvals[i])
		if err != nil {
			return Result{}, qerror.NewQueryError(qerror.KindInvalidPlan, "result opening proof failed", err)
		}
		resultOpenings[i] = p
	}

	baseColumnOpenings := make([]evalproof.Proof, len(finalB.BaseColumnBindings))
	for i, binding := range finalB.BaseColumnBindings {
		colParams := innerproduct.Params{
			Gens: commitment.ColumnCommitmentGenerators(binding.NumRows),
			Q:    commitment.ColumnCommitmentQ(),
		}
		p, err := innerproduct.Prove(colParams, arena.Get(binding.Ref), r, arenaEvals[binding.Ref])
		if err != nil {
			return Result{}, qerror.NewQueryError(qerror.KindInvalidPlan, "base column opening proof failed", err)
		}
		baseColumnOpenings[i] = p
	}

	openingBytes := make([][]byte, 0, len(arenaOpenings)+len(resultOpenings)+len(baseColumnOpenings))
	for _, p := range arenaOpenings {
		openingBytes = append(openingBytes, p.Bytes)
	}
	for _, p := range resultOpenings {
		openingBytes = append(openingBytes, p.Bytes)
	}
	for _, p := range baseColumnOpenings {
		openingBytes = append(openingBytes, p.Bytes)
	}
	if err := t.AbsorbOpeningProof(concatBytes(openingBytes)); err != nil {
		return Result{}, err
	}

	return Result{
		Table: table,
		Proof: Proof{
			ClaimedCardinalities: fb.ClaimedCardinalities,
			FirstRoundCommits:    firstRoundCommits,
			IntermediateCommits:  intermediateCommits,
			RoundMessages:        roundMsgs,
			ResultEvaluations:    resultEvals,
			ArenaEvaluations:     arenaEvals,
			ResultOpenings:       resultOpenings,
			ArenaOpenings:        arenaOpenings,
			BaseColumnOpenings:   baseColumnOpenings,
		},
	}, nil
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
