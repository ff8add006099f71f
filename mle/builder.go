package mle

import (
	"github.com/ronanh/intcomp"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/scalar"
)

// ConstraintKind distinguishes the two subpolynomial obligations from
// §4.7: Identity must vanish on the whole hypercube, ZeroSum must sum to
// zero over it.
type ConstraintKind int

const (
	Identity ConstraintKind = iota
	ZeroSum
)

// Term is one multiplicand in a sparse product Π term_{i,j}: a reference
// to an arena-held witness vector, optionally negated.
type Term struct {
	Vec    Ref
	Negate bool
}

// Product is one additive term cᵢ·Π term_{i,j} of a subpolynomial.
type Product struct {
	Coeff scalar.Element
	Terms []Term
}

// Subpolynomial is one constraint contributed by a plan node: a sparse
// product-sum Σᵢ cᵢ·Π term_{i,j}, tagged Identity or ZeroSum.
type Subpolynomial struct {
	Kind     ConstraintKind
	Products []Product
}

// FirstRoundBuilder collects what the first prover pass produces: the
// result table's per-referenced-table row counts (one-evaluation
// lengths), and the count of post-result challenges the plan will need
// (§4.7).
type FirstRoundBuilder struct {
	OneEvalLengths        []int
	PostResultChallengeReq int
	FirstRoundCommits     [][]byte
	// ClaimedCardinalities records, in traversal order, every plan node's
	// own data-dependent output row count (Filter's kept-row count,
	// GroupBy's group count) that a verifier cannot otherwise derive from
	// committed data alone — sent alongside the proof so a verifier-side
	// replay can reconstruct the identical witness shapes without seeing
	// real row data (§4.7's one-evaluation lengths, restricted to the
	// subset genuinely data-dependent at that node).
	ClaimedCardinalities []int
}

// NewFirstRoundBuilder returns an empty builder.
func NewFirstRoundBuilder() *FirstRoundBuilder { return &FirstRoundBuilder{} }

// RequestOneEvalLength records a referenced table's row count.
func (b *FirstRoundBuilder) RequestOneEvalLength(n int) {
	b.OneEvalLengths = append(b.OneEvalLengths, n)
}

// RequestPostResultChallenges increments the count of challenges this
// plan node will consume once the result is committed.
func (b *FirstRoundBuilder) RequestPostResultChallenges(k int) {
	b.PostResultChallengeReq += k
}

// RecordClaimedCardinality appends a data-dependent output row count to
// ClaimedCardinalities, in the order the first-round traversal produces
// it — the same order a verifier-side structural replay will ask for
// them back.
func (b *FirstRoundBuilder) RecordClaimedCardinality(n int) {
	b.ClaimedCardinalities = append(b.ClaimedCardinalities, n)
}

// CommitFirstRound records a first-round commitment (e.g. to the result
// table) that must be bound into the transcript before challenges are
// drawn.
func (b *FirstRoundBuilder) CommitFirstRound(commitmentBytes []byte) {
	b.FirstRoundCommits = append(b.FirstRoundCommits, commitmentBytes)
}

// CompressedOneEvalLengths returns the one-evaluation-length vector
// compressed with intcomp, since these lengths are typically small and
// highly repetitive across a plan's table references (§4.4 note on
// ronanh/intcomp usage).
func (b *FirstRoundBuilder) CompressedOneEvalLengths() []uint32 {
	u32 := make([]uint32, len(b.OneEvalLengths))
	for i, n := range b.OneEvalLengths {
		u32[i] = uint32(n)
	}
	return intcomp.CompressUint32(u32, nil)
}

// DecompressOneEvalLengths reverses CompressedOneEvalLengths, given how
// many original entries to expect.
func DecompressOneEvalLengths(compressed []uint32, n int) []int {
	u32 := intcomp.UncompressUint32(compressed, make([]uint32, 0, n))
	out := make([]int, len(u32))
	for i, v := range u32 {
		out[i] = int(v)
	}
	return out
}

// FinalRoundBuilder collects what the second prover pass produces:
// intermediate MLE vectors (each committed and folded into the
// transcript), subpolynomial constraints, and how many post-result
// challenges were actually consumed (§4.7).
type FinalRoundBuilder struct {
	Arena                  *Arena
	Subpolynomials         []Subpolynomial
	IntermediateCommits    [][]byte
	PostResultChallengesUsed int
	postResultChallenges   []scalar.Element
	nextChallenge          int

	// BaseColumnBindings records, in allocation order, every arena ref a
	// base table scan bound verbatim to an already-existing table
	// commitment rather than to a freshly computed, self-reported one
	// (plan.firstRoundTableScan). prove.Prove/verify.Verify use this list
	// to additionally open each such ref against the real
	// commitment.Table the database published, so a base-table leaf
	// witness can never be swapped for unrelated data.
	BaseColumnBindings []BaseColumnBinding
}

// BaseColumnBinding names one arena ref bound to a real, pre-existing
// base-table column commitment.
type BaseColumnBinding struct {
	Ref     Ref
	Table   ast.TableRef
	Column  ast.Ident
	NumRows int
}

// BindBaseColumn records a base-table binding alongside the usual
// intermediate allocation.
func (b *FinalRoundBuilder) BindBaseColumn(table ast.TableRef, column ast.Ident, ref Ref, numRows int) {
	b.BaseColumnBindings = append(b.BaseColumnBindings, BaseColumnBinding{
		Ref: ref, Table: table, Column: column, NumRows: numRows,
	})
}

// NewFinalRoundBuilder returns a builder backed by arena and seeded with
// the post-result challenges the transcript already squeezed, delivered
// in FIFO order (§5).
func NewFinalRoundBuilder(arena *Arena, postResultChallenges []scalar.Element) *FinalRoundBuilder {
	return &FinalRoundBuilder{Arena: arena, postResultChallenges: postResultChallenges}
}

// NextPostResultChallenge returns the next queued post-result challenge
// in request order.
func (b *FinalRoundBuilder) NextPostResultChallenge() scalar.Element {
	c := b.postResultChallenges[b.nextChallenge]
	b.nextChallenge++
	b.PostResultChallengesUsed++
	return c
}

// ProduceIntermediate allocates a new witness vector in the arena,
// commits to it (the commitBytes the caller already computed via the
// commitment package), and returns a Ref for later subpolynomial terms
// to point at.
func (b *FinalRoundBuilder) ProduceIntermediate(v []scalar.Element, commitBytes []byte) Ref {
	b.IntermediateCommits = append(b.IntermediateCommits, commitBytes)
	return b.Arena.Alloc(v)
}

// AddSubpolynomial records a constraint.
func (b *FinalRoundBuilder) AddSubpolynomial(s Subpolynomial) {
	b.Subpolynomials = append(b.Subpolynomials, s)
}
