// Package mle implements multilinear-extension witness accumulation
// (§4.7, §9 Design Notes): an append-only arena of intermediate witness
// vectors referenced by index (never by pointer, so the accumulated
// constraint tree stays a DAG even when later subpolynomials reference
// earlier intermediates), plus the first-round and final-round builders
// that glue plan nodes to the sumcheck driver.
package mle

import "github.com/opaquelabs/veriql/scalar"

// Ref is an index into an Arena's witness vector, standing in for a
// pointer so the witness DAG never needs cycle-breaking logic.
type Ref int

// Arena is the per-proof append-only witness store (§5: "a per-proof
// mle.Arena freed by going out of scope at the end of
// prove.Prove/verify.Verify"). It is preallocated to a capacity hint to
// avoid reallocation churn during a round, mirroring the teacher's
// pre-sized make([]fr.Element, size) idiom in NewTrace.
type Arena struct {
	vectors [][]scalar.Element
}

// NewArena preallocates capacity slots.
func NewArena(capacity int) *Arena {
	return &Arena{vectors: make([][]scalar.Element, 0, capacity)}
}

// Alloc appends a new witness vector and returns its Ref.
func (a *Arena) Alloc(v []scalar.Element) Ref {
	a.vectors = append(a.vectors, v)
	return Ref(len(a.vectors) - 1)
}

// Get returns the witness vector for ref.
func (a *Arena) Get(ref Ref) []scalar.Element {
	return a.vectors[ref]
}

// Len returns the number of allocated witness vectors.
func (a *Arena) Len() int { return len(a.vectors) }
