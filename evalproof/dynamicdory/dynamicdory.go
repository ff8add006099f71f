// Package dynamicdory is evalproof/dory with one difference: its
// generator table grows on demand instead of being fixed at Setup time.
// Because curve.NewGenerators derives generator i deterministically from
// i alone (never from the requested table length), asking for a larger
// table reuses every previously derived generator unchanged at the same
// index — committing at a smaller length and later opening at a larger
// one never invalidates an earlier commitment, matching spec.md's
// "dynamic-Dory... commitment length is not fixed in advance" framing.
package dynamicdory

import (
	"sync"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/dory"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/scalar"
)

// Table lazily derandomizes G1 generators, growing the backing slice as
// larger indices are requested.
type Table struct {
	mu   sync.Mutex
	g    []bls12377.G1Affine
	q    bls12377.G1Affine
	g2   bls12377.G2Affine
	qSet bool
}

// NewTable starts an empty, lazily-grown generator table.
func NewTable() *Table {
	return &Table{}
}

// Ensure grows the table (if needed) so indices 0..n-1 are populated,
// and returns a dory.Params snapshot usable for vectors up to length n.
func (t *Table) Ensure(n int) dory.Params {
	n = 1 << mle.NumVars(n)
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.g) < n {
		t.g = curve.NewGenerators("veriql/evalproof/dynamicdory/gens", n).G
	}
	if !t.qSet {
		t.q = curve.NewGenerators("veriql/evalproof/dynamicdory/q", 1).G[0]
		_, _, _, t.g2 = bls12377.Generators()
		t.qSet = true
	}
	return dory.Params{
		Gens: curve.Generators{G: append([]bls12377.G1Affine(nil), t.g[:n]...)},
		Q:    t.q,
		G2:   t.g2,
	}
}

// Params pairs a shared, growable Table with the length it was last
// sized for — what Setup returns and what flows through evalproof.Params.
type Params struct {
	Table *Table
	N     int
}

// Setup starts a new lazily-grown table sized for at least maxLen.
func Setup(maxLen int) Params {
	t := NewTable()
	t.Ensure(maxLen)
	return Params{Table: t, N: maxLen}
}

// Commit delegates to dory.Commit against the table grown to cover vec.
func Commit(p Params, vec []scalar.Element) evalproof.Commitment {
	params := p.Table.Ensure(len(vec))
	c := dory.Commit(params, vec)
	return evalproof.Commitment{Backend: evalproof.DynamicDory, Bytes: c.Bytes}
}

// Prove delegates to dory.Prove against the table grown to cover vec.
func Prove(p Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (evalproof.Proof, error) {
	params := p.Table.Ensure(len(vec))
	proof, err := dory.Prove(params, vec, point, claimed)
	if err != nil {
		return evalproof.Proof{}, err
	}
	return evalproof.Proof{Backend: evalproof.DynamicDory, Bytes: proof.Bytes}, nil
}

// Verify delegates to dory.Verify against the table grown to cover the
// claimed evaluation point's dimension.
func Verify(p Params, commitment evalproof.Commitment, point []scalar.Element, claimed scalar.Element, proof evalproof.Proof) error {
	n := 1 << len(point)
	params := p.Table.Ensure(n)
	return dory.Verify(params, evalproof.Commitment{Backend: evalproof.Dory, Bytes: commitment.Bytes}, point, claimed,
		evalproof.Proof{Backend: evalproof.Dory, Bytes: proof.Bytes})
}

// Scheme adapts the free functions above to evalproof.Scheme.
type Scheme struct{}

func (Scheme) Setup(maxLen int) evalproof.Params {
	return evalproof.Params{Backend: evalproof.DynamicDory, Inner: Setup(maxLen)}
}

func (Scheme) Commit(params evalproof.Params, vec []scalar.Element) evalproof.Commitment {
	return Commit(params.Inner.(Params), vec)
}

func (Scheme) Prove(params evalproof.Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (evalproof.Proof, error) {
	return Prove(params.Inner.(Params), vec, point, claimed)
}

func (Scheme) Verify(params evalproof.Params, commitment evalproof.Commitment, point []scalar.Element, claimed scalar.Element, proof evalproof.Proof) error {
	return Verify(params.Inner.(Params), commitment, point, claimed, proof)
}
