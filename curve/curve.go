// Package curve instantiates the commitment group C from spec.md's
// trait-level dependency as BLS12-377's G1 group: additively homomorphic
// points, used both directly (Pedersen-style commitments, §4.4) and as
// the base of the pairing-based evaluation-proof schemes in evalproof
// (Dory, dynamic-Dory, HyperKZG all pair G1 against G2).
package curve

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/opaquelabs/veriql/scalar"
)

// Point is a commitment-group element. Jacobian coordinates are used
// internally so repeated Add calls during multi-sub-commitment folding
// (§4.4) avoid the per-op inversion an affine add would cost.
type Point struct {
	inner bls12377.G1Jac
}

// Identity is the group's neutral element.
var Identity = Point{}

// Add returns a+b in C.
func Add(a, b Point) Point {
	var r Point
	r.inner.Set(&a.inner)
	r.inner.AddAssign(&b.inner)
	return r
}

// Sub returns a-b in C.
func Sub(a, b Point) Point {
	var negB bls12377.G1Jac
	negB.Set(&b.inner).Neg(&negB)
	var r Point
	r.inner.Set(&a.inner)
	r.inner.AddAssign(&negB)
	return r
}

// ScalarMul returns k*p.
func ScalarMul(p Point, k scalar.Element) Point {
	kb := k.Raw()
	var bigK big.Int
	kb.BigInt(&bigK)
	var r Point
	r.inner.ScalarMultiplication(&p.inner, &bigK)
	return r
}

// Equal reports group-element equality.
func (a Point) Equal(b Point) bool {
	var aAff, bAff bls12377.G1Affine
	aAff.FromJacobian(&a.inner)
	bAff.FromJacobian(&b.inner)
	return aAff.Equal(&bAff)
}

// Bytes returns the compressed affine encoding, used for wire
// serialization and for binding commitments into the Fiat-Shamir
// transcript.
func (a Point) Bytes() []byte {
	var aff bls12377.G1Affine
	aff.FromJacobian(&a.inner)
	b := aff.Bytes()
	return b[:]
}

// FromAffine wraps a precomputed affine generator.
func FromAffine(p bls12377.G1Affine) Point {
	var r Point
	r.inner.FromAffine(&p)
	return r
}

// ToAffine returns a's affine form, for callers (evalproof's
// generator-folding backends) that need to rebuild a generator table
// from folded points.
func (a Point) ToAffine() bls12377.G1Affine {
	var aff bls12377.G1Affine
	aff.FromJacobian(&a.inner)
	return aff
}

// FromBytes decodes the compressed affine encoding Bytes produces.
func FromBytes(b []byte) (Point, error) {
	var aff bls12377.G1Affine
	if _, err := aff.SetBytes(b); err != nil {
		return Point{}, fmt.Errorf("curve: decode point: %w", err)
	}
	return FromAffine(aff), nil
}
