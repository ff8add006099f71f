// Package dory implements evalproof.Scheme with the same recursive
// folding core as evalproof/innerproduct (derandomized generators, log2(N)
// rounds of L/R commitments), but closes the final round with a pairing
// equality check against a fixed G2 generator instead of a direct G1
// point comparison — the hallmark this backend is meant to exercise is
// gnark-crypto's pairing API (bls12377.Pair/GT), the same API the
// teacher's PLONK verifier relies on transitively through KZG.Verify.
package dory

import (
	"crypto/sha256"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"github.com/fxamacker/cbor/v2"

	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// Params holds the G1 generator table, the cross-term generator Q, and a
// fixed G2 generator the final check pairs against.
type Params struct {
	Gens curve.Generators
	Q    bls12377.G1Affine
	G2   bls12377.G2Affine
}

// Setup derandomizes maxLen (rounded to a power of two) G1 generators,
// the Q cross-term generator, and reuses the curve's standard G2
// generator for the final pairing check.
func Setup(maxLen int) Params {
	n := 1 << mle.NumVars(maxLen)
	gens := curve.NewGenerators("veriql/evalproof/dory/gens", n)
	q := curve.NewGenerators("veriql/evalproof/dory/q", 1).G[0]
	_, _, _, g2 := bls12377.Generators()
	return Params{Gens: gens, Q: q, G2: g2}
}

type wireProof struct {
	Ls, Rs [][]byte
	Final  []byte
}

func newSubTranscript(commitment []byte, point []scalar.Element, claimed scalar.Element) *fiatshamir.Transcript {
	tr := fiatshamir.NewTranscript(sha256.New(), "d")
	_ = tr.Bind("d", commitment)
	for _, p := range point {
		b := p.Bytes()
		_ = tr.Bind("d", b[:])
	}
	cb := claimed.Bytes()
	_ = tr.Bind("d", cb[:])
	return tr
}

func roundChallenge(tr *fiatshamir.Transcript, l, r []byte) scalar.Element {
	_ = tr.Bind("d", l)
	_ = tr.Bind("d", r)
	c, err := tr.ComputeChallenge("d")
	if err != nil {
		qerror.Panic("dory: compute challenge: %v", err)
	}
	var e scalar.Element
	e.SetBytes(c)
	_ = tr.Bind("d", c)
	return e
}

func evalBasis(point []scalar.Element) []scalar.Element {
	nu := len(point)
	n := 1 << nu
	out := make([]scalar.Element, n)
	for i := 0; i < n; i++ {
		bits := make([]int, nu)
		for j := 0; j < nu; j++ {
			bits[j] = (i >> j) & 1
		}
		out[i] = mle.EqPoly(bits, point)
	}
	return out
}

func innerProd(a, b []scalar.Element) scalar.Element {
	acc := scalar.Zero
	for i := range a {
		acc = scalar.Add(acc, scalar.Mul(a[i], b[i]))
	}
	return acc
}

func foldScalars(l, r []scalar.Element, cl, cr scalar.Element) []scalar.Element {
	out := make([]scalar.Element, len(l))
	for i := range l {
		out[i] = scalar.Add(scalar.Mul(l[i], cl), scalar.Mul(r[i], cr))
	}
	return out
}

func foldPoints(l, r []bls12377.G1Affine, cl, cr scalar.Element) []bls12377.G1Affine {
	out := make([]bls12377.G1Affine, len(l))
	for i := range l {
		p := curve.Add(curve.ScalarMul(curve.FromAffine(l[i]), cl), curve.ScalarMul(curve.FromAffine(r[i]), cr))
		out[i] = p.ToAffine()
	}
	return out
}

// Commit returns MSM(gens, vec), unblinded (§4.4).
func Commit(p Params, vec []scalar.Element) evalproof.Commitment {
	padded := mle.PadToPow2(vec)
	pt := curve.MSM(p.Gens.G[:len(padded)], padded)
	return evalproof.Commitment{Backend: evalproof.Dory, Bytes: pt.Bytes()}
}

// Prove folds the committed vector against the public evaluation-point
// basis vector exactly like evalproof/innerproduct.
func Prove(p Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (evalproof.Proof, error) {
	a := mle.PadToPow2(vec)
	b := evalBasis(point)
	if len(a) != len(b) {
		return evalproof.Proof{}, qerror.NewProofError(qerror.KindInvalidPlan, "dory: vector/point length mismatch", nil)
	}
	g := append([]bls12377.G1Affine(nil), p.Gens.G[:len(a)]...)

	commitment := Commit(p, vec)
	tr := newSubTranscript(commitment.Bytes, point, claimed)
	qPt := curve.FromAffine(p.Q)

	var wp wireProof
	for len(a) > 1 {
		half := len(a) / 2
		aL, aR := a[:half], a[half:]
		bL, bR := b[:half], b[half:]
		gL, gR := g[:half], g[half:]

		cL := innerProd(aL, bR)
		cR := innerProd(aR, bL)
		L := curve.Add(curve.MSM(gR, aL), curve.ScalarMul(qPt, cL))
		R := curve.Add(curve.MSM(gL, aR), curve.ScalarMul(qPt, cR))
		lBytes, rBytes := L.Bytes(), R.Bytes()

		x := roundChallenge(tr, lBytes, rBytes)
		xInv := scalar.Inverse(x)

		a = foldScalars(aL, aR, x, xInv)
		b = foldScalars(bL, bR, xInv, x)
		g = foldPoints(gL, gR, xInv, x)

		wp.Ls = append(wp.Ls, lBytes)
		wp.Rs = append(wp.Rs, rBytes)
	}
	finalBytes := a[0].Bytes()
	wp.Final = finalBytes[:]

	enc, err := cbor.Marshal(wp)
	if err != nil {
		return evalproof.Proof{}, qerror.NewProofError(qerror.KindInternalError, "dory: encode proof", err)
	}
	return evalproof.Proof{Backend: evalproof.Dory, Bytes: enc}, nil
}

// pairingEqual reports whether e(lhs-rhs, g2) == 1, i.e. lhs == rhs,
// checked through a pairing rather than an affine comparison.
func pairingEqual(lhs, rhs curve.Point, g2 bls12377.G2Affine) (bool, error) {
	diff := curve.Sub(lhs, rhs)
	diffAff := diff.ToAffine()
	gt, err := bls12377.Pair([]bls12377.G1Affine{diffAff}, []bls12377.G2Affine{g2})
	if err != nil {
		return false, err
	}
	var one bls12377.GT
	one.SetOne()
	return gt.Equal(&one), nil
}

// Verify folds the public basis vector and generator table like
// evalproof/innerproduct, then closes with a pairing equality check.
func Verify(p Params, commitment evalproof.Commitment, point []scalar.Element, claimed scalar.Element, proof evalproof.Proof) error {
	var wp wireProof
	if err := cbor.Unmarshal(proof.Bytes, &wp); err != nil {
		return qerror.NewProofError(qerror.KindOpeningFailed, "dory: decode proof", err)
	}
	b := evalBasis(point)
	n := len(b)
	if len(wp.Ls) != mle.NumVars(n) || len(wp.Rs) != len(wp.Ls) {
		return qerror.NewProofError(qerror.KindOpeningFailed, "dory: round count mismatch", nil)
	}
	g := append([]bls12377.G1Affine(nil), p.Gens.G[:n]...)

	tr := newSubTranscript(commitment.Bytes, point, claimed)
	qPt := curve.FromAffine(p.Q)

	cPt, err := curve.FromBytes(commitment.Bytes)
	if err != nil {
		return qerror.NewProofError(qerror.KindOpeningFailed, "dory: decode commitment", err)
	}
	acc := curve.Add(cPt, curve.ScalarMul(qPt, claimed))

	for i := range wp.Ls {
		lPt, err := curve.FromBytes(wp.Ls[i])
		if err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "dory: decode L", err)
		}
		rPt, err := curve.FromBytes(wp.Rs[i])
		if err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "dory: decode R", err)
		}
		x := roundChallenge(tr, wp.Ls[i], wp.Rs[i])
		xInv := scalar.Inverse(x)
		x2 := scalar.Mul(x, x)
		xInv2 := scalar.Mul(xInv, xInv)
		acc = curve.Add(acc, curve.Add(curve.ScalarMul(lPt, x2), curve.ScalarMul(rPt, xInv2)))

		half := len(b) / 2
		bL, bR := b[:half], b[half:]
		b = foldScalars(bL, bR, xInv, x)
		gL, gR := g[:half], g[half:]
		g = foldPoints(gL, gR, xInv, x)
	}

	var finalA scalar.Element
	finalA.SetBytes(wp.Final)
	gFinal := curve.FromAffine(g[0])
	rhs := curve.ScalarMul(curve.Add(gFinal, curve.ScalarMul(qPt, b[0])), finalA)

	ok, err := pairingEqual(acc, rhs, p.G2)
	if err != nil {
		return qerror.NewProofError(qerror.KindInternalError, "dory: pairing check", err)
	}
	if !ok {
		return qerror.NewProofError(qerror.KindEvaluationDisagreement, "dory: final pairing check failed", nil)
	}
	return nil
}

// Scheme adapts the free functions above to evalproof.Scheme.
type Scheme struct{}

func (Scheme) Setup(maxLen int) evalproof.Params {
	return evalproof.Params{Backend: evalproof.Dory, Inner: Setup(maxLen)}
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
