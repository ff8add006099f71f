// Package innerproduct implements evalproof.Scheme as a transparent
// (no trusted setup) recursive inner-product argument: the committed
// vector's generators and the public evaluation-point basis vector are
// folded together, log2(N) rounds, until a single scalar remains. It is
// grounded on the same "commit, fold, recurse" shape the teacher's
// KZG-free commitment schemes never need (gnark's PLONK backend is
// always paired with a trusted-setup KZG SRS), so this backend instead
// follows the general recursive-argument structure visible in
// gnark-crypto's own fiat-shamir transcript compilation idiom (bind,
// derive challenge, bind again) reused directly here for its own
// independent sub-transcript.
package innerproduct

import (
	"crypto/sha256"

	"github.com/consensys/gnark-crypto/ecc/bls12-377"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"github.com/fxamacker/cbor/v2"

	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// Params is the public, derandomized generator table: one generator per
// committed-vector slot plus one auxiliary generator Q binding the
// cross-term scalars each round's L/R commitments also carry.
type Params struct {
	Gens curve.Generators
	Q    bls12377.G1Affine
}

// Setup derandomizes maxLen (rounded up to the next power of two)
// generators plus the Q generator from fixed domain-separation labels —
// no secret trapdoor, unlike evalproof/hyperkzg's structured SRS.
func Setup(maxLen int) Params {
	n := 1 << mle.NumVars(maxLen)
	gens := curve.NewGenerators("veriql/evalproof/innerproduct/gens", n)
	q := curve.NewGenerators("veriql/evalproof/innerproduct/q", 1).G[0]
	return Params{Gens: gens, Q: q}
}

type wireProof struct {
	Ls, Rs [][]byte
	Final  []byte
}

func newSubTranscript(commitment []byte, point []scalar.Element, claimed scalar.Element) *fiatshamir.Transcript {
	tr := fiatshamir.NewTranscript(sha256.New(), "x")
	_ = tr.Bind("x", commitment)
	for _, p := range point {
		b := p.Bytes()
		_ = tr.Bind("x", b[:])
	}
	cb := claimed.Bytes()
	_ = tr.Bind("x", cb[:])
	return tr
}

func roundChallenge(tr *fiatshamir.Transcript, l, r []byte) scalar.Element {
	_ = tr.Bind("x", l)
	_ = tr.Bind("x", r)
	c, err := tr.ComputeChallenge("x")
	if err != nil {
		qerror.Panic("innerproduct: compute challenge: %v", err)
	}
	var e scalar.Element
	e.SetBytes(c)
	_ = tr.Bind("x", c)
	return e
}

// evalBasis returns the public length-2^len(point) vector b with
// b[i] = eq(bits(i), point), the evaluation vector this argument proves
// an inner product against (§4.9).
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

// Commit returns MSM(gens, vec), the vector committed without any
// blinding factor (this system's commitments are public-data
// commitments, never hiding ones — §4.4).
func Commit(p Params, vec []scalar.Element) evalproof.Commitment {
	padded := mle.PadToPow2(vec)
	pt := curve.MSM(p.Gens.G[:len(padded)], padded)
	return evalproof.Commitment{Backend: evalproof.InnerProduct, Bytes: pt.Bytes()}
}

// Prove runs the log2(N)-round folding argument and returns the
// transcript of (L,R) pairs plus the final folded scalar.
func Prove(p Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (evalproof.Proof, error) {
	a := mle.PadToPow2(vec)
	b := evalBasis(point)
	if len(a) != len(b) {
		return evalproof.Proof{}, qerror.NewProofError(qerror.KindInvalidPlan, "innerproduct: vector/point length mismatch", nil)
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
		return evalproof.Proof{}, qerror.NewProofError(qerror.KindInternalError, "innerproduct: encode proof", err)
	}
	return evalproof.Proof{Backend: evalproof.InnerProduct, Bytes: enc}, nil
}

// Verify recomputes every round's challenge from the bound (L,R) pairs,
// folds the public basis vector and generator table itself, and checks
// the final combined commitment against the final folded scalar. This
// backend's verifier work is O(N) group operations — the tradeoff
// transparent (no trusted setup) schemes make against evalproof/dory and
// evalproof/hyperkzg's O(log N)/O(1) pairing-based verification.
func Verify(p Params, commitment evalproof.Commitment, point []scalar.Element, claimed scalar.Element, proof evalproof.Proof) error {
	var wp wireProof
	if err := cbor.Unmarshal(proof.Bytes, &wp); err != nil {
		return qerror.NewProofError(qerror.KindOpeningFailed, "innerproduct: decode proof", err)
	}
	b := evalBasis(point)
	n := len(b)
	if len(wp.Ls) != mle.NumVars(n) || len(wp.Rs) != len(wp.Ls) {
		return qerror.NewProofError(qerror.KindOpeningFailed, "innerproduct: round count mismatch", nil)
	}
	g := append([]bls12377.G1Affine(nil), p.Gens.G[:n]...)

	tr := newSubTranscript(commitment.Bytes, point, claimed)
	qPt := curve.FromAffine(p.Q)

	cPt, err := curve.FromBytes(commitment.Bytes)
	if err != nil {
		return qerror.NewProofError(qerror.KindOpeningFailed, "innerproduct: decode commitment", err)
	}
	acc := curve.Add(cPt, curve.ScalarMul(qPt, claimed))

	for i := range wp.Ls {
		lPt, err := curve.FromBytes(wp.Ls[i])
		if err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "innerproduct: decode L", err)
		}
		rPt, err := curve.FromBytes(wp.Rs[i])
		if err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "innerproduct: decode R", err)
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
	if !acc.Equal(rhs) {
		return qerror.NewProofError(qerror.KindEvaluationDisagreement, "innerproduct: final check failed", nil)
	}
	return nil
}

// Scheme adapts the free functions above to evalproof.Scheme.
type Scheme struct{}

func (Scheme) Setup(maxLen int) evalproof.Params {
	return evalproof.Params{Backend: evalproof.InnerProduct, Inner: Setup(maxLen)}
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
