// Package hyperkzg implements evalproof.Scheme as a structured-setup,
// pairing-based scheme: the committed evaluation vector doubles as the
// coefficient vector of a univariate polynomial (the same vector, no
// re-encoding), committed once via KZG exactly the way the teacher's own
// PLONK backend commits its trace columns in setup.go
// (`kzg.Commit(trace.Ql.Coefficients(), srsPk)`). Opening at a multilinear
// point then proceeds by the same even/odd halving recursion
// mle.Evaluate uses, except each level is also KZG-committed and opened
// at ±x so the verifier can check the recurrence through O(log N)
// pairing checks instead of re-deriving it from the witness itself.
package hyperkzg

import (
	"crypto/sha256"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/kzg"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"github.com/fxamacker/cbor/v2"

	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// Params wraps a KZG structured reference string sized for vectors up to
// the configured maximum length.
type Params struct {
	SRS *kzg.SRS
}

// Setup derives a deterministic, non-secret SRS from a fixed label. A
// production deployment replaces this with an MPC ceremony's output —
// this package only needs Params to carry *some* valid kzg.SRS, so the
// derandomized toxic waste is an explicitly documented placeholder, not
// a security claim (§4.9 note on structured-setup schemes).
func Setup(maxLen int) (Params, error) {
	n := 1 << mle.NumVars(maxLen)
	seed := scalar.FromByteSliceViaHash([]byte("veriql/evalproof/hyperkzg/srs"))
	seedFr := seed.Raw()
	var alpha big.Int
	seedFr.BigInt(&alpha)
	srs, err := kzg.NewSRS(uint64(n), &alpha)
	if err != nil {
		return Params{}, qerror.NewProofError(qerror.KindInternalError, "hyperkzg: srs setup", err)
	}
	return Params{SRS: srs}, nil
}

func toFr(vec []scalar.Element) []fr.Element {
	out := make([]fr.Element, len(vec))
	for i, v := range vec {
		out[i] = v.Raw()
	}
	return out
}

// foldLevel performs one step of the even/odd halving recursion,
// identical in shape to mle.Evaluate's per-round fold.
func foldLevel(q []fr.Element, r fr.Element) []fr.Element {
	half := len(q) / 2
	var one, oneMinusR fr.Element
	one.SetOne()
	oneMinusR.Sub(&one, &r)
	out := make([]fr.Element, half)
	for i := 0; i < half; i++ {
		var evenTerm, oddTerm fr.Element
		evenTerm.Mul(&q[2*i], &oneMinusR)
		oddTerm.Mul(&q[2*i+1], &r)
		out[i].Add(&evenTerm, &oddTerm)
	}
	return out
}

// buildLevels returns q_0 (the padded vector), q_1, ..., q_ell where
// q_ell is the single-element multilinear evaluation at point.
func buildLevels(vec []scalar.Element, point []scalar.Element) [][]fr.Element {
	q := toFr(mle.PadToPow2(vec))
	levels := make([][]fr.Element, 0, len(point)+1)
	levels = append(levels, q)
	for _, r := range point {
		q = foldLevel(q, r.Raw())
		levels = append(levels, q)
	}
	return levels
}

func newSubTranscript(commitment []byte, point []scalar.Element, claimed scalar.Element) *fiatshamir.Transcript {
	tr := fiatshamir.NewTranscript(sha256.New(), "h")
	_ = tr.Bind("h", commitment)
	for _, p := range point {
		b := p.Bytes()
		_ = tr.Bind("h", b[:])
	}
	cb := claimed.Bytes()
	_ = tr.Bind("h", cb[:])
	return tr
}

func drawChallenge(tr *fiatshamir.Transcript) scalar.Element {
	c, err := tr.ComputeChallenge("h")
	if err != nil {
		qerror.Panic("hyperkzg: compute challenge: %v", err)
	}
	var e scalar.Element
	e.SetBytes(c)
	_ = tr.Bind("h", c)
	return e
}

type openingWire struct {
	H     []byte
	Value []byte
}

func encodeOpening(op kzg.OpeningProof) openingWire {
	hb := op.H.Bytes()
	vb := op.ClaimedValue.Bytes()
	return openingWire{H: append([]byte(nil), hb[:]...), Value: append([]byte(nil), vb[:]...)}
}

func decodeOpening(w openingWire) (kzg.OpeningProof, error) {
	var op kzg.OpeningProof
	if _, err := op.H.SetBytes(w.H); err != nil {
		return op, err
	}
	op.ClaimedValue.SetBytes(w.Value)
	return op, nil
}

type wireProof struct {
	Commits [][]byte // level commitments for q_1 .. q_{ell-1}
	Plus    []openingWire
	Minus   []openingWire
}

// Commit commits to vec directly as a univariate polynomial's
// coefficients — the padded evaluation vector itself, no transformation.
func Commit(p Params, vec []scalar.Element) (evalproof.Commitment, error) {
	frVec := toFr(mle.PadToPow2(vec))
	d, err := kzg.Commit(frVec, p.SRS.Pk)
	if err != nil {
		return evalproof.Commitment{}, qerror.NewProofError(qerror.KindInternalError, "hyperkzg: commit", err)
	}
	b := d.Bytes()
	return evalproof.Commitment{Backend: evalproof.HyperKZG, Bytes: append([]byte(nil), b[:]...)}, nil
}

// Prove runs the ell-level recursion, committing and opening each
// intermediate level at a doubling sequence of challenge points x, x^2,
// x^4, ... derived once via Fiat-Shamir.
func Prove(p Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (evalproof.Proof, error) {
	levels := buildLevels(vec, point)
	ell := len(point)
	if len(levels) != ell+1 {
		return evalproof.Proof{}, qerror.NewProofError(qerror.KindInvalidPlan, "hyperkzg: point dimension mismatch", nil)
	}

	commitment, err := Commit(p, vec)
	if err != nil {
		return evalproof.Proof{}, err
	}
	tr := newSubTranscript(commitment.Bytes, point, claimed)
	x := drawChallenge(tr)

	var wp wireProof
	xi := x
	for i := 0; i < ell; i++ {
		qi := levels[i]
		if i > 0 {
			d, err := kzg.Commit(qi, p.SRS.Pk)
			if err != nil {
				return evalproof.Proof{}, qerror.NewProofError(qerror.KindInternalError, "hyperkzg: commit level", err)
			}
			b := d.Bytes()
			wp.Commits = append(wp.Commits, append([]byte(nil), b[:]...))
		}

		xiFr := xi.Raw()
		var negXiFr fr.Element
		negXiFr.Neg(&xiFr)

		plusOpen, err := kzg.Open(qi, xiFr, p.SRS.Pk)
		if err != nil {
			return evalproof.Proof{}, qerror.NewProofError(qerror.KindInternalError, "hyperkzg: open+", err)
		}
		minusOpen, err := kzg.Open(qi, negXiFr, p.SRS.Pk)
		if err != nil {
			return evalproof.Proof{}, qerror.NewProofError(qerror.KindInternalError, "hyperkzg: open-", err)
		}
		wp.Plus = append(wp.Plus, encodeOpening(plusOpen))
		wp.Minus = append(wp.Minus, encodeOpening(minusOpen))

		xi = scalar.Mul(xi, xi)
	}

	enc, err := cbor.Marshal(wp)
	if err != nil {
		return evalproof.Proof{}, qerror.NewProofError(qerror.KindInternalError, "hyperkzg: encode proof", err)
	}
	return evalproof.Proof{Backend: evalproof.HyperKZG, Bytes: enc}, nil
}

// Verify checks 2*ell pairing-based openings and chains their claimed
// values through the same even/odd recurrence the prover folded with,
// ending at a value that must match claimed.
func Verify(p Params, commitment evalproof.Commitment, point []scalar.Element, claimed scalar.Element, proof evalproof.Proof) error {
	var wp wireProof
	if err := cbor.Unmarshal(proof.Bytes, &wp); err != nil {
		return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: decode proof", err)
	}
	ell := len(point)
	if len(wp.Plus) != ell || len(wp.Minus) != ell || len(wp.Commits) != ell-1 {
		return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: proof shape mismatch", nil)
	}

	tr := newSubTranscript(commitment.Bytes, point, claimed)
	x := drawChallenge(tr)

	commits := make([][]byte, 0, ell)
	commits = append(commits, commitment.Bytes)
	commits = append(commits, wp.Commits...)

	two := scalar.TryFromInt64(2)
	twoInv := scalar.Inverse(two)

	xi := x
	var prevExpected *scalar.Element
	for i := 0; i < ell; i++ {
		var digest bls12377.G1Affine
		if _, err := digest.SetBytes(commits[i]); err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: decode level commitment", err)
		}
		plusOpen, err := decodeOpening(wp.Plus[i])
		if err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: decode open+", err)
		}
		minusOpen, err := decodeOpening(wp.Minus[i])
		if err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: decode open-", err)
		}

		xiFr := xi.Raw()
		var negXiFr fr.Element
		negXiFr.Neg(&xiFr)

		if err := kzg.Verify(&digest, &plusOpen, xiFr, p.SRS.Vk); err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: verify open+", err)
		}
		if err := kzg.Verify(&digest, &minusOpen, negXiFr, p.SRS.Vk); err != nil {
			return qerror.NewProofError(qerror.KindOpeningFailed, "hyperkzg: verify open-", err)
		}

		plusVal := scalar.FromRaw(plusOpen.ClaimedValue)
		minusVal := scalar.FromRaw(minusOpen.ClaimedValue)

		if prevExpected != nil && !prevExpected.Equal(plusVal) {
			return qerror.NewProofError(qerror.KindEvaluationDisagreement, "hyperkzg: level recurrence mismatch", nil)
		}

		even := scalar.Mul(scalar.Add(plusVal, minusVal), twoInv)
		odd := scalar.Mul(scalar.Sub(plusVal, minusVal), scalar.Inverse(scalar.Mul(two, xi)))
		ri := point[i]
		exp := scalar.Add(scalar.Mul(scalar.Sub(scalar.One, ri), even), scalar.Mul(ri, odd))
		prevExpected = &exp

		xi = scalar.Mul(xi, xi)
	}

	if prevExpected == nil || !prevExpected.Equal(claimed) {
		return qerror.NewProofError(qerror.KindEvaluationDisagreement, "hyperkzg: final claim mismatch", nil)
	}
	return nil
}

// Scheme adapts the free functions above to evalproof.Scheme.
type Scheme struct{}

func (Scheme) Setup(maxLen int) evalproof.Params {
	p, err := Setup(maxLen)
	if err != nil {
		qerror.Panic("hyperkzg: setup: %v", err)
	}
	return evalproof.Params{Backend: evalproof.HyperKZG, Inner: p}
}

func (Scheme) Commit(params evalproof.Params, vec []scalar.Element) evalproof.Commitment {
	c, err := Commit(params.Inner.(Params), vec)
	if err != nil {
		qerror.Panic("hyperkzg: commit: %v", err)
	}
	return c
}

func (Scheme) Prove(params evalproof.Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (evalproof.Proof, error) {
	return Prove(params.Inner.(Params), vec, point, claimed)
}

func (Scheme) Verify(params evalproof.Params, commitment evalproof.Commitment, point []scalar.Element, claimed scalar.Element, proof evalproof.Proof) error {
	return Verify(params.Inner.(Params), commitment, point, claimed, proof)
}
