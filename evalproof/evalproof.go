// Package evalproof defines the pluggable MLE evaluation-proof trait
// (§4.9's EP): given a commitment to a length-N vector, a point in
// S^⌈log2 N⌉, and a claimed evaluation, a Scheme proves the claim without
// revealing the vector. Four backends (innerproduct, dory, dynamicdory,
// hyperkzg) share this interface; evalproof/registry dispatches among
// them by Backend tag, the same "closed enum, single dispatch point"
// idiom used by plan.Node and coltype.Kind.
package evalproof

import "github.com/opaquelabs/veriql/scalar"

// Backend tags which evaluation-proof scheme a Params/Commitment/Proof
// belongs to, carried on the wire so a verifier never has to be told out
// of band which scheme a prover used.
type Backend int

const (
	InnerProduct Backend = iota
	Dory
	DynamicDory
	HyperKZG
)

func (b Backend) String() string {
	switch b {
	case InnerProduct:
		return "InnerProduct"
	case Dory:
		return "Dory"
	case DynamicDory:
		return "DynamicDory"
	case HyperKZG:
		return "HyperKZG"
	default:
		return "Unknown"
	}
}

// Params holds a backend's setup output (generator tables, SRS, ...)
// behind an opaque Inner value; only the matching backend package knows
// how to use it, recovered via a type assertion at the dispatch point.
type Params struct {
	Backend Backend
	Inner   any
}

// Commitment is a backend-tagged, wire-ready commitment to a vector.
type Commitment struct {
	Backend Backend
	Bytes   []byte
}

// Proof is a backend-tagged, wire-ready evaluation proof.
type Proof struct {
	Backend Backend
	Bytes   []byte
}

// Scheme is the trait every backend implements: Setup builds public
// parameters sized for vectors up to maxLen; Commit binds a vector;
// Prove shows the committed vector's MLE evaluates to claimed at point;
// Verify checks that proof against only the commitment, point and
// claimed value (never the vector itself).
type Scheme interface {
	Setup(maxLen int) Params
	Commit(params Params, vec []scalar.Element) Commitment
	Prove(params Params, vec []scalar.Element, point []scalar.Element, claimed scalar.Element) (Proof, error)
	Verify(params Params, commitment Commitment, point []scalar.Element, claimed scalar.Element, proof Proof) error
}
