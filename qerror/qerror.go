// Package qerror defines the error-kind taxonomy for the query engine.
//
// There is no exception framework here: every fallible boundary returns a
// wrapped, typed error and nothing is retried internally. Panics are
// reserved for invariant violations that construction APIs already
// prevent from happening (see Bug).
package qerror

import (
	"errors"
	"fmt"
)

// Kind classifies an error without requiring callers to type-switch on
// concrete error structs.
type Kind int

const (
	// Parse / analyze.
	KindMalformedSQL Kind = iota
	KindUnknownIdentifier
	KindOperatorTypeMismatch
	KindAmbiguousAlias
	KindInvalidDecimal
	KindI128OutOfRange

	// Conversion.
	KindUnsupportedType
	KindScalarOutOfRange
	KindDecimalOverflow
	KindPresenceLengthMismatch
	KindDuplicateIdents

	// Commitment.
	KindColumnMismatch
	KindNegativeRange
	KindNonContiguous
	KindMixedLengthColumns
	KindDuplicateIdentifiers

	// Proof construction.
	KindDivisionByZero
	KindOverflow
	KindInvalidPlan

	// Verification.
	KindInvalidTranscript
	KindSumcheckRoundMismatch
	KindOpeningFailed
	KindEvaluationDisagreement
	KindChallengeBudgetExhausted
	KindOneEvalLengthMismatch
	KindConstraintUnsatisfied
	KindInternalError

	// Wire format.
	KindIncompatibleWireVersion
)

func (k Kind) String() string {
	switch k {
	case KindMalformedSQL:
		return "malformed SQL"
	case KindUnknownIdentifier:
		return "unknown identifier"
	case KindOperatorTypeMismatch:
		return "operator type mismatch"
	case KindAmbiguousAlias:
		return "ambiguous alias"
	case KindInvalidDecimal:
		return "invalid decimal precision/scale"
	case KindI128OutOfRange:
		return "i128 out of range"
	case KindUnsupportedType:
		return "unsupported external type"
	case KindScalarOutOfRange:
		return "scalar out of target range"
	case KindDecimalOverflow:
		return "decimal overflow"
	case KindPresenceLengthMismatch:
		return "presence length mismatch"
	case KindDuplicateIdents:
		return "duplicate identifiers in batch"
	case KindColumnMismatch:
		return "column type mismatch"
	case KindNegativeRange:
		return "negative range"
	case KindNonContiguous:
		return "non-contiguous ranges"
	case KindMixedLengthColumns:
		return "mixed length columns"
	case KindDuplicateIdentifiers:
		return "duplicate identifiers"
	case KindDivisionByZero:
		return "division by zero"
	case KindOverflow:
		return "integer overflow"
	case KindInvalidPlan:
		return "invalid plan"
	case KindInvalidTranscript:
		return "invalid transcript"
	case KindSumcheckRoundMismatch:
		return "sumcheck round evaluation mismatch"
	case KindOpeningFailed:
		return "MLE opening failed"
	case KindEvaluationDisagreement:
		return "claimed vs derived evaluation disagree"
	case KindChallengeBudgetExhausted:
		return "challenge budget exhausted"
	case KindOneEvalLengthMismatch:
		return "one-evaluation length mismatch"
	case KindConstraintUnsatisfied:
		return "constraint unsatisfied"
	case KindInternalError:
		return "internal error"
	case KindIncompatibleWireVersion:
		return "incompatible wire format version"
	default:
		return "unknown error"
	}
}

// QueryError is returned synchronously by the prover: a bad plan, division
// by zero in a witness, declared-type overflow, or any parse/analyze or
// conversion failure. Nothing about a QueryError is recoverable by the
// caller beyond reporting it.
type QueryError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError builds a QueryError, optionally wrapping a lower-level
// cause.
func NewQueryError(k Kind, msg string, cause error) *QueryError {
	return &QueryError{Kind: k, Msg: msg, Err: cause}
}

// ProofError is the only signal a verifier consumes: there is no partial
// acceptance, and every ProofError rejects the proof outright.
type ProofError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ProofError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ProofError) Unwrap() error { return e.Err }

// NewProofError builds a ProofError.
func NewProofError(k Kind, msg string, cause error) *ProofError {
	return &ProofError{Kind: k, Msg: msg, Err: cause}
}

// Bug marks an invariant violation that a construction API should already
// have prevented. Code that detects one panics with a Bug value; the only
// place that recovers it is the top-level Prove/Verify entry points, which
// convert it into a KindInternalError ProofError so a verifier caller never
// observes a raw panic.
type Bug struct {
	Msg string
}

func (b Bug) Error() string { return "internal invariant violation: " + b.Msg }

// Panic raises a Bug. Call it only where the enclosing construction API
// already rules the condition out; never as a substitute for returning a
// QueryError/ProofError at a real fallible boundary.
func Panic(format string, args ...any) {
	panic(Bug{Msg: fmt.Sprintf(format, args...)})
}

// RecoverAsProofError converts a panicking Bug (or any other panic) into a
// ProofError and stores it through errp. It must be called via `defer` at
// the very top of an exported entry point.
func RecoverAsProofError(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if b, ok := r.(Bug); ok {
		*errp = NewProofError(KindInternalError, b.Msg, nil)
		return
	}
	if err, ok := r.(error); ok {
		*errp = NewProofError(KindInternalError, err.Error(), err)
		return
	}
	*errp = NewProofError(KindInternalError, fmt.Sprintf("%v", r), nil)
}

// Is* helpers so callers can use errors.Is against a Kind without exposing
// the concrete struct.

// IsKind reports whether err is a QueryError or ProofError of kind k.
func IsKind(err error, k Kind) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind == k
	}
	var pe *ProofError
	if errors.As(err, &pe) {
		return pe.Kind == k
	}
	return false
}
