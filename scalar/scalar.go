// Package scalar implements the prime-field scalar type S shared by every
// other package in this module: field arithmetic, the decimal up-scaling
// table pow10, a signed total order over field elements, and lossless
// conversion to/from bounded integer types with overflow detection.
//
// S is not reimplemented from scratch. It wraps gnark-crypto's BLS12-377
// scalar field element, the same field the teacher's own PLONK backend
// (backend/plonk/bls12-377) commits polynomials over — reusing a vetted,
// constant-time field implementation rather than hand-rolling Montgomery
// arithmetic.
package scalar

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"golang.org/x/crypto/blake2b"

	"github.com/opaquelabs/veriql/qerror"
)

// Element is a field element of the BLS12-377 scalar field, order
// r ≈ 2^253 (the closest pairing-friendly field available in the pack to
// the ≈2^252 order named in the spec).
type Element struct {
	inner fr.Element
}

// Zero and One are returned by value; field elements are small and copy
// cheaply (4 uint64 limbs).
var (
	Zero = Element{}
	One  = func() Element {
		var e Element
		e.inner.SetOne()
		return e
	}()
)

// Add returns a+b.
func Add(a, b Element) Element {
	var r Element
	r.inner.Add(&a.inner, &b.inner)
	return r
}

// Sub returns a-b.
func Sub(a, b Element) Element {
	var r Element
	r.inner.Sub(&a.inner, &b.inner)
	return r
}

// Mul returns a*b.
func Mul(a, b Element) Element {
	var r Element
	r.inner.Mul(&a.inner, &b.inner)
	return r
}

// Neg returns -a.
func Neg(a Element) Element {
	var r Element
	r.inner.Neg(&a.inner)
	return r
}

// Inverse returns 1/a. Panics (a Bug, see qerror) if a is zero — callers
// must check IsZero first; this mirrors division-by-zero being a detected
// QueryError at the call site, not inside the field layer.
func Inverse(a Element) Element {
	if a.IsZero() {
		qerror.Panic("scalar: inverse of zero")
	}
	var r Element
	r.inner.Inverse(&a.inner)
	return r
}

// IsZero reports whether a is the additive identity.
func (a Element) IsZero() bool { return a.inner.IsZero() }

// Equal reports field equality.
func (a Element) Equal(b Element) bool { return a.inner.Equal(&b.inner) }

// pow10Table is precomputed once at init for k in [0, 75], used to
// up-scale decimal operands by 10^Δ in the field during arithmetic and
// comparison (§4.2).
var pow10Table [76]Element

func init() {
	var ten Element
	ten.inner.SetUint64(10)
	acc := One
	for k := 0; k <= 75; k++ {
		pow10Table[k] = acc
		acc = Mul(acc, ten)
	}
}

// Pow10 returns 10^k as a field element for k in [0, 75]. k outside that
// range is an invariant violation: every caller (decimal arithmetic,
// comparison up-scaling) bounds Δ by a declared precision ≤ 75 before
// calling this.
func Pow10(k uint8) Element {
	if k > 75 {
		qerror.Panic("scalar: pow10(%d) out of precomputed range [0,75]", k)
	}
	return pow10Table[k]
}

// fieldMidpoint is (r-1)/2: elements strictly above it represent negative
// integers in the field's canonical signed embedding.
var fieldMidpoint = func() *big.Int {
	mod := fr.Modulus()
	mid := new(big.Int).Sub(mod, big.NewInt(1))
	mid.Rsh(mid, 1)
	return mid
}()

// signedBigInt returns a's value as a big.Int in (-r/2, r/2], the
// canonical signed embedding used throughout this module for "negative"
// field elements.
func (a Element) signedBigInt() *big.Int {
	var bi big.Int
	a.inner.BigInt(&bi)
	if bi.Cmp(fieldMidpoint) > 0 {
		mod := fr.Modulus()
		bi.Sub(&bi, mod)
	}
	return &bi
}

// SignedBigInt exposes an element's canonical signed representation as a
// big.Int, for callers (decimal arithmetic in the plan package) that need
// the full-precision integer value rather than a bit-width-bounded
// narrowing like TryIntoInt.
func (a Element) SignedBigInt() *big.Int {
	return new(big.Int).Set(a.signedBigInt())
}

// SignedCmp total-orders field elements by their signed representation:
// elements above the field midpoint sort as negative. Required wherever
// arithmetic is written for the integer world but executed in the field
// (ordering comparisons, decimal sign-only fallback, column bounds).
func SignedCmp(a, b Element) int {
	return a.signedBigInt().Cmp(b.signedBigInt())
}

// TryFromInt64 never fails: negative values map to -|x| in the field.
func TryFromInt64(x int64) Element {
	var r Element
	if x >= 0 {
		r.inner.SetUint64(uint64(x))
		return r
	}
	r.inner.SetUint64(uint64(-x))
	r.inner.Neg(&r.inner)
	return r
}

// TryFromBigInt never fails; negative values map to -|x| in the field.
// Callers embedding an Int128 pass a *big.Int already in [-2^127,
// 2^127).
func TryFromBigInt(x *big.Int) Element {
	var r Element
	abs := new(big.Int).Abs(x)
	r.inner.SetBigInt(abs)
	if x.Sign() < 0 {
		r.inner.Neg(&r.inner)
	}
	return r
}

// TryFromUint64 never fails.
func TryFromUint64(x uint64) Element {
	var r Element
	r.inner.SetUint64(x)
	return r
}

// intBounds gives the inclusive [min,max] range of each embedded signed
// integer width this package supports conversions for.
func intBounds(bits int) (min, max *big.Int) {
	max = new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	min = new(big.Int).Neg(max)
	max.Sub(max, big.NewInt(1))
	return min, max
}

// TryIntoInt fails with qerror.KindOverflow when a's signed
// representation does not fit in the given bit width (8, 16, 32, 64, or
// 128).
func TryIntoInt(a Element, bits int) (*big.Int, error) {
	v := a.signedBigInt()
	lo, hi := intBounds(bits)
	if v.Cmp(lo) < 0 || v.Cmp(hi) > 0 {
		return nil, qerror.NewQueryError(qerror.KindOverflow,
			fmt.Sprintf("scalar %s does not fit in a signed %d-bit integer", v, bits), nil)
	}
	return v, nil
}

// TryIntoInt64 narrows a to an int64, failing with KindOverflow if out of
// range.
func TryIntoInt64(a Element) (int64, error) {
	v, err := TryIntoInt(a, 64)
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// Bytes returns the canonical big-endian 32-byte encoding, used for
// encoding claimed evaluations and proof values and for hashing field
// elements into a transcript.
func (a Element) Bytes() [32]byte {
	return a.inner.Bytes()
}

// SetBytes decodes the canonical big-endian encoding produced by Bytes.
func (a *Element) SetBytes(b []byte) {
	a.inner.SetBytes(b)
}

// FromByteSliceViaHash deterministically and (to 128-bit security)
// collision-resistantly maps an arbitrary byte slice (a VarChar/VarBinary
// row's bytes) to a single field element, via BLAKE2b-256 reduced modulo
// the field order. BLAKE2b is chosen over a bespoke construction for the
// same reason the teacher picks a well-studied hash for its own transcript
// absorption: a fast, wide, standard primitive beats a novel one.
func FromByteSliceViaHash(b []byte) Element {
	h := blake2b.Sum256(b)
	var r Element
	r.inner.SetBytes(h[:])
	return r
}

// Raw exposes the underlying gnark-crypto element for packages (curve,
// evalproof) that must hand it directly to MSM/pairing routines.
func (a Element) Raw() fr.Element { return a.inner }

// FromRaw wraps an existing gnark-crypto element.
func FromRaw(e fr.Element) Element { return Element{inner: e} }

func (a Element) String() string { return a.inner.String() }
