package commitment

import (
	"encoding/binary"

	"github.com/opaquelabs/veriql/scalar"
)

// Limb4 is the [u64;4] limb array §4.4 specifies for Decimal75, Scalar,
// VarChar, and VarBinary rows (as opposed to integer/boolean types,
// which are borrowed directly as field elements with no repacking).
type Limb4 [4]uint64

// ToLimb4 splits a field element's canonical 32-byte encoding into four
// little-endian 64-bit limbs, the layout a Pedersen-style MSM over
// u64-word generators expects.
func ToLimb4(e scalar.Element) Limb4 {
	b := e.Bytes() // big-endian 32 bytes
	var l Limb4
	for i := 0; i < 4; i++ {
		// b is big-endian; limb 0 is the least-significant word, i.e. the
		// last 8 bytes of b.
		start := 32 - (i+1)*8
		l[i] = binary.BigEndian.Uint64(b[start : start+8])
	}
	return l
}

// FromLimb4 reassembles a field element from its four little-endian
// 64-bit limbs.
func FromLimb4(l Limb4) scalar.Element {
	var b [32]byte
	for i := 0; i < 4; i++ {
		start := 32 - (i+1)*8
		binary.BigEndian.PutUint64(b[start:start+8], l[i])
	}
	var e scalar.Element
	e.SetBytes(b[:])
	return e
}

// PackLimbRows projects a committable column's per-row scalars into
// Limb4 rows, used by the MSM-variant packer (§4.4) for Decimal75,
// Scalar, VarChar, and VarBinary columns.
func PackLimbRows(c Committable) []Limb4 {
	out := make([]Limb4, len(c.Limbs))
	for i, v := range c.Limbs {
		out[i] = ToLimb4(v)
	}
	return out
}
