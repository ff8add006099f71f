package commitment

import (
	"bytes"

	"github.com/icza/bitio"

	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/scalar"
)

// Committable is the limb/bit projection of an owned/nullable column
// suitable for a Pedersen-style multi-scalar multiplication (§4.4).
// Every type is projected to one field element per row: integer/boolean
// values directly, Decimal75 and Scalar as their scalar value, and
// VarChar/VarBinary via a cryptographic hash of the bytes.
type Committable struct {
	Type coltype.Type
	// Limbs holds one field element per row, already sign-corrected
	// (§4.5: value + type minimum, so every entry is ≥ 0) for signed
	// integer types. Decimal75/Scalar/VarChar/VarBinary rows are the hash
	// or raw scalar with no sign offset (Scalar arithmetic in the field
	// has no "sign" at the commitment layer).
	Limbs []scalar.Element
	// Presence mirrors column.Nullable's presence vector (nil = all
	// present) so a verifier can recover which rows were NULL (§9 open
	// question: NULL-aware commitments carried end-to-end).
	Presence []bool
}

// FromNullable projects a Nullable column into its committable form.
func FromNullable(n column.Nullable) Committable {
	out := Committable{Type: n.Values.Type, Limbs: make([]scalar.Element, n.Len())}
	if n.Presence != nil {
		out.Presence = make([]bool, n.Len())
	}
	for i := 0; i < n.Len(); i++ {
		v, present := n.ScalarAt(i)
		if out.Presence != nil {
			out.Presence[i] = present
		}
		if !present {
			out.Limbs[i] = scalar.Zero
			continue
		}
		out.Limbs[i] = signCorrect(n.Values.Type, v)
	}
	return out
}

// signCorrect applies §4.5's additive offset: for a fixed-width signed
// integer type with minimum m, the prover commits v-m (always ≥ 0).
// Decimal75 is signed and numeric too but has no bit-width-derived
// minimum (see coltype.Type.HasFixedIntegerRange), so it is committed
// as the raw limb-packed scalar with no offset.
func signCorrect(t coltype.Type, v scalar.Element) scalar.Element {
	if !t.HasFixedIntegerRange() {
		return v
	}
	m := scalar.TryFromBigInt(t.Min())
	return scalar.Sub(v, m)
}

// SubCommitRows is the row count a single sub-commitment covers (the
// generator matrix's column count, g in §4.4).
const SubCommitRows = 1 << 10

// NumSubCommits returns ⌈(n+offset)/g⌉, the §4.4 formula for how many
// sub-commitments a column of n rows with a row-offset requires.
func NumSubCommits(n, offset int) int {
	total := n + offset
	if total == 0 {
		return 0
	}
	return (total + SubCommitRows - 1) / SubCommitRows
}

// BitTable lists, per sub-commitment, the bit width of that
// sub-commitment's lane, plus the 2+numColumns single-byte sign-offset
// entries appended by §4.5. Packed is written through icza/bitio's byte
// writer, one whole byte per entry, so it is not bit-packed.
type BitTable struct {
	// Widths holds the logical (unpacked) per-sub-commitment bit widths,
	// kept alongside the packed bytes so callers don't need to
	// unpack-then-reparse during proof construction.
	Widths []uint8
	Packed []byte
}

// BuildBitTable packs bit widths for a set of columns' sub-commitments,
// followed by two shared offset-sub-commit entries and one per-column
// tail-row offset entry (§4.4: "extended by 2 + numColumns additional
// single-byte entries").
func BuildBitTable(cols []coltype.Type, offset int, rowCounts []int) BitTable {
	var widths []uint8
	for i, t := range cols {
		n := NumSubCommits(rowCounts[i], offset)
		for s := 0; s < n; s++ {
			widths = append(widths, uint8(t.BitSize()))
		}
	}
	// two shared offset sub-commits: full-ones column, and the
	// first-row-offset-adjusted ones column (§4.5).
	widths = append(widths, 1, 1)
	// one per-column final-row-tail entry.
	for range cols {
		widths = append(widths, 1)
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, width := range widths {
		_ = w.WriteByte(width)
	}
	_ = w.Close()

	return BitTable{Widths: widths, Packed: buf.Bytes()}
}

// Unpack restores the per-entry widths from the packed byte stream, the
// inverse of BuildBitTable's packing.
func Unpack(packed []byte) []uint8 {
	r := bitio.NewReader(bytes.NewReader(packed))
	var out []uint8
	for {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		out = append(out, b)
	}
	return out
}
