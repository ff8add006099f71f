package commitment

import (
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/scalar"
)

// OffsetCommits is the pair of prebuilt offset sub-commits from §4.5:
// index 0 is the commitment to the full-ones column over one
// sub-commitment's row span, index 1 is the first-row-offset-adjusted
// ones column (used when a column's data starts partway into its first
// sub-commitment row).
type OffsetCommits [2]curve.Point

// BuildOffsetCommits computes the two shared offset sub-commits against
// a generator table, used once per proof and reused across every signed
// column the proof references.
func BuildOffsetCommits(gens curve.Generators, rowOffset int) OffsetCommits {
	ones := make([]scalar.Element, len(gens.G))
	for i := range ones {
		ones[i] = scalar.One
	}
	full := curve.MSM(gens.G, ones)

	shifted := make([]scalar.Element, len(gens.G))
	for i := range shifted {
		if i >= rowOffset {
			shifted[i] = scalar.One
		}
	}
	adj := curve.MSM(gens.G, shifted)

	return OffsetCommits{full, adj}
}

// CorrectSignedCommitment recovers Com(v) from a commitment built over
// v-m (the sign-corrected, always-nonnegative values the MSM actually
// saw): the verifier adds m*Com(1-column) using whichever prebuilt
// offset sub-commit matches how many sub-commit rows the column's data
// spans (§4.5: "chooses between them depending on whether a column's
// data spans 0, 1, 2, or ≥3 sub-commit rows").
func CorrectSignedCommitment(t coltype.Type, raw curve.Point, offsets OffsetCommits, spansMultipleSubCommits bool) curve.Point {
	if !t.HasFixedIntegerRange() {
		return raw
	}
	m := scalar.TryFromBigInt(t.Min())
	offsetCommit := offsets[0]
	if !spansMultipleSubCommits {
		offsetCommit = offsets[1]
	}
	correction := curve.ScalarMul(offsetCommit, m)
	return curve.Add(raw, correction)
}

// BindRawColumnCommitment recovers the commitment to col's raw (non
// sign-corrected) values from its stored, sign-corrected Column.Value,
// so a base-table witness's real row data can be checked against it
// (§4.5's sign-offset scheme run in reverse). n is the column's row
// count; rowOffset is always 0 here since a table scan always commits
// from a table's first row.
//
// The offset commits are built over the column's first n generators
// only, matching CommitColumn's single MSM in which padding rows hold
// zero rather than a sign-corrected value. With rowOffset 0 both offset
// commits are equal, so the result does not depend on whether n exceeds
// SubCommitRows.
func BindRawColumnCommitment(col Column, n int) curve.Point {
	gens := ColumnCommitmentGenerators(n)
	gens.G = gens.G[:n]
	offsets := BuildOffsetCommits(gens, 0)
	spansMultiple := n > SubCommitRows
	return CorrectSignedCommitment(col.Type, col.Value, offsets, spansMultiple)
}
