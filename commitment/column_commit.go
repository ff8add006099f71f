package commitment

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/curve"
	"github.com/opaquelabs/veriql/mle"
)

// columnGeneratorLabel derandomizes the generator table column
// commitments are built over (§4.4), domain-separated from any
// evalproof backend's own generator derivation so a table's commitments
// stay meaningful independent of which evaluation-proof backend a given
// proof session happens to pick (§3: "commitments outlive the columns
// they describe"). prove/verify bind a base-table witness to this
// commitment through a dedicated InnerProduct opening (ColumnCommitmentQ,
// signoffset.go's BindRawColumnCommitment) built over this fixed table,
// independent of whatever backend a given proof session configures for
// its own intermediate witnesses — see DESIGN.md.
const columnGeneratorLabel = "veriql/commitment/column/gens"

// columnGeneratorQLabel derandomizes the auxiliary Q generator the
// dedicated InnerProduct instance in ColumnCommitmentQ uses, mirroring
// evalproof/innerproduct.Setup's own "gens" + "q" label pair under a
// separate, column-commitment-only domain.
const columnGeneratorQLabel = "veriql/commitment/column/q"

// CommitColumn computes a real per-column commitment (§4.4-§4.5) from
// materialized data: project to sign-corrected limbs, pad to the next
// power of two, and MSM against the column-commitment generator table.
// This is the §3 Lifecycle "ingest" step: every other function in this
// package (TryUnion, TryDifference) only ever recombines commitments
// that already exist.
func CommitColumn(col column.Nullable) (Column, error) {
	c := FromNullable(col)
	padded := mle.PadToPow2(c.Limbs)
	gens := ColumnCommitmentGenerators(col.Len())
	value := curve.MSM(gens.G, padded)
	return Column{Type: c.Type, Bounds: BoundsForType(c.Type), Value: value}, nil
}

// ColumnCommitmentGenerators returns the generator table CommitColumn and
// BindRawColumnCommitment use for a numRows-row column, exported so
// prove/verify can build a matching evalproof/innerproduct.Params to open
// a base-table witness against commitment.Column.Value directly (§4.4-
// §4.5), independent of whichever evalproof backend the rest of a given
// proof session picks for its own intermediate witnesses.
func ColumnCommitmentGenerators(numRows int) curve.Generators {
	size := 1 << mle.NumVars(numRows)
	return curve.NewGenerators(columnGeneratorLabel, size)
}

// ColumnCommitmentQ returns the fixed auxiliary generator prove/verify use
// to open a base-table witness against a real commitment.Column.Value via
// evalproof/innerproduct, paired with ColumnCommitmentGenerators into that
// backend's Params — see commitment/signoffset.go's BindRawColumnCommitment
// and DESIGN.md's base-column binding entry.
func ColumnCommitmentQ() bls12377.G1Affine {
	return curve.NewGenerators(columnGeneratorQLabel, 1).G[0]
}

// CommitTable builds a whole Table commitment from materialized columns
// sharing rng, calling CommitColumn per column and assembling the result
// through the same Validate every other Table constructor uses.
func CommitTable(ids []ast.Ident, cols []column.Nullable, rng Range) (Table, error) {
	committed := make([]Column, len(cols))
	for i, col := range cols {
		c, err := CommitColumn(col)
		if err != nil {
			return Table{}, err
		}
		committed[i] = c
	}
	return Validate(ids, committed, rng)
}
