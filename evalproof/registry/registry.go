// Package registry maps a Backend tag to its evalproof.Scheme
// implementation — kept separate from package evalproof itself so that
// package never has to import any of its own backends (which all import
// it back for the shared Params/Commitment/Proof types).
package registry

import (
	"github.com/opaquelabs/veriql/evalproof"
	"github.com/opaquelabs/veriql/evalproof/dory"
	"github.com/opaquelabs/veriql/evalproof/dynamicdory"
	"github.com/opaquelabs/veriql/evalproof/hyperkzg"
	"github.com/opaquelabs/veriql/evalproof/innerproduct"
	"github.com/opaquelabs/veriql/qerror"
)

// ForBackend returns the Scheme implementation for b, panicking (via
// qerror.Panic, an internal-invariant violation, never untrusted input)
// if b is not one of the four declared backends.
func ForBackend(b evalproof.Backend) evalproof.Scheme {
	switch b {
	case evalproof.InnerProduct:
		return innerproduct.Scheme{}
	case evalproof.Dory:
		return dory.Scheme{}
	case evalproof.DynamicDory:
		return dynamicdory.Scheme{}
	case evalproof.HyperKZG:
		return hyperkzg.Scheme{}
	default:
		qerror.Panic("evalproof/registry: unknown backend %s", b)
		return nil
	}
}
