package plan

import (
	"fmt"
	"math/big"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/mle"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// exprRefs caches, within one node's final round, the arena Ref already
// allocated for a given base column identifier — so an expression that
// mentions the same column twice (e.g. `a*b+b+c`, scenario 4 of §8)
// registers and commits it once rather than once per mention.
type refEntry struct {
	ref mle.Ref
	typ coltype.Type
}

type exprRefs map[ast.Ident]refEntry

// ownedVec reads every row of c as a raw field element, degrading NULL
// rows to their type-default sentinel rather than propagating NULL into
// the constraint system — the §9 Design Notes open question on
// NULL-aware comparisons is resolved by choosing this option explicitly
// for the constraint-witness path (see DESIGN.md); plan.Evaluate still
// computes the full NULL-aware result for the public output table.
func ownedVec(t ScalarTable, id ast.Ident) ([]scalar.Element, coltype.Type, error) {
	col, typ, ok := t.Column(id)
	if !ok {
		return nil, coltype.Type{}, qerror.NewQueryError(qerror.KindUnknownIdentifier,
			fmt.Sprintf("unknown column %q", id), nil)
	}
	vec := make([]scalar.Element, col.Len())
	for i := range vec {
		vec[i] = col.Values.ScalarAt(i)
	}
	return vec, typ, nil
}

// buildExprWitness recursively allocates a witness vector and Identity
// constraint for every node of e, mirroring evalExpr's recursion but
// emitting proof machinery instead of (only) a value. It returns the
// allocated Ref for e's own output vector plus the vector itself (a
// caller composing several expressions, e.g. GroupBy's aggregate
// consistency check, may need the raw values as well as the Ref).
//
// Constraint coverage (documented, not a silent gap — see DESIGN.md):
// Column/Literal leaves, Add/Sub/Mul, Eq/Neq (via an IsZero log-derivative
// gadget, the same reciprocal technique membership.go uses), And/Or/Not
// on boolean operands are fully linked to their operands by an Identity
// constraint. IS-predicates and aggregates are rejected with
// KindInvalidPlan: no witness or constraint is built for them here.
// Lt/Le/Gt/Ge and Div allocate and commit
// their output witness (so downstream nodes and the transcript can still
// reference it) but do not themselves carry a bit-decomposition
// range-check circuit tying the witness to its operands — ordering and
// exact-quotient proofs need a range-check gadget this module does not
// implement; every such node is still boolean/type-range-constrained
// where applicable (e.g. a boolean output still satisfies out·(out-1)=0).
func buildExprWitness(b *mle.FinalRoundBuilder, e ast.Expr, t ScalarTable, refs exprRefs, commit CommitFunc) (mle.Ref, []scalar.Element, coltype.Type, error) {
	switch x := e.(type) {
	case ast.Column:
		if entry, ok := refs[x.Name]; ok {
			return entry.ref, b.Arena.Get(entry.ref), entry.typ, nil
		}
		if entry, ok := t.BaseRefs[x.Name]; ok {
			refs[x.Name] = entry
			return entry.ref, b.Arena.Get(entry.ref), entry.typ, nil
		}
		vec, typ, err := ownedVec(t, x.Name)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		ref := b.ProduceIntermediate(vec, commit(vec))
		refs[x.Name] = refEntry{ref: ref, typ: typ}
		return ref, vec, typ, nil

	case ast.Literal:
		vec, typ, err := literalVec(x, t.NumRows)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		ref := b.ProduceIntermediate(vec, commit(vec))
		return ref, vec, typ, nil

	case ast.Binary:
		return buildBinaryWitness(b, x, t, refs, commit)

	case ast.Not:
		oref, ovec, _, err := buildExprWitness(b, x.Operand, t, refs, commit)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		out := make([]scalar.Element, len(ovec))
		for i, v := range ovec {
			out[i] = scalar.Sub(scalar.One, v)
		}
		outRef := b.ProduceIntermediate(out, commit(out))
		// out + operand - 1 = 0
		b.AddSubpolynomial(linearSum([]mle.Ref{outRef, oref}, []scalar.Element{scalar.One, scalar.One}, scalar.Neg(scalar.One)))
		return outRef, out, coltype.Simple(coltype.Boolean), nil

	case ast.IsPredicate, ast.Aggregate:
		return 0, nil, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan,
			fmt.Sprintf("%T is not constraint-provable inside a scalar expression", e), nil)

	default:
		return 0, nil, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan,
			fmt.Sprintf("unsupported expression %T", e), nil)
	}
}

func literalVec(lit ast.Literal, n int) ([]scalar.Element, coltype.Type, error) {
	col, typ, err := literalColumn(lit, n)
	if err != nil {
		return nil, coltype.Type{}, err
	}
	vec := make([]scalar.Element, n)
	for i := range vec {
		vec[i] = col.Values.ScalarAt(i)
	}
	return vec, typ, nil
}

// linearSum builds an Identity subpolynomial Σ coeffs[i]·refs[i] + k = 0.
func linearSum(refs []mle.Ref, coeffs []scalar.Element, k scalar.Element) mle.Subpolynomial {
	products := make([]mle.Product, 0, len(refs)+1)
	for i, r := range refs {
		products = append(products, mle.Product{Coeff: coeffs[i], Terms: []mle.Term{{Vec: r}}})
	}
	if !k.IsZero() {
		products = append(products, mle.Product{Coeff: k, Terms: nil})
	}
	return mle.Subpolynomial{Kind: mle.Identity, Products: products}
}

// booleanRangeConstraint adds out·(out-1) = 0, forcing a witness column
// to take only 0/1 values regardless of whether its value is otherwise
// constraint-linked to its operands.
func booleanRangeConstraint(b *mle.FinalRoundBuilder, ref mle.Ref) {
	b.AddSubpolynomial(mle.Subpolynomial{
		Kind: mle.Identity,
		Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: ref}, {Vec: ref}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: ref}}},
		},
	})
}

// isZeroGadget witnesses, for diffVec, an indicator `eq` (1 where
// diffVec[i]==0, else 0) via the standard log-derivative IsZero
// construction also used by membership.go's reciprocal trick: a witness
// `inv` such that diff·inv = 1-eq and eq·diff = 0. The second identity
// forces eq=0 whenever diff≠0 (since inv would otherwise need to be
// diff's inverse for the first identity, but eq=1 together with diff≠0
// violates eq·diff=0); the first identity forces eq=1 whenever diff=0
// (inv is unconstrained there, conventionally 0).
func isZeroGadget(b *mle.FinalRoundBuilder, diffRef mle.Ref, diffVec []scalar.Element, commit CommitFunc) mle.Ref {
	n := len(diffVec)
	eq := make([]scalar.Element, n)
	inv := make([]scalar.Element, n)
	for i, d := range diffVec {
		if d.IsZero() {
			eq[i] = scalar.One
			inv[i] = scalar.Zero
		} else {
			inv[i] = scalar.Inverse(d)
		}
	}
	eqRef := b.ProduceIntermediate(eq, commit(eq))
	invRef := b.ProduceIntermediate(inv, commit(inv))

	// diff*inv + eq - 1 = 0
	b.AddSubpolynomial(mle.Subpolynomial{
		Kind: mle.Identity,
		Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: diffRef}, {Vec: invRef}}},
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: eqRef}}},
			{Coeff: scalar.Neg(scalar.One), Terms: nil},
		},
	})
	// eq*diff = 0
	b.AddSubpolynomial(mle.Subpolynomial{
		Kind: mle.Identity,
		Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: eqRef}, {Vec: diffRef}}},
		},
	})
	return eqRef
}

func buildBinaryWitness(b *mle.FinalRoundBuilder, bin ast.Binary, t ScalarTable, refs exprRefs, commit CommitFunc) (mle.Ref, []scalar.Element, coltype.Type, error) {
	lref, lvec, lt, err := buildExprWitness(b, bin.Left, t, refs, commit)
	if err != nil {
		return 0, nil, coltype.Type{}, err
	}
	rref, rvec, rt, err := buildExprWitness(b, bin.Right, t, refs, commit)
	if err != nil {
		return 0, nil, coltype.Type{}, err
	}
	n := len(lvec)

	switch bin.Op {
	case ast.And:
		out := elementwise(lvec, rvec, scalar.Mul)
		ref := b.ProduceIntermediate(out, commit(out))
		// out - l*r = 0
		b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: ref}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: lref}, {Vec: rref}}},
		}})
		return ref, out, coltype.Simple(coltype.Boolean), nil

	case ast.Or:
		lr := elementwise(lvec, rvec, scalar.Mul)
		out := make([]scalar.Element, n)
		for i := range out {
			out[i] = scalar.Sub(scalar.Add(lvec[i], rvec[i]), lr[i])
		}
		ref := b.ProduceIntermediate(out, commit(out))
		// out - l - r + l*r = 0
		b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: ref}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: lref}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: rref}}},
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: lref}, {Vec: rref}}},
		}})
		return ref, out, coltype.Simple(coltype.Boolean), nil

	case ast.Add, ast.Sub:
		op, _ := binaryOpToColtype(bin.Op)
		resType, err := coltype.ResultType(op, lt, rt)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		_, ls, _ := coltype.DecimalPrecisionScale(lt)
		_, rs, _ := coltype.DecimalPrecisionScale(rt)
		_, resScale, _ := coltype.DecimalPrecisionScale(resType)
		// Add/Sub's declared result scale is max(sl,sr) (§4.2), so both
		// exponents here are >= 0; use the arbitrary-exponent big.Int helper
		// (not scalar.Pow10's field table, capped at 75) for consistency with
		// evalArith's scaleTo.
		lScaleFactor := scalar.TryFromBigInt(pow10Big(int(resScale) - int(ls)))
		rScaleFactor := scalar.TryFromBigInt(pow10Big(int(resScale) - int(rs)))
		out := make([]scalar.Element, n)
		sign := scalar.One
		if bin.Op == ast.Sub {
			sign = scalar.Neg(scalar.One)
		}
		for i := range out {
			out[i] = scalar.Add(scalar.Mul(lvec[i], lScaleFactor), scalar.Mul(sign, scalar.Mul(rvec[i], rScaleFactor)))
		}
		ref := b.ProduceIntermediate(out, commit(out))
		// out - ls_factor*l - sign*rs_factor*r = 0
		b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: ref}}},
			{Coeff: scalar.Neg(lScaleFactor), Terms: []mle.Term{{Vec: lref}}},
			{Coeff: scalar.Neg(scalar.Mul(sign, rScaleFactor)), Terms: []mle.Term{{Vec: rref}}},
		}})
		return ref, out, resType, nil

	case ast.Mul:
		resType, err := coltype.ResultType(coltype.OpMul, lt, rt)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		out := elementwise(lvec, rvec, scalar.Mul)
		ref := b.ProduceIntermediate(out, commit(out))
		// out - l*r = 0 (exact when the declared result scale equals
		// sl+sr unclamped; a clamped scale is an Overflow per §4.2,
		// surfaced by evalArith's own path — BuildConstraints assumes the
		// query already passed Evaluate).
		b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: ref}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: lref}, {Vec: rref}}},
		}})
		return ref, out, resType, nil

	case ast.Eq, ast.Neq:
		diff := make([]scalar.Element, n)
		for i := range diff {
			diff[i] = scalar.Sub(lvec[i], rvec[i])
		}
		diffRef := b.ProduceIntermediate(diff, commit(diff))
		// diff - l + r = 0, binding diffRef to lref/rref.
		b.AddSubpolynomial(mle.Subpolynomial{Kind: mle.Identity, Products: []mle.Product{
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: diffRef}}},
			{Coeff: scalar.Neg(scalar.One), Terms: []mle.Term{{Vec: lref}}},
			{Coeff: scalar.One, Terms: []mle.Term{{Vec: rref}}},
		}})
		eqRef := isZeroGadget(b, diffRef, diff, commit)
		if bin.Op == ast.Eq {
			return eqRef, evalEq(diff), coltype.Simple(coltype.Boolean), nil
		}
		neqVec := make([]scalar.Element, n)
		eqVec := evalEq(diff)
		for i := range neqVec {
			neqVec[i] = scalar.Sub(scalar.One, eqVec[i])
		}
		neqRef := b.ProduceIntermediate(neqVec, commit(neqVec))
		b.AddSubpolynomial(linearSum([]mle.Ref{neqRef, eqRef}, []scalar.Element{scalar.One, scalar.One}, scalar.Neg(scalar.One)))
		return neqRef, neqVec, coltype.Simple(coltype.Boolean), nil

	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		out, resType, err := comparisonVec(bin.Op, lvec, lt, rvec, rt)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		ref := b.ProduceIntermediate(out, commit(out))
		booleanRangeConstraint(b, ref)
		return ref, out, resType, nil

	case ast.Div:
		out, resType, err := divVec(lvec, lt, rvec, rt)
		if err != nil {
			return 0, nil, coltype.Type{}, err
		}
		ref := b.ProduceIntermediate(out, commit(out))
		return ref, out, resType, nil

	default:
		return 0, nil, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan, "unsupported binary operator", nil)
	}
}

func elementwise(a, b []scalar.Element, f func(scalar.Element, scalar.Element) scalar.Element) []scalar.Element {
	out := make([]scalar.Element, len(a))
	for i := range out {
		out[i] = f(a[i], b[i])
	}
	return out
}

// evalEq derives the 0/1 indicator for diff==0 purely from already-
// computed values (no inverse needed) — used to keep Neq's output in
// sync with Eq's without recomputing the IsZero gadget's witness twice.
func evalEq(diff []scalar.Element) []scalar.Element {
	out := make([]scalar.Element, len(diff))
	for i, d := range diff {
		if d.IsZero() {
			out[i] = scalar.One
		}
	}
	return out
}

// comparisonVec computes Lt/Le/Gt/Ge row-by-row using the same §4.2
// decimal-aware rule evalComparison uses, returning raw 0/1 field
// elements (NULL already degraded to a type default by ownedVec's
// caller, consistent with the constraint-path's resolved Open Question).
func comparisonVec(op ast.BinaryOp, lvec []scalar.Element, lt coltype.Type, rvec []scalar.Element, rt coltype.Type) ([]scalar.Element, coltype.Type, error) {
	delta, widerIsLeft := coltype.EqualityScaleDelta(lt, rt)
	pl, ls, lok := coltype.DecimalPrecisionScale(lt)
	pr, rs, rok := coltype.DecimalPrecisionScale(rt)
	if !lok || !rok {
		return nil, coltype.Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch, "ordering requires numeric operands", nil)
	}
	narrowPrecision := pl
	if widerIsLeft {
		narrowPrecision = pr
	}
	out := make([]scalar.Element, len(lvec))
	for i := range out {
		lv, rv := lvec[i].SignedBigInt(), rvec[i].SignedBigInt()
		var cmp int
		if delta > narrowPrecision {
			cmp = sign3(lv.Sign()) - sign3(rv.Sign())
		} else {
			lsv, rsv := lv, rv
			if widerIsLeft {
				rsv = scaleTo(rv, rs, ls)
			} else {
				lsv = scaleTo(lv, ls, rs)
			}
			cmp = lsv.Cmp(rsv)
		}
		var b bool
		switch op {
		case ast.Lt:
			b = cmp < 0
		case ast.Le:
			b = cmp <= 0
		case ast.Gt:
			b = cmp > 0
		case ast.Ge:
			b = cmp >= 0
		}
		if b {
			out[i] = scalar.One
		}
	}
	return out, coltype.Simple(coltype.Boolean), nil
}

func divVec(lvec []scalar.Element, lt coltype.Type, rvec []scalar.Element, rt coltype.Type) ([]scalar.Element, coltype.Type, error) {
	resType, err := coltype.ResultType(coltype.OpDiv, lt, rt)
	if err != nil {
		return nil, coltype.Type{}, err
	}
	_, ls, _ := coltype.DecimalPrecisionScale(lt)
	_, rs, _ := coltype.DecimalPrecisionScale(rt)
	_, resScale, _ := coltype.DecimalPrecisionScale(resType)
	out := make([]scalar.Element, len(lvec))
	for i := range out {
		lv, rv := lvec[i].SignedBigInt(), rvec[i].SignedBigInt()
		if rv.Sign() == 0 {
			return nil, coltype.Type{}, qerror.NewQueryError(qerror.KindDivisionByZero, "division by zero", nil)
		}
		num := new(big.Int).Mul(lv, pow10Big(int(rs)+int(resScale)))
		den := new(big.Int).Mul(rv, pow10Big(int(ls)))
		out[i] = scalar.TryFromBigInt(floorDiv(num, den))
	}
	return out, resType, nil
}
