package plan

import (
	"fmt"
	"math/big"

	"github.com/bits-and-blooms/bitset"

	"github.com/opaquelabs/veriql/ast"
	"github.com/opaquelabs/veriql/coltype"
	"github.com/opaquelabs/veriql/column"
	"github.com/opaquelabs/veriql/qerror"
	"github.com/opaquelabs/veriql/scalar"
)

// evalExpr evaluates a row-wise (non-aggregate) expression against t,
// applying NULL propagation as resolved in Design Notes §9: comparisons,
// arithmetic, and NOT all propagate NULL; IS NULL/IS NOT NULL/IS TRUE
// never produce NULL. ast.Aggregate is rejected here — only GroupBy (or
// a whole-table aggregate Project) evaluates aggregates, since they are
// not row-wise.
func evalExpr(e ast.Expr, t ScalarTable) (column.Nullable, coltype.Type, error) {
	switch x := e.(type) {
	case ast.Column:
		col, typ, ok := t.Column(x.Name)
		if !ok {
			return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindUnknownIdentifier,
				fmt.Sprintf("unknown column %q", x.Name), nil)
		}
		return col, typ, nil
	case ast.Literal:
		return literalColumn(x, t.NumRows)
	case ast.Binary:
		return evalBinary(x, t)
	case ast.Not:
		return evalNot(x, t)
	case ast.IsPredicate:
		return evalIsPredicate(x, t)
	case ast.Aggregate:
		return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan,
			"aggregate expression outside of GROUP BY/whole-table aggregation context", nil)
	default:
		return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan,
			fmt.Sprintf("unsupported expression %T", e), nil)
	}
}

// isNullLiteral reports whether e is the literal NULL constant, the only
// case evalBinary needs to special-case before reconciling operand types.
func isNullLiteral(e ast.Expr) bool {
	lit, ok := e.(ast.Literal)
	return ok && lit.Kind == ast.LitNull
}

// allNull builds an all-absent Nullable column of the given type and
// length — used for NULL literals standing alone and for any binary
// expression short-circuited by one.
func allNull(typ coltype.Type, n int) (column.Nullable, coltype.Type, error) {
	vals := make([]scalar.Element, n)
	owned, err := column.TryFromScalars(vals, typ)
	if err != nil {
		// Fall back to Scalar, representable by construction, for a type
		// that rejects an all-zero fill (there are none in this closed
		// type set, but this keeps allNull total rather than panicking).
		owned, _ = column.TryFromScalars(vals, coltype.Simple(coltype.Scalar))
		typ = coltype.Simple(coltype.Scalar)
	}
	nc, err := column.WithPresence(owned, bitset.New(uint(n)))
	return nc, typ, err
}

func literalColumn(lit ast.Literal, n int) (column.Nullable, coltype.Type, error) {
	if lit.Kind == ast.LitNull {
		return allNull(coltype.Simple(coltype.Boolean), n)
	}

	var typ coltype.Type
	var val scalar.Element
	switch lit.Kind {
	case ast.LitBool:
		typ = coltype.Simple(coltype.Boolean)
		if lit.BoolVal {
			val = scalar.One
		} else {
			val = scalar.Zero
		}
	case ast.LitInt128:
		bi, ok := new(big.Int).SetString(lit.IntVal, 10)
		if !ok {
			return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindI128OutOfRange,
				fmt.Sprintf("malformed integer literal %q", lit.IntVal), nil)
		}
		min128 := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
		max128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
		if bi.Cmp(min128) < 0 || bi.Cmp(max128) > 0 {
			return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindI128OutOfRange,
				fmt.Sprintf("%s out of range for i128", lit.IntVal), nil)
		}
		typ = coltype.Simple(coltype.Int128)
		val = scalar.TryFromBigInt(bi)
	case ast.LitDecimal:
		bi, ok := new(big.Int).SetString(lit.DecVal, 10)
		if !ok {
			return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidDecimal,
				fmt.Sprintf("malformed decimal literal %q", lit.DecVal), nil)
		}
		typ = lit.DecType
		val = scalar.TryFromBigInt(bi)
	case ast.LitString:
		typ = coltype.Simple(coltype.VarChar)
		val = scalar.FromByteSliceViaHash([]byte(lit.StrVal))
	default:
		return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan,
			fmt.Sprintf("unsupported literal kind %d", lit.Kind), nil)
	}

	vals := make([]scalar.Element, n)
	for i := range vals {
		vals[i] = val
	}
	var owned column.Owned
	var err error
	if lit.Kind == ast.LitString {
		owned = column.Owned{Type: typ, Strings: make([]string, n)}
		for i := range owned.Strings {
			owned.Strings[i] = lit.StrVal
		}
	} else {
		owned, err = column.TryFromScalars(vals, typ)
		if err != nil {
			return column.Nullable{}, coltype.Type{}, err
		}
	}
	return column.AllPresent(owned), typ, nil
}

// rowValue returns row i's signed integer value and NULL status. Every
// numeric/boolean/decimal kind shares a single integer embedding
// (ScalarAt's raw field value, recovered via its canonical signed
// representation), so arithmetic and comparisons are written once
// against big.Int rather than per fixed-width Go integer kind.
func rowValue(col column.Nullable, i int) (*big.Int, bool) {
	v, present := col.ScalarAt(i)
	if !present {
		return nil, false
	}
	return v.SignedBigInt(), true
}

func pow10Big(k int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(k)), nil)
}

// floorDiv computes floor(a/b) for possibly-negative a, using Go's
// truncating Quo/Rem and correcting toward negative infinity when the
// truncated quotient rounded the wrong way (nonzero remainder with
// differing signs).
func floorDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() != 0 && (r.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// scaleTo rescales v (declared at scale `from`) to scale `to`, always
// widening (to >= from per every caller's use of a type-algebra-derived
// target scale).
func scaleTo(v *big.Int, from, to int8) *big.Int {
	if to == from {
		return v
	}
	return new(big.Int).Mul(v, pow10Big(int(to)-int(from)))
}

func evalBinary(b ast.Binary, t ScalarTable) (column.Nullable, coltype.Type, error) {
	lc, lt, err := evalExpr(b.Left, t)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}
	rc, rt, err := evalExpr(b.Right, t)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}

	switch b.Op {
	case ast.And, ast.Or:
		return evalLogical(b.Op, lc, rc, t.NumRows)
	}

	// A literal NULL has no type of its own to reconcile with the other
	// operand via ResultType; short-circuit to an all-NULL column typed
	// from whichever side is non-NULL (arithmetic) or BOOLEAN (comparison)
	// instead of running the other side through the decimal-aware path.
	if isNullLiteral(b.Left) || isNullLiteral(b.Right) {
		switch b.Op {
		case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
			return allNull(coltype.Simple(coltype.Boolean), t.NumRows)
		default:
			otherType := lt
			if isNullLiteral(b.Left) {
				otherType = rt
			}
			return allNull(otherType, t.NumRows)
		}
	}

	op, err := binaryOpToColtype(b.Op)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}
	resType, err := coltype.ResultType(op, lt, rt)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}

	switch b.Op {
	case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return evalComparison(b.Op, lc, lt, rc, rt, t.NumRows)
	default:
		return evalArith(b.Op, lc, lt, rc, rt, resType, t.NumRows)
	}
}

func binaryOpToColtype(op ast.BinaryOp) (coltype.Op, error) {
	switch op {
	case ast.Add:
		return coltype.OpAdd, nil
	case ast.Sub:
		return coltype.OpSub, nil
	case ast.Mul:
		return coltype.OpMul, nil
	case ast.Div:
		return coltype.OpDiv, nil
	case ast.Eq:
		return coltype.OpEq, nil
	case ast.Neq:
		return coltype.OpNeq, nil
	case ast.Lt:
		return coltype.OpLt, nil
	case ast.Le:
		return coltype.OpLe, nil
	case ast.Gt:
		return coltype.OpGt, nil
	case ast.Ge:
		return coltype.OpGe, nil
	default:
		return 0, qerror.NewQueryError(qerror.KindInvalidPlan, "not a scalar-valued binary operator", nil)
	}
}

func evalLogical(op ast.BinaryOp, lc, rc column.Nullable, n int) (column.Nullable, coltype.Type, error) {
	out := make([]bool, n)
	pres := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		lv, lok := lc.ScalarAt(i)
		rv, rok := rc.ScalarAt(i)
		lTrue, lFalse := lok && lv.Equal(scalar.One), lok && lv.Equal(scalar.Zero)
		rTrue, rFalse := rok && rv.Equal(scalar.One), rok && rv.Equal(scalar.Zero)
		switch op {
		case ast.And:
			switch {
			case lFalse || rFalse:
				out[i] = false
				pres.Set(uint(i))
			case lTrue && rTrue:
				out[i] = true
				pres.Set(uint(i))
			default:
				// at least one side NULL, neither side false: NULL
			}
		case ast.Or:
			switch {
			case lTrue || rTrue:
				out[i] = true
				pres.Set(uint(i))
			case lFalse && rFalse:
				out[i] = false
				pres.Set(uint(i))
			default:
			}
		}
	}
	owned := column.Owned{Type: coltype.Simple(coltype.Boolean), Bools: out}
	nc, err := column.WithPresence(owned, pres)
	return nc, coltype.Simple(coltype.Boolean), err
}

func evalNot(nn ast.Not, t ScalarTable) (column.Nullable, coltype.Type, error) {
	oc, ot, err := evalExpr(nn.Operand, t)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}
	if ot.Kind != coltype.Boolean {
		return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			fmt.Sprintf("NOT requires BOOLEAN, got %s", ot), nil)
	}
	n := t.NumRows
	out := make([]bool, n)
	pres := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		v, ok := oc.ScalarAt(i)
		if !ok {
			continue
		}
		out[i] = v.Equal(scalar.Zero)
		pres.Set(uint(i))
	}
	owned := column.Owned{Type: coltype.Simple(coltype.Boolean), Bools: out}
	nc, err := column.WithPresence(owned, pres)
	return nc, coltype.Simple(coltype.Boolean), err
}

func evalIsPredicate(p ast.IsPredicate, t ScalarTable) (column.Nullable, coltype.Type, error) {
	oc, ot, err := evalExpr(p.Operand, t)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}
	n := t.NumRows
	out := make([]bool, n)
	switch p.Kind {
	case ast.IsNull:
		for i := 0; i < n; i++ {
			out[i] = oc.IsNull(i)
		}
	case ast.IsNotNull:
		for i := 0; i < n; i++ {
			out[i] = !oc.IsNull(i)
		}
	case ast.IsTrueKind:
		if ot.Kind != coltype.Boolean {
			return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
				fmt.Sprintf("IS TRUE requires BOOLEAN, got %s", ot), nil)
		}
		for i := 0; i < n; i++ {
			v, ok := oc.ScalarAt(i)
			out[i] = ok && v.Equal(scalar.One)
		}
	}
	return column.AllPresent(column.Owned{Type: coltype.Simple(coltype.Boolean), Bools: out}), coltype.Simple(coltype.Boolean), nil
}

func evalComparison(op ast.BinaryOp, lc column.Nullable, lt coltype.Type, rc column.Nullable, rt coltype.Type, n int) (column.Nullable, coltype.Type, error) {
	out := make([]bool, n)
	pres := bitset.New(uint(n))

	numeric := lt.IsNumeric() && rt.IsNumeric()
	var delta uint8
	var widerIsLeft bool
	var narrowPrecision uint8
	if numeric {
		delta, widerIsLeft = coltype.EqualityScaleDelta(lt, rt)
		pl, _, _ := coltype.DecimalPrecisionScale(lt)
		pr, _, _ := coltype.DecimalPrecisionScale(rt)
		if widerIsLeft {
			narrowPrecision = pr
		} else {
			narrowPrecision = pl
		}
	}

	for i := 0; i < n; i++ {
		lv, lok := rowValue(lc, i)
		rv, rok := rowValue(rc, i)
		if !numeric {
			lraw, lokRaw := lc.ScalarAt(i)
			rraw, rokRaw := rc.ScalarAt(i)
			if !lokRaw || !rokRaw {
				continue
			}
			eq := lraw.Equal(rraw)
			switch op {
			case ast.Eq:
				out[i] = eq
			case ast.Neq:
				out[i] = !eq
			default:
				return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
					"ordering requires numeric operands", nil)
			}
			pres.Set(uint(i))
			continue
		}
		if !lok || !rok {
			continue
		}
		var cmp int
		if delta > narrowPrecision {
			// §4.2: Δ exceeds the narrower side's precision — equality
			// collapses to "both are zero"; ordering falls back to sign.
			lz, rz := lv.Sign() == 0, rv.Sign() == 0
			switch op {
			case ast.Eq:
				out[i] = lz && rz
				pres.Set(uint(i))
				continue
			case ast.Neq:
				out[i] = !(lz && rz)
				pres.Set(uint(i))
				continue
			default:
				cmp = sign3(lv.Sign()) - sign3(rv.Sign())
			}
		} else {
			_, ls, _ := coltype.DecimalPrecisionScale(lt)
			_, rs, _ := coltype.DecimalPrecisionScale(rt)
			lsv, rsv := lv, rv
			if widerIsLeft {
				rsv = scaleTo(rv, rs, ls)
			} else {
				lsv = scaleTo(lv, ls, rs)
			}
			cmp = lsv.Cmp(rsv)
		}
		switch op {
		case ast.Eq:
			out[i] = cmp == 0
		case ast.Neq:
			out[i] = cmp != 0
		case ast.Lt:
			out[i] = cmp < 0
		case ast.Le:
			out[i] = cmp <= 0
		case ast.Gt:
			out[i] = cmp > 0
		case ast.Ge:
			out[i] = cmp >= 0
		}
		pres.Set(uint(i))
	}
	owned := column.Owned{Type: coltype.Simple(coltype.Boolean), Bools: out}
	nc, err := column.WithPresence(owned, pres)
	return nc, coltype.Simple(coltype.Boolean), err
}

func sign3(s int) int {
	if s > 0 {
		return 1
	}
	if s < 0 {
		return -1
	}
	return 0
}

func evalArith(op ast.BinaryOp, lc column.Nullable, lt coltype.Type, rc column.Nullable, rt coltype.Type, resType coltype.Type, n int) (column.Nullable, coltype.Type, error) {
	vals := make([]scalar.Element, n)
	pres := bitset.New(uint(n))

	_, ls, lok0 := coltype.DecimalPrecisionScale(lt)
	_, rs, rok0 := coltype.DecimalPrecisionScale(rt)
	if !lok0 || !rok0 {
		return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindOperatorTypeMismatch,
			"arithmetic requires numeric operands", nil)
	}
	_, resScale, _ := coltype.DecimalPrecisionScale(resType)

	for i := 0; i < n; i++ {
		lv, lok := rowValue(lc, i)
		rv, rok := rowValue(rc, i)
		if !lok || !rok {
			continue
		}
		var result *big.Int
		switch op {
		case ast.Add:
			result = new(big.Int).Add(scaleTo(lv, ls, resScale), scaleTo(rv, rs, resScale))
		case ast.Sub:
			result = new(big.Int).Sub(scaleTo(lv, ls, resScale), scaleTo(rv, rs, resScale))
		case ast.Mul:
			raw := new(big.Int).Mul(lv, rv)
			// raw is naturally at scale ls+rs; rescale to the (possibly
			// clamped) declared result scale.
			result = scaleToSigned(raw, int(ls)+int(rs), int(resScale))
		case ast.Div:
			if rv.Sign() == 0 {
				return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindDivisionByZero,
					"division by zero", nil)
			}
			// L/R at scale resScale: floor(lv * 10^(rs+resScale) / (rv * 10^ls)).
			num := new(big.Int).Mul(lv, pow10Big(int(rs)+int(resScale)))
			den := new(big.Int).Mul(rv, pow10Big(int(ls)))
			result = floorDiv(num, den)
		default:
			return column.Nullable{}, coltype.Type{}, qerror.NewQueryError(qerror.KindInvalidPlan, "not an arithmetic operator", nil)
		}
		vals[i] = scalar.TryFromBigInt(result)
		pres.Set(uint(i))
	}
	owned, err := column.TryFromScalars(vals, resType)
	if err != nil {
		return column.Nullable{}, coltype.Type{}, err
	}
	nc, err := column.WithPresence(owned, pres)
	return nc, resType, err
}

// scaleToSigned rescales v from scale `from` to scale `to`, supporting a
// negative delta (used when multiplication's natural ls+rs scale exceeds
// a clamped declared result scale): positive delta up-scales by
// multiplication, negative delta down-scales by floor division.
func scaleToSigned(v *big.Int, from, to int) *big.Int {
	if to == from {
		return v
	}
	if to > from {
		return new(big.Int).Mul(v, pow10Big(to-from))
	}
	return floorDiv(v, pow10Big(from-to))
}
