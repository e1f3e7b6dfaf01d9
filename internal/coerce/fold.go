package coerce

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tessel/internal/hir"
	"tessel/internal/source"
	"tessel/internal/types"
)

// fold rewrites coercions of constants into constants.
func (e *Engine) fold(x *hir.Expr) *hir.Expr {
	switch d := x.Data.(type) {
	case hir.ConvData:
		lit, ok := hir.IsLiteral(d.Value)
		if !ok {
			return x
		}
		if v, ok := convertValue(lit, d.To); ok {
			if d.To == types.PrimString {
				v.Str = norm.NFC.String(v.Str)
			}
			return hir.Lit(x.Type, v, x.Span)
		}
	case hir.UnboxData:
		inner := d.Value
		if m, ok := inner.Data.(hir.MaskData); ok && inner.Kind == hir.ExprWearMask {
			inner = m.Value
		}
		if b, ok := inner.Data.(hir.BoxData); ok && b.Mode == hir.BoxPlain && b.Prim == d.Prim {
			if lit, ok := hir.IsLiteral(b.Value); ok {
				return hir.Lit(x.Type, lit, x.Span)
			}
		}
	case hir.MaskData:
		if x.Kind == hir.ExprWearMask {
			if lit, ok := hir.IsLiteral(d.Value); ok && e.in.MustClassify(x.Type).PrimitiveKind() {
				return hir.Lit(x.Type, lit, x.Span)
			}
		}
	}
	return x
}

// FoldArith computes l op r for constants of the same numeric kind. It
// declines integer division by zero, which is left to run time.
func FoldArith(op hir.BinaryOp, l, r hir.Value) (hir.Value, bool) {
	p := l.Prim
	if p != r.Prim || !p.IsNumeric() {
		return hir.Value{}, false
	}
	if p.IsFloat() {
		a, b := l.Float, r.Float
		var v float64
		switch op {
		case hir.OpAdd:
			v = a + b
		case hir.OpSub:
			v = a - b
		case hir.OpMul:
			v = a * b
		case hir.OpDiv:
			v = a / b
		case hir.OpMod:
			v = math.Mod(a, b)
		default:
			return hir.Value{}, false
		}
		return hir.FloatValue(p, v), true
	}
	a, b := l.Int, r.Int
	var v int64
	switch op {
	case hir.OpAdd:
		v = a + b
	case hir.OpSub:
		v = a - b
	case hir.OpMul:
		v = a * b
	case hir.OpDiv, hir.OpMod:
		if b == 0 {
			return hir.Value{}, false
		}
		if b == -1 {
			// avoids the MinInt64 / -1 trap; wrapping gives the same result
			if op == hir.OpDiv {
				v = -a
			}
			break
		}
		if op == hir.OpDiv {
			v = a / b
		} else {
			v = a % b
		}
	default:
		return hir.Value{}, false
	}
	return hir.IntValue(p, v), true
}

// FoldCompare computes an ordering comparison of two constants.
func FoldCompare(op hir.BinaryOp, l, r hir.Value) (hir.Value, bool) {
	if l.Prim != r.Prim {
		return hir.Value{}, false
	}
	var c int
	switch {
	case l.Prim == types.PrimString:
		c = strings.Compare(l.Str, r.Str)
	case l.Prim.IsFloat():
		if math.IsNaN(l.Float) || math.IsNaN(r.Float) {
			return hir.BoolValue(false), true
		}
		c = cmpOrdered(l.Float, r.Float)
	case l.Prim.IsInteger():
		c = cmpOrdered(l.Int, r.Int)
	default:
		return hir.Value{}, false
	}
	switch op {
	case hir.OpLt:
		return hir.BoolValue(c < 0), true
	case hir.OpLe:
		return hir.BoolValue(c <= 0), true
	case hir.OpGt:
		return hir.BoolValue(c > 0), true
	case hir.OpGe:
		return hir.BoolValue(c >= 0), true
	}
	return hir.Value{}, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FoldEqual computes == or != of two constants.
func FoldEqual(op hir.BinaryOp, l, r hir.Value) (hir.Value, bool) {
	if l.Prim != r.Prim {
		return hir.Value{}, false
	}
	eq := l.Equal(r)
	if op == hir.OpNe {
		eq = !eq
	}
	return hir.BoolValue(eq), true
}

// Concat builds a string concatenation of parts, which must already be
// string-typed. Nested concatenations are flattened, empty string
// constants are dropped and adjacent constants are merged.
func (e *Engine) Concat(parts []*hir.Expr, sp source.Span) *hir.Expr {
	strT := e.b.Prim(types.PrimString)
	flat := make([]*hir.Expr, 0, len(parts))
	for _, p := range parts {
		if p.Kind == hir.ExprConcat {
			flat = append(flat, p.Data.(hir.ConcatData).Parts...)
			continue
		}
		if lit, ok := hir.IsLiteral(p); ok && lit.Prim == types.PrimString && lit.Str == "" {
			continue
		}
		flat = append(flat, p)
	}
	merged := make([]*hir.Expr, 0, len(flat))
	for _, p := range flat {
		if n := len(merged); n > 0 {
			prev, ok1 := hir.IsLiteral(merged[n-1])
			cur, ok2 := hir.IsLiteral(p)
			if ok1 && ok2 {
				s := norm.NFC.String(prev.Str + cur.Str)
				merged[n-1] = hir.Lit(strT, hir.StringValue(s), merged[n-1].Span.Cover(p.Span))
				continue
			}
		}
		merged = append(merged, p)
	}
	switch len(merged) {
	case 0:
		return hir.Lit(strT, hir.StringValue(""), sp)
	case 1:
		return merged[0]
	}
	return &hir.Expr{Kind: hir.ExprConcat, Type: strT, Span: sp, Data: hir.ConcatData{Parts: merged}}
}
