package overload

import (
	"math"

	"tessel/internal/coerce"
	"tessel/internal/types"
)

// Scoring weights. Their relative order decides which overload wins, so
// they are fixed.
const (
	scoreExact         = 1.0
	scoreBoundGeneric  = 0.75
	scoreWidening      = 0.9
	scorePrimInterface = 0.8
	scoreBoxed         = 0.8
	scoreBoxedDecay    = 0.7
	scoreNull          = 0.9
	scoreSubtypeDecay  = 0.999
	scoreCovariant     = 0.8
	scoreAvatarArg     = 0.72
	scoreVariadic      = 0.98

	// additional cells outside the main rubric
	scoreAny     = 0.5
	scoreUnboxed = 0.8
	scoreEnum    = 0.9
)

// paramScore rates passing a value of type arg to a parameter of type param
// that is not one of the candidate's own generic parameters. Zero means
// not applicable.
func (r *Resolver) paramScore(param, arg types.TypeID) float64 {
	in := r.in
	b := in.Builtins()
	if param == arg {
		return scoreExact
	}
	if param == b.Any {
		return scoreAny
	}
	if in.IsAvatar(param) {
		return r.contextAvatarScore(param, arg)
	}
	pp, paramPrim := in.PrimOf(param)
	ap, argPrim := in.PrimOf(arg)
	switch {
	case argPrim && paramPrim:
		if coerce.Widens(ap, pp) {
			return scoreWidening
		}
		return 0
	case argPrim && in.IsPrimitiveFamily(param):
		if in.PrimSet(param)&ap.Mask() != 0 {
			return scorePrimInterface
		}
		return 0
	case argPrim:
		d, ok := in.AncestorDistance(b.Wrapper(ap), param)
		if !ok {
			return 0
		}
		return scoreBoxed * math.Pow(scoreBoxedDecay, float64(d))
	case paramPrim:
		if q, boxed := in.BoxedPrim(arg); boxed && coerce.Widens(q, pp) {
			return scoreUnboxed
		}
		if d := in.DeclOf(arg); d != nil && d.Kind == types.DeclEnum && d.EnumBase == pp {
			return scoreEnum
		}
		return 0
	case arg == b.Null:
		if in.IsSubtype(b.Null, param) {
			return scoreNull
		}
		return 0
	}
	d, ok := in.AncestorDistance(arg, param)
	if !ok {
		return 0
	}
	return math.Pow(scoreSubtypeDecay, float64(max(d, 1)))
}

// contextAvatarScore rates an argument against a generic parameter of an
// enclosing template that is already bound in the calling context.
func (r *Resolver) contextAvatarScore(param, arg types.TypeID) float64 {
	p, ok := r.in.Param(param)
	if !ok {
		return 0
	}
	if !r.in.IsThatOrSuperOfThat(p.Bound, arg) {
		return 0
	}
	if p.Variance == types.Covariant {
		s := scoreCovariant
		if r.in.IsAvatar(arg) {
			s *= scoreAvatarArg
		}
		return s
	}
	return scoreBoundGeneric
}
