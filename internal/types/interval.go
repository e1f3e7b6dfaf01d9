package types

// Bounds returns the lower and upper bound of an interval. Any other type
// is its own degenerate interval.
func (in *Interner) Bounds(id TypeID) (lower, upper TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		return NoTypeID, NoTypeID
	}
	if tt.Kind == KindInterval {
		return tt.Lower, tt.Upper
	}
	return id, id
}

// IsWildcard reports whether id is the (Any, Any) interval.
func (in *Interner) IsWildcard(id TypeID) bool {
	return id == in.builtins.Wildcard
}

// IsThatOrSuperOfThat reports whether candidate fits inside the interval
// bound. The wildcard accepts anything. An interval candidate must lie
// within the bound: its lower side contravariantly, its upper side
// covariantly.
func (in *Interner) IsThatOrSuperOfThat(bound, candidate TypeID) bool {
	if in.IsWildcard(bound) {
		return true
	}
	lower, upper := in.Bounds(bound)
	anyT := in.builtins.Any
	ct, ok := in.Lookup(candidate)
	if !ok {
		return false
	}
	switch ct.Kind {
	case KindInterval:
		lowerOK := lower == anyT || (ct.Lower != anyT && in.IsSubtype(lower, ct.Lower))
		upperOK := upper == anyT || (ct.Upper != anyT && in.IsSubtype(ct.Upper, upper))
		return lowerOK && upperOK
	case KindAvatar:
		p, ok := in.Param(candidate)
		return ok && in.IsThatOrSuperOfThat(bound, p.Bound)
	case KindPrimitive:
		if in.IsPrimitiveFamily(upper) {
			return in.PrimSet(upper)&ct.Prim.Mask() != 0
		}
		if lower == anyT && upper == anyT {
			return true
		}
		return in.IsThatOrSuperOfThat(bound, in.builtins.Wrapper(ct.Prim))
	case KindAny:
		return upper == anyT && lower == anyT
	}
	if in.IsPrimitiveFamily(upper) {
		return false
	}
	lowerOK := lower == anyT || in.IsSubtype(lower, candidate)
	upperOK := upper == anyT || in.IsSubtype(candidate, upper)
	return lowerOK && upperOK
}
