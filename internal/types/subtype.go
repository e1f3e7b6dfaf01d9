package types

// IsSubtype reports whether a reference of type sub can stand where sup is
// expected without conversion.
func (in *Interner) IsSubtype(sub, sup TypeID) bool {
	_, ok := in.AncestorDistance(sub, sup)
	return ok
}

// AncestorDistance returns the number of inheritance steps from sub up to
// sup. Instantiations of the same template match at the step where their
// arguments are variance-compatible.
func (in *Interner) AncestorDistance(sub, sup TypeID) (int, bool) {
	if sub == sup {
		return 0, sub != NoTypeID
	}
	st, ok1 := in.Lookup(sub)
	sp, ok2 := in.Lookup(sup)
	if !ok1 || !ok2 {
		return 0, false
	}
	if sp.Kind == KindInterval {
		if in.IsThatOrSuperOfThat(sup, sub) {
			return 1, true
		}
		return 0, false
	}
	switch st.Kind {
	case KindNull:
		return 1, in.isReference(sp)
	case KindAvatar:
		p, ok := in.Param(sub)
		if !ok {
			return 0, false
		}
		_, upper := in.Bounds(p.Bound)
		if upper == in.builtins.Any || in.IsPrimitiveFamily(upper) {
			return 0, false
		}
		d, ok := in.AncestorDistance(upper, sup)
		return d + 1, ok
	case KindInterval:
		if st.Upper == in.builtins.Any {
			return 0, false
		}
		return in.AncestorDistance(st.Upper, sup)
	case KindArray, KindFunc:
		if sup == in.builtins.Object {
			return 1, true
		}
		return 0, false
	case KindObject:
		if sp.Kind != KindObject {
			return 0, false
		}
		return in.walkAncestors(sub, sup)
	}
	return 0, false
}

func (in *Interner) isReference(t Type) bool {
	switch t.Kind {
	case KindObject:
		d := in.Decl(t.Decl)
		return d != nil && d.Kind != DeclPrimInterface
	case KindArray, KindFunc, KindInterval, KindNull:
		return true
	}
	return false
}

type ancestorStep struct {
	id   TypeID
	dist int
}

func (in *Interner) walkAncestors(sub, sup TypeID) (int, bool) {
	seen := map[TypeID]bool{sub: true}
	queue := []ancestorStep{{sub, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if in.sameFamilyCompatible(cur.id, sup) {
			return cur.dist, true
		}
		for _, next := range in.directAncestors(cur.id) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, ancestorStep{next, cur.dist + 1})
			}
		}
	}
	return 0, false
}

// directAncestors returns the parent and interfaces of an object type; a
// class without explicit parent inherits from the root object.
func (in *Interner) directAncestors(id TypeID) []TypeID {
	d := in.DeclOf(id)
	if d == nil || d.ID == in.builtins.ObjectDecl {
		return nil
	}
	out := make([]TypeID, 0, 1+len(d.Interfaces))
	if d.Parent != NoTypeID {
		out = append(out, d.Parent)
	} else if d.Kind != DeclPrimInterface {
		out = append(out, in.builtins.Object)
	}
	return append(out, d.Interfaces...)
}

func (in *Interner) sameFamilyCompatible(a, b TypeID) bool {
	if a == b {
		return true
	}
	da, db := in.DeclOf(a), in.DeclOf(b)
	if da == nil || db == nil || da.Family() != db.Family() {
		return false
	}
	template := in.Decl(da.Family())
	return in.ArgsCompatible(template, da.Args, db.Args)
}

// ArgsCompatible decides whether an instantiation with args from can stand
// in for one with args to, following each parameter's variance.
func (in *Interner) ArgsCompatible(template *Decl, from, to []Slot) bool {
	if template == nil || len(from) != len(to) || len(from) == 0 {
		return false
	}
	for i := range from {
		f, t := from[i], to[i]
		if f.Owner != t.Owner || f.Index != t.Index {
			return false
		}
		owner := in.Decl(f.Owner)
		if owner == nil || int(f.Index) >= len(owner.Params) {
			return false
		}
		if !in.VarianceAccepts(owner.Params[f.Index].Variance, f.Type, t.Type) {
			return false
		}
	}
	return true
}

// VarianceAccepts checks one argument pair: invariant requires identity,
// covariant requires the target to be a supertype, contravariant the reverse.
func (in *Interner) VarianceAccepts(v Variance, from, to TypeID) bool {
	if from == to {
		return true
	}
	switch v {
	case Covariant:
		return in.IsSubtype(from, to)
	case Contravariant:
		return in.IsSubtype(to, from)
	default:
		return false
	}
}
