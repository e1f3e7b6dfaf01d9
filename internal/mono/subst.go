package mono

import (
	"tessel/internal/source"
	"tessel/internal/types"
)

type substituter struct {
	e    *Engine
	args Args
	sp   source.Span
}

// typ replaces every avatar mapped by args inside id. Instantiations and
// templates mentioned by id are re-instantiated with the substituted
// arguments.
func (s substituter) typ(id types.TypeID) (types.TypeID, error) {
	in := s.e.in
	tt, ok := in.Lookup(id)
	if !ok {
		return id, nil
	}
	switch tt.Kind {
	case types.KindAvatar:
		if rep, found := s.args.Lookup(tt.Decl, tt.Index); found {
			return rep, nil
		}
	case types.KindInterval:
		lo, err := s.typ(tt.Lower)
		if err != nil {
			return types.NoTypeID, err
		}
		hi, err := s.typ(tt.Upper)
		if err != nil {
			return types.NoTypeID, err
		}
		return in.Interval(lo, hi), nil
	case types.KindArray:
		elem, err := s.typ(tt.Elem)
		if err != nil {
			return types.NoTypeID, err
		}
		return in.Array(elem), nil
	case types.KindObject, types.KindFunc:
		d := in.Decl(tt.Decl)
		switch {
		case d == nil:
		case d.IsInstance() && len(d.Args) > 0:
			return s.instance(d)
		case d.IsTemplate():
			if own, found := s.args.TakeFor(in, d); found {
				inst, err := s.e.Instantiate(d, own, s.sp)
				if err != nil {
					return types.NoTypeID, err
				}
				return inst.Self, nil
			}
		}
	}
	return id, nil
}

func (s substituter) instance(d *types.Decl) (types.TypeID, error) {
	changed := false
	slots := make([]types.Slot, len(d.Args))
	for i, a := range d.Args {
		ty, err := s.typ(a.Type)
		if err != nil {
			return types.NoTypeID, err
		}
		changed = changed || ty != a.Type
		slots[i] = types.Slot{Owner: a.Owner, Index: a.Index, Type: ty}
	}
	if !changed {
		return d.Self, nil
	}
	inst, err := s.e.Instantiate(s.e.in.Decl(d.Template), NewArgs(slots...), s.sp)
	if err != nil {
		return types.NoTypeID, err
	}
	return inst.Self, nil
}

func (s substituter) signature(sig *types.Signature) error {
	var err error
	for i := range sig.Params {
		if sig.Params[i].Type, err = s.typ(sig.Params[i].Type); err != nil {
			return err
		}
	}
	if sig.Result != types.NoTypeID {
		sig.Result, err = s.typ(sig.Result)
	}
	return err
}
