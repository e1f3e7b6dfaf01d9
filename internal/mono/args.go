package mono

import (
	"slices"
	"strconv"
	"strings"

	"tessel/internal/types"
)

// Args maps generic parameter slots (owner template, index) to types. Slots
// are kept sorted by owner and index and are unique, so two Args with the
// same mapping share the same Key.
type Args struct {
	slots []types.Slot
}

// NewArgs builds Args from slots; a later slot for the same parameter
// replaces an earlier one.
func NewArgs(slots ...types.Slot) Args {
	out := make([]types.Slot, 0, len(slots))
	for _, s := range slots {
		i, found := slices.BinarySearchFunc(out, s, compareSlot)
		if found {
			out[i] = s
			continue
		}
		out = slices.Insert(out, i, s)
	}
	return Args{slots: out}
}

func compareSlot(a, b types.Slot) int {
	if a.Owner != b.Owner {
		if a.Owner < b.Owner {
			return -1
		}
		return 1
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	}
	return 0
}

// ArgsFor maps the parameters of template, in declaration order, to tys.
// Extra types are ignored; missing ones leave the slot out.
func ArgsFor(in *types.Interner, template *types.Decl, tys ...types.TypeID) Args {
	slots := make([]types.Slot, 0, len(tys))
	for i, p := range template.Params {
		if i >= len(tys) {
			break
		}
		owner, idx, ok := in.SlotOf(p.Avatar)
		if !ok {
			continue
		}
		slots = append(slots, types.Slot{Owner: owner, Index: idx, Type: tys[i]})
	}
	return NewArgs(slots...)
}

// Len returns the number of mapped slots.
func (a Args) Len() int { return len(a.slots) }

// Slots returns a copy of the mapped slots in canonical order.
func (a Args) Slots() []types.Slot { return slices.Clone(a.slots) }

// Types returns the mapped types in canonical order.
func (a Args) Types() []types.TypeID {
	out := make([]types.TypeID, len(a.slots))
	for i, s := range a.slots {
		out[i] = s.Type
	}
	return out
}

// Lookup returns the type mapped to the parameter (owner, index).
func (a Args) Lookup(owner types.DeclID, index uint32) (types.TypeID, bool) {
	i, found := slices.BinarySearchFunc(a.slots, types.Slot{Owner: owner, Index: index}, compareSlot)
	if !found {
		return types.NoTypeID, false
	}
	return a.slots[i].Type, true
}

// Key is the canonical memoization key.
func (a Args) Key() string {
	var sb strings.Builder
	for i, s := range a.slots {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(s.Owner), 10))
		sb.WriteByte('.')
		sb.WriteString(strconv.FormatUint(uint64(s.Index), 10))
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatUint(uint64(s.Type), 10))
	}
	return sb.String()
}

// Equal compares canonical keys.
func (a Args) Equal(b Args) bool { return a.Key() == b.Key() }

// Merge returns a combined mapping; b wins on conflicts.
func (a Args) Merge(b Args) Args {
	return NewArgs(append(a.Slots(), b.slots...)...)
}

// TakeFor projects the slots that belong to template's own parameters.
// It reports false when none apply.
func (a Args) TakeFor(in *types.Interner, template *types.Decl) (Args, bool) {
	if template == nil {
		return Args{}, false
	}
	var out []types.Slot
	for _, p := range template.Params {
		owner, idx, ok := in.SlotOf(p.Avatar)
		if !ok {
			continue
		}
		if ty, found := a.Lookup(owner, idx); found {
			out = append(out, types.Slot{Owner: owner, Index: idx, Type: ty})
		}
	}
	if len(out) == 0 {
		return Args{}, false
	}
	return NewArgs(out...), true
}

// IsIntermediate reports whether some slot maps to a generic parameter avatar.
func (a Args) IsIntermediate(in *types.Interner) bool {
	for _, s := range a.slots {
		if in.IsAvatar(s.Type) {
			return true
		}
	}
	return false
}

// HasIntermediateArgs reports whether some slot maps to a type that still
// mentions an avatar: an intermediate instantiation, an array or interval
// over an avatar.
func (a Args) HasIntermediateArgs(in *types.Interner) bool {
	for _, s := range a.slots {
		if !in.IsAvatar(s.Type) && mentionsAvatar(in, s.Type, 0) {
			return true
		}
	}
	return false
}

func mentionsAvatar(in *types.Interner, id types.TypeID, depth int) bool {
	if depth > maxDepth {
		return false
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindAvatar:
		return true
	case types.KindInterval:
		return mentionsAvatar(in, tt.Lower, depth+1) || mentionsAvatar(in, tt.Upper, depth+1)
	case types.KindArray:
		return mentionsAvatar(in, tt.Elem, depth+1)
	case types.KindObject, types.KindFunc:
		d := in.Decl(tt.Decl)
		return d != nil && d.Intermediate
	}
	return false
}
