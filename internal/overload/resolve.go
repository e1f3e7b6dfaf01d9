// Package overload picks the best applicable callable among candidates and
// infers the generic arguments of the winner from the call's argument types.
package overload

import (
	"fmt"
	"slices"
	"strings"

	"tessel/internal/coerce"
	"tessel/internal/diag"
	"tessel/internal/hir"
	"tessel/internal/mono"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/types"
)

// Result is the evaluation of one candidate against a call's arguments.
type Result struct {
	Candidate *types.Decl
	// Func is the declaration to invoke: the generic instantiation of
	// Candidate when it is a template, Candidate otherwise.
	Func *types.Decl
	// Inferred maps the candidate's own avatars to the inferred types.
	Inferred map[types.TypeID]types.TypeID
	Score    float64
	// Folded is the number of arguments collected into the variadic array;
	// -1 when the variadic parameter receives an array argument directly.
	Folded int
	Err    error
}

// Resolver scores candidates and instantiates generic winners.
type Resolver struct {
	in     *types.Interner
	mono   *mono.Engine
	tracer trace.Tracer
}

// New creates a resolver.
func New(m *mono.Engine, tracer trace.Tracer) *Resolver {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Resolver{in: m.Interner(), mono: m, tracer: tracer}
}

// Resolve returns the single best candidate for args.
func (r *Resolver) Resolve(candidates []types.DeclID, args []*hir.Expr, sp source.Span) (Result, error) {
	ranked := r.Rank(candidates, args)
	var applicable []Result
	for _, res := range ranked {
		if res.Err == nil && res.Score > 0 {
			applicable = append(applicable, res)
		}
	}
	if len(applicable) == 0 {
		err := diag.Resolvef(diag.SemaNoOverload, sp, "no applicable overload for %s", r.callText(candidates, args))
		for _, res := range ranked {
			if res.Err != nil {
				err.WithNote(res.Candidate.Span, "%s: %v", r.in.Name(res.Candidate.Self), res.Err)
			}
		}
		return Result{}, err
	}
	if len(applicable) > 1 && applicable[0].Score == applicable[1].Score {
		a, b := applicable[0].Candidate, applicable[1].Candidate
		return Result{}, diag.Resolvef(diag.SemaAmbiguousOverload, sp,
			"ambiguous call: %s and %s both match with score %.4g",
			r.in.Name(a.Self), r.in.Name(b.Self), applicable[0].Score).
			WithNote(a.Span, "candidate %s", r.in.Name(a.Self)).
			WithNote(b.Span, "candidate %s", r.in.Name(b.Self))
	}
	win := applicable[0]
	if win.Candidate.IsTemplate() {
		if err := r.instantiateWinner(&win, sp); err != nil {
			return Result{}, err
		}
	}
	trace.Point(r.tracer, trace.ScopeNode, "resolve", r.in.Name(win.Func.Self))
	return win, nil
}

// Rank evaluates every candidate and orders them by descending score.
// Candidates with equal scores keep their declaration order.
func (r *Resolver) Rank(candidates []types.DeclID, args []*hir.Expr) []Result {
	out := make([]Result, 0, len(candidates))
	for _, id := range candidates {
		c := r.in.Decl(id)
		if c == nil || c.Kind != types.DeclFunc {
			panic(fmt.Errorf("overload: candidate %d is not a function", id))
		}
		out = append(out, r.Evaluate(c, args))
	}
	slices.SortStableFunc(out, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}

func (r *Resolver) instantiateWinner(win *Result, sp source.Span) error {
	c := win.Candidate
	var missing []string
	tys := make([]types.TypeID, len(c.Params))
	for i, p := range c.Params {
		ty, ok := win.Inferred[p.Avatar]
		if !ok {
			missing = append(missing, p.Name)
			continue
		}
		tys[i] = ty
	}
	if len(missing) > 0 {
		return diag.Resolvef(diag.SemaUninferredParams, sp,
			"cannot infer %s of %s from the arguments", strings.Join(missing, ", "), r.in.Name(c.Self))
	}
	inst, err := r.mono.Instantiate(c, mono.ArgsFor(r.in, c, tys...), sp)
	if err != nil {
		return err
	}
	win.Func = inst
	return nil
}

func (r *Resolver) callText(candidates []types.DeclID, args []*hir.Expr) string {
	name := "call"
	if len(candidates) > 0 {
		name = r.in.Decl(candidates[0]).Name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = r.in.Name(a.Type)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// Evaluate scores one candidate. The score is the mean of the per-argument
// scores; any inapplicable argument makes the whole candidate inapplicable.
func (r *Resolver) Evaluate(c *types.Decl, args []*hir.Expr) Result {
	res := Result{Candidate: c, Func: c, Inferred: make(map[types.TypeID]types.TypeID)}
	params := c.Sig.Params
	n := len(params)
	variadic := n > 0 && params[n-1].Variadic
	fixed := n
	if variadic {
		fixed = n - 1
	}
	if len(args) < fixed || (!variadic && len(args) != n) {
		res.Err = diag.Mismatchf(diag.SemaNoOverload, source.Span{},
			"expects %d argument(s), got %d", fixed, len(args))
		return res
	}

	inf := inference{r: r, owner: c, got: res.Inferred}
	scores := make([]float64, 0, len(args)+1)
	for i := 0; i < fixed; i++ {
		s, err := inf.score(params[i].Type, args[i].Type)
		if err != nil {
			res.Err = err
			return res
		}
		scores = append(scores, s)
	}
	if variadic {
		rest := args[fixed:]
		elem := params[fixed].Type
		arrT := r.in.Array(elem)
		direct := false
		if len(rest) == 1 {
			if k, _, _ := r.in.ElementOf(rest[0].Type); k == types.ContainerArray {
				s, err := inf.score(arrT, rest[0].Type)
				if err == nil && s > 0 {
					scores = append(scores, s)
					res.Folded = -1
					direct = true
				}
			}
		}
		if !direct {
			for _, a := range rest {
				s, err := inf.score(elem, a.Type)
				if err != nil {
					res.Err = err
					return res
				}
				scores = append(scores, s*scoreVariadic)
			}
			if len(rest) == 0 {
				scores = append(scores, scoreVariadic)
			}
			res.Folded = len(rest)
		}
	}

	var sum float64
	for i, s := range scores {
		if s == 0 {
			res.Err = diag.Mismatchf(diag.SemaTypeMismatch, source.Span{}, "argument %d does not match", i+1)
			return res
		}
		sum += s
	}
	if len(scores) == 0 {
		res.Score = scoreExact
	} else {
		res.Score = sum / float64(len(scores))
	}
	if err := inf.checkBounds(); err != nil {
		res.Err = err
		res.Score = 0
	}
	return res
}

// inference records the types observed for a candidate's own avatars.
type inference struct {
	r     *Resolver
	owner *types.Decl
	got   map[types.TypeID]types.TypeID
}

func (inf inference) isOwn(id types.TypeID) bool {
	owner, _, ok := inf.r.in.SlotOf(id)
	return ok && owner == inf.owner.ID
}

func (inf inference) score(param, arg types.TypeID) (float64, error) {
	if inf.isOwn(param) {
		if err := inf.record(param, arg); err != nil {
			return 0, err
		}
		return scoreBoundGeneric, nil
	}
	if ok, err := inf.match(param, arg); ok || err != nil {
		return scoreBoundGeneric, err
	}
	return inf.r.paramScore(param, arg), nil
}

// match infers through arrays and instantiations of one template that
// mention the candidate's avatars.
func (inf inference) match(param, arg types.TypeID) (bool, error) {
	in := inf.r.in
	pt, ok1 := in.Lookup(param)
	at, ok2 := in.Lookup(arg)
	if !ok1 || !ok2 {
		return false, nil
	}
	if pt.Kind == types.KindArray && at.Kind == types.KindArray {
		if inf.isOwn(pt.Elem) {
			return true, inf.record(pt.Elem, at.Elem)
		}
		return inf.match(pt.Elem, at.Elem)
	}
	pd, ad := in.DeclOf(param), in.DeclOf(arg)
	if pd == nil || ad == nil || !pd.IsInstance() || !ad.IsInstance() || pd.Family() != ad.Family() || len(pd.Args) != len(ad.Args) {
		return false, nil
	}
	matched := false
	for i, slot := range pd.Args {
		if inf.isOwn(slot.Type) {
			if err := inf.record(slot.Type, ad.Args[i].Type); err != nil {
				return true, err
			}
			matched = true
		}
	}
	return matched, nil
}

func (inf inference) record(avatar, ty types.TypeID) error {
	prev, seen := inf.got[avatar]
	switch {
	case !seen || prev == ty:
		inf.got[avatar] = ty
		return nil
	case inf.accepts(prev, ty):
		return nil
	case inf.accepts(ty, prev):
		inf.got[avatar] = ty
		return nil
	}
	p, _ := inf.r.in.Param(avatar)
	return diag.Resolvef(diag.SemaInferenceConflict, source.Span{},
		"conflicting types for %s: %s and %s", p.Name, inf.r.in.Name(prev), inf.r.in.Name(ty))
}

// accepts reports whether general can hold every value of specific.
func (inf inference) accepts(general, specific types.TypeID) bool {
	in := inf.r.in
	if p, ok := in.PrimOf(specific); ok {
		q, ok := in.PrimOf(general)
		return ok && coerce.Widens(p, q)
	}
	return in.IsSubtype(specific, general)
}

func (inf inference) checkBounds() error {
	for _, p := range inf.owner.Params {
		ty, ok := inf.got[p.Avatar]
		if !ok {
			continue
		}
		if !inf.r.in.IsThatOrSuperOfThat(p.Bound, ty) {
			return diag.Resolvef(diag.SemaBoundViolation, source.Span{},
				"inferred %s for %s violates bound %s", inf.r.in.Name(ty), p.Name, inf.r.in.Name(p.Bound))
		}
	}
	return nil
}
