package mono

import (
	"slices"
	"sync"

	"tessel/internal/types"
)

// Registry memoizes the instantiations of one template. Lookups and
// insertions are serialized by its own mutex, so distinct templates never
// contend.
type Registry struct {
	mu       sync.Mutex
	template *types.Decl
	byKey    map[string]*types.Decl
	order    []*types.Decl
}

func newRegistry(template *types.Decl) *Registry {
	return &Registry{template: template, byKey: make(map[string]*types.Decl)}
}

// Template returns the declaration this registry belongs to.
func (r *Registry) Template() *types.Decl { return r.template }

// Lookup returns the instantiation stored under key.
func (r *Registry) Lookup(key string) (*types.Decl, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byKey[key]
	return d, ok
}

// loadOrCreate returns the instantiation for key, calling create under the
// lock when it is missing. created reports whether create ran.
func (r *Registry) loadOrCreate(key string, create func() *types.Decl) (d *types.Decl, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byKey[key]; ok {
		return d, false
	}
	d = create()
	r.byKey[key] = d
	r.order = append(r.order, d)
	return d, true
}

func (r *Registry) drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byKey[key]
	if !ok {
		return
	}
	delete(r.byKey, key)
	r.order = slices.DeleteFunc(r.order, func(x *types.Decl) bool { return x == d })
}

// Len returns the number of cached instantiations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Instances returns the cached instantiations in creation order.
func (r *Registry) Instances() []*types.Decl {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}
