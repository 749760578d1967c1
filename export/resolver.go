package export

import "sync"

// Resolver maps an export type to a strategy of type T, with a single
// default strategy for types nothing was registered for. Resolve never
// fails: unknown types silently degrade to the default.
//
// One Resolver exists per concern (validation, command building, config
// mapping) rather than a single aggregate resolver, so registering a new
// export type never touches existing strategies.
type Resolver[T any] struct {
	mu         sync.RWMutex
	strategies map[Type]T
	fallback   T
}

// NewResolver creates a Resolver with the given default strategy.
func NewResolver[T any](fallback T) *Resolver[T] {
	return &Resolver[T]{
		strategies: make(map[Type]T),
		fallback:   fallback,
	}
}

// Register binds a strategy to an export type, replacing any previous
// binding for that type.
func (r *Resolver[T]) Register(t Type, s T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[t] = s
}

// Resolve returns the strategy registered for t, or the default when none
// is. Repeated calls for the same type always return the same strategy.
func (r *Resolver[T]) Resolve(t Type) T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[t]; ok {
		return s
	}
	return r.fallback
}

// Types returns all export types with an explicitly registered strategy.
func (r *Resolver[T]) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.strategies))
	for t := range r.strategies {
		types = append(types, t)
	}
	return types
}
