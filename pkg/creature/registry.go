package creature

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when a creature is not registered.
	ErrNotFound = errors.New("creature: not found")

	// ErrInvalidCreature is returned when registering a creature without a name.
	ErrInvalidCreature = errors.New("creature: invalid creature")
)

// Registry maps creature names to creatures, remembering registration order.
type Registry struct {
	mu        sync.RWMutex
	creatures map[string]*Creature
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		creatures: make(map[string]*Creature),
	}
}

// Builtin returns a registry holding blob, ghost and bug.
func Builtin() *Registry {
	r := NewRegistry()
	for _, c := range []*Creature{Blob(), Ghost(), Bug()} {
		_ = r.Register(c)
	}
	return r
}

// Register adds a creature, replacing any creature with the same name
// while keeping its original position in the cycle order.
func (r *Registry) Register(c *Creature) error {
	if c == nil || c.Name == "" {
		return ErrInvalidCreature
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.creatures[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.creatures[c.Name] = c
	return nil
}

// Get retrieves a creature by name.
func (r *Registry) Get(name string) (*Creature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.creatures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// List returns creature names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Default returns the first registered creature name, or "".
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// Next returns the creature after name in registration order, wrapping
// around. An unknown name yields the first creature.
func (r *Registry) Next(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return ""
	}
	for i, n := range r.order {
		if n == name {
			return r.order[(i+1)%len(r.order)]
		}
	}
	return r.order[0]
}

// Count returns the number of registered creatures.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Descriptions returns name -> description for every creature.
func (r *Registry) Descriptions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.creatures))
	for name, c := range r.creatures {
		out[name] = c.Description
	}
	return out
}
