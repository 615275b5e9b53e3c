package constraint

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	ErrUnknownChecker   = errors.New("unknown checker")
	ErrDuplicateChecker = errors.New("checker already registered")
)

// Registry maps the checker tag a transaction declares to its Checker.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register binds tag to c.
func (r *Registry) Register(tag string, c Checker) error {
	if tag == "" {
		return fmt.Errorf("register checker: empty tag")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.checkers[tag]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, tag)
	}
	r.checkers[tag] = c
	return nil
}

// MustRegister is like Register but panics on error. For static wiring.
func (r *Registry) MustRegister(tag string, c Checker) {
	if err := r.Register(tag, c); err != nil {
		panic(err)
	}
}

// Lookup returns the checker bound to tag.
func (r *Registry) Lookup(tag string) (Checker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.checkers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChecker, tag)
	}
	return c, nil
}

// Kinds returns all registered tags, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.checkers))
	for tag := range r.checkers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
