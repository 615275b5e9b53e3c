package payload

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/klingnet-dex/pkg/types"
)

// Registry errors.
var (
	ErrUnknownType   = errors.New("unknown payload type")
	ErrDuplicateType = errors.New("payload type already registered")
)

// DecodeFunc decodes payload bytes into a concrete value.
type DecodeFunc func(p Payload) (any, error)

type registryEntry struct {
	name   string
	decode DecodeFunc
}

// Registry maps type tags to names and decoders, for code that must handle
// payloads whose static type it does not know (tooling, logs).
type Registry struct {
	mu      sync.RWMutex
	entries map[types.TypeID]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[types.TypeID]registryEntry)}
}

// Register adds a tag. Registering a tag twice is an error.
func (r *Registry) Register(id types.TypeID, name string, decode DecodeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrDuplicateType, id, prev.name)
	}
	r.entries[id] = registryEntry{name: name, decode: decode}
	return nil
}

// RegisterType registers T under its own tag with an Extract-based decoder.
func RegisterType[T Data, PT interface {
	*T
	Decoder
}](r *Registry, name string) error {
	var zero T
	return r.Register(zero.TypeID(), name, func(p Payload) (any, error) {
		return Extract[T, PT](p)
	})
}

// Name returns the registered name for a tag.
func (r *Registry) Name(id types.TypeID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.name, ok
}

// Decode decodes p with the decoder registered for its tag.
func (r *Registry) Decode(p Payload) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[p.TypeID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, p.TypeID)
	}
	return e.decode(p)
}

// Types returns all registered tags in byte order.
func (r *Registry) Types() []types.TypeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.TypeID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
	return ids
}
