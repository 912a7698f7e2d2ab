package deferred

import (
	"fmt"
	"sync"

	"github.com/aretw0/canvass/pkg/domain"
)

// Constructor rebuilds a concrete operation from its serialized ref.
type Constructor func(ref domain.OperationRef) (Operation, error)

// Codec maps operation type tags to constructors. The engine core stays
// closed over operation identity while remaining open to new operation kinds:
// hosts register constructors for the tags they use, and restore decodes
// snapshot refs through the codec.
type Codec struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewCodec creates an empty codec.
func NewCodec() *Codec {
	return &Codec{ctors: make(map[string]Constructor)}
}

// Register adds a constructor for a type tag, overwriting any previous one.
func (c *Codec) Register(tag string, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[tag] = ctor
}

// Decode rebuilds the operation for a ref. An unregistered tag is an error:
// a restored session must not silently lose its pending effects.
func (c *Codec) Decode(ref domain.OperationRef) (Operation, error) {
	c.mu.RLock()
	ctor, ok := c.ctors[ref.Type]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no constructor registered for deferred operation type %q", ref.Type)
	}
	return ctor(ref)
}
