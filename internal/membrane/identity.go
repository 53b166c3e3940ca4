package membrane

import (
	"reflect"
	"sync"

	"github.com/GriffinCanCode/membrane/internal/weakref"
)

// IdentityCache maps (object, side) to the object's counterpart on the other
// side. Adding a wrapper records both directions: the target keyed under the
// side it comes from, and the wrapper keyed under the side it lives on, so a
// wrapper crossing back yields its original target.
//
// Entries hold neither end alive. Objects that cannot be referenced weakly
// are kept in a strong table instead, and objects that are neither
// pointer-shaped nor comparable cannot be cached at all; see Cacheable.
type IdentityCache struct {
	sides  [2]*weakref.Map
	mu     sync.Mutex
	strong [2]map[Object]Object
}

// NewIdentityCache creates an empty cache.
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{
		sides:  [2]*weakref.Map{weakref.NewMap(), weakref.NewMap()},
		strong: [2]map[Object]Object{{}, {}},
	}
}

// Get returns the counterpart of obj, which lives on from.
func (c *IdentityCache) Get(obj Object, from Side) (Object, bool) {
	if v, ok := c.sides[from].Load(obj); ok {
		return v.(Object), true
	}
	if !reflect.ValueOf(obj).Comparable() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.strong[from][obj]
	return v, ok
}

// Cacheable reports whether obj can have an entry. Wrapping an object
// that is not cacheable yields a new wrapper every time.
func (c *IdentityCache) Cacheable(obj Object) bool {
	return weakref.Referenceable(obj) || reflect.ValueOf(obj).Comparable()
}

// Add records target (living on from) and wrapper (living on from.Flip()) as
// counterparts of each other.
func (c *IdentityCache) Add(target, wrapper Object, from Side) {
	c.put(target, wrapper, from)
	c.put(wrapper, target, from.Flip())
}

func (c *IdentityCache) put(key, value Object, side Side) {
	if c.sides[side].Store(key, value) {
		return
	}
	if !reflect.ValueOf(key).Comparable() {
		return
	}
	c.mu.Lock()
	c.strong[side][key] = value
	c.mu.Unlock()
}

// Len returns the number of live entries on side.
func (c *IdentityCache) Len(side Side) int {
	c.mu.Lock()
	n := len(c.strong[side])
	c.mu.Unlock()
	return n + c.sides[side].Len()
}
