package membrane

import (
	"sync"
	"sync/atomic"
	"weak"
)

// RevocationHandle severs a single wrapper from its target. The wrapper owns
// its handle; the handle never points back at the wrapper.
type RevocationHandle struct {
	target atomic.Pointer[targetRef]
}

type targetRef struct {
	obj Object
}

// NewRevocationHandle creates a handle bound to target.
func NewRevocationHandle(target Object) *RevocationHandle {
	h := &RevocationHandle{}
	h.target.Store(&targetRef{obj: target})
	return h
}

// Target returns the bound target, or ErrRevoked once severed.
func (h *RevocationHandle) Target() (Object, error) {
	ref := h.target.Load()
	if ref == nil {
		return nil, ErrRevoked
	}
	return ref.obj, nil
}

// Revoke drops the reference to the target. It reports whether this call
// did the severing.
func (h *RevocationHandle) Revoke() bool {
	return h.target.Swap(nil) != nil
}

// Revoked reports whether the handle has been severed.
func (h *RevocationHandle) Revoked() bool {
	return h.target.Load() == nil
}

// RevocationRegistry tracks the handles of every wrapper a membrane created,
// weakly. A handle whose wrapper was collected is simply skipped.
type RevocationRegistry struct {
	mu      sync.Mutex
	handles []weak.Pointer[RevocationHandle]
	fired   bool
	// live count after the last compaction
	mark int
}

// NewRevocationRegistry creates an empty registry.
func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{mark: 16}
}

// Add registers h. Once RevokeAll has run, h is severed immediately.
func (r *RevocationRegistry) Add(h *RevocationHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fired {
		h.Revoke()
		return
	}
	if len(r.handles) >= 2*r.mark {
		r.compact()
	}
	r.handles = append(r.handles, weak.Make(h))
}

// RevokeAll severs every registered handle that is still alive and returns
// how many were severed. Later calls are no-ops.
func (r *RevocationRegistry) RevokeAll() int {
	r.mu.Lock()
	if r.fired {
		r.mu.Unlock()
		return 0
	}
	r.fired = true
	handles := r.handles
	r.handles = nil
	r.mu.Unlock()

	n := 0
	for _, wp := range handles {
		if h := wp.Value(); h != nil && h.Revoke() {
			n++
		}
	}
	return n
}

// Fired reports whether RevokeAll has run.
func (r *RevocationRegistry) Fired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired
}

// Live returns the number of registered handles whose wrappers are alive.
func (r *RevocationRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, wp := range r.handles {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

func (r *RevocationRegistry) compact() {
	kept := r.handles[:0]
	for _, wp := range r.handles {
		if wp.Value() != nil {
			kept = append(kept, wp)
		}
	}
	clear(r.handles[len(kept):])
	r.handles = kept
	r.mark = max(len(kept), 16)
}
