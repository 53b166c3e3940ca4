package membrane

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Membrane is one isolation boundary between two object graphs. It owns the
// identity cache and the revocation registry for every wrapper it creates.
type Membrane struct {
	id       string
	logger   *zap.Logger
	observer Observer
	policy   NonConfigurablePolicy

	cache    *IdentityCache
	registry *RevocationRegistry

	// serialises lookup-then-create so one target never gets two wrappers
	mu sync.Mutex
}

// Stats is a snapshot of a membrane's bookkeeping.
type Stats struct {
	ID          string `json:"id"`
	Revoked     bool   `json:"revoked"`
	WetEntries  int    `json:"wet_entries"`
	DryEntries  int    `json:"dry_entries"`
	LiveHandles int    `json:"live_handles"`
}

// New creates a membrane with an empty cache.
func New(opts ...Option) *Membrane {
	m := &Membrane{
		id:       uuid.NewString(),
		logger:   zap.NewNop(),
		observer: nopObserver{},
		cache:    NewIdentityCache(),
		registry: NewRevocationRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap creates a membrane around target, which lives on the wet side, and
// returns the dry-side view of it together with the revoke function.
func Wrap(target any, opts ...Option) (any, func()) {
	m := New(opts...)
	return m.Wrap(target, Wet), m.Revoke
}

// ID returns the instance ID.
func (m *Membrane) ID() string { return m.id }

// Wrap returns v as seen from from.Flip(). Primitives are returned unchanged;
// an object yields the same counterpart for as long as that counterpart is
// reachable, and a wrapper crossing back yields its target.
func (m *Membrane) Wrap(v any, from Side) any {
	obj, ok := asObject(v)
	if !ok {
		return v
	}
	return m.wrapObject(obj, from)
}

func (m *Membrane) wrapObject(obj Object, from Side) Object {
	if obj == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.cache.Get(obj, from); ok {
		return c
	}
	w := &wrapper{
		m:        m,
		from:     from,
		handle:   NewRevocationHandle(obj),
		callable: obj.Callable(),
		array:    IsArray(obj),
	}
	if !m.cache.Cacheable(obj) {
		m.logger.Warn("object has no identity, wrapper not cached",
			zap.String("membrane", m.id),
			zap.String("type", fmt.Sprintf("%T", obj)),
		)
	}
	m.cache.Add(obj, w, from)
	m.registry.Add(w.handle)
	m.observer.WrapperCreated(from)
	return w
}

func (m *Membrane) wrapAll(vs []any, from Side) []any {
	if len(vs) == 0 {
		return vs
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = m.Wrap(v, from)
	}
	return out
}

// wrapError rewraps a value thrown on from for the other side. Errors that
// carry no thrown value pass through.
func (m *Membrane) wrapError(err error, from Side) error {
	var te *ThrownError
	if !errors.As(err, &te) {
		return err
	}
	return &ThrownError{Value: m.Wrap(te.Value, from), Message: te.Message}
}

// Revoke cuts every wrapper this membrane produced off from its target.
// Wrappers created afterwards are born revoked. Calling Revoke again does
// nothing.
func (m *Membrane) Revoke() {
	if m.registry.Fired() {
		return
	}
	n := m.registry.RevokeAll()
	m.logger.Debug("membrane revoked",
		zap.String("membrane", m.id),
		zap.Int("severed", n),
	)
	m.observer.Revoked(n)
}

// Revoked reports whether Revoke has been called.
func (m *Membrane) Revoked() bool {
	return m.registry.Fired()
}

// GetMembraneValue returns the original value behind v: the target when v
// is one of this membrane's wrappers, v itself when it is a known target.
// side names the view the caller asks from and does not change the result.
func (m *Membrane) GetMembraneValue(side Side, v any) (bool, any) {
	obj, ok := asObject(v)
	if !ok {
		return false, nil
	}
	if w, ok := obj.(*wrapper); ok && w.m == m {
		t, err := w.handle.Target()
		if err != nil {
			return false, nil
		}
		return true, t
	}
	if m.known(obj) {
		return true, obj
	}
	return false, nil
}

// GetMembraneProxy returns the representative of v that lives on side: the
// wrapper when v lives on the other side, v itself when it already lives on
// side.
func (m *Membrane) GetMembraneProxy(side Side, v any) (bool, any) {
	obj, ok := asObject(v)
	if !ok {
		return false, nil
	}
	if w, ok := obj.(*wrapper); ok && w.m == m {
		if w.from.Flip() == side {
			return true, w
		}
		t, err := w.handle.Target()
		if err != nil {
			return false, nil
		}
		return true, t
	}
	if c, ok := m.cache.Get(obj, side.Flip()); ok {
		return true, c
	}
	if _, ok := m.cache.Get(obj, side); ok {
		return true, obj
	}
	return false, nil
}

func (m *Membrane) known(obj Object) bool {
	for _, s := range [...]Side{Wet, Dry} {
		if _, ok := m.cache.Get(obj, s); ok {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the membrane's bookkeeping.
func (m *Membrane) Stats() Stats {
	return Stats{
		ID:          m.id,
		Revoked:     m.Revoked(),
		WetEntries:  m.cache.Len(Wet),
		DryEntries:  m.cache.Len(Dry),
		LiveHandles: m.registry.Live(),
	}
}
