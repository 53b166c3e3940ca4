package weakref

import (
	"runtime"
	"sync"
	"weak"
)

// Map associates keys with values without keeping either alive.
// An entry disappears once its key or its value is collected.
// Map is safe for concurrent use; cleanups run on a runtime goroutine.
type Map struct {
	mu      sync.Mutex
	entries map[Ref]Ref
}

// NewMap creates an empty weak map.
func NewMap() *Map {
	return &Map{entries: make(map[Ref]Ref)}
}

type cleanupArg struct {
	m     weak.Pointer[Map]
	key   Ref
	value Ref
}

// Store records key -> value. It reports false, storing nothing, when either
// side cannot be referenced weakly.
func (m *Map) Store(key, value any) bool {
	kp, ktyp, ok := pointerOf(key)
	if !ok {
		return false
	}
	vp, vtyp, ok := pointerOf(value)
	if !ok {
		return false
	}
	k := Ref{ptr: weak.Make(kp), typ: ktyp}
	v := Ref{ptr: weak.Make(vp), typ: vtyp}

	m.mu.Lock()
	prev, existed := m.entries[k]
	m.entries[k] = v
	m.mu.Unlock()

	if existed && prev == v {
		return true
	}
	arg := cleanupArg{m: weak.Make(m), key: k, value: v}
	if !existed {
		runtime.AddCleanup(kp, evictKey, arg)
	}
	runtime.AddCleanup(vp, evictValue, arg)
	return true
}

// Load returns the live value stored under key.
func (m *Map) Load(key any) (any, bool) {
	k, ok := Make(key)
	if !ok {
		return nil, false
	}
	m.mu.Lock()
	v, ok := m.entries[k]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	val := v.Value()
	if val == nil {
		return nil, false
	}
	return val, true
}

// Delete removes the entry for key.
func (m *Map) Delete(key any) {
	k, ok := Make(key)
	if !ok {
		return
	}
	m.mu.Lock()
	delete(m.entries, k)
	m.mu.Unlock()
}

// Len returns the number of entries whose key and value are both alive.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, v := range m.entries {
		if k.Alive() && v.Alive() {
			n++
		}
	}
	return n
}

// evictKey drops the entry of a collected key.
func evictKey(arg cleanupArg) {
	m := arg.m.Value()
	if m == nil {
		return
	}
	m.mu.Lock()
	delete(m.entries, arg.key)
	m.mu.Unlock()
}

// evictValue drops the entry if it still maps to the collected value.
func evictValue(arg cleanupArg) {
	m := arg.m.Value()
	if m == nil {
		return
	}
	m.mu.Lock()
	if cur, ok := m.entries[arg.key]; ok && cur == arg.value {
		delete(m.entries, arg.key)
	}
	m.mu.Unlock()
}
