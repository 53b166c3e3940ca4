// Package weakref provides type-erased weak references and a weak map built
// on the runtime's weak pointers.
//
// Only pointer-shaped values can be referenced weakly: pointers to non
// zero-size types. Make reports false for anything else so callers can pick
// a fallback. Pointers outside the heap, such as package-level variables,
// are accepted and never reported collected.
package weakref

import (
	"reflect"
	"unsafe"
	"weak"
)

// Ref is a comparable weak reference to a pointer value of any type.
// Two Refs made from the same live pointer compare equal.
type Ref struct {
	ptr weak.Pointer[byte]
	typ reflect.Type
}

// Make creates a weak reference to v.
func Make(v any) (Ref, bool) {
	p, typ, ok := pointerOf(v)
	if !ok {
		return Ref{}, false
	}
	return Ref{ptr: weak.Make(p), typ: typ}, true
}

// Value returns the referenced value, or nil once it has been collected.
func (r Ref) Value() any {
	if r.typ == nil {
		return nil
	}
	p := r.ptr.Value()
	if p == nil {
		return nil
	}
	return reflect.NewAt(r.typ.Elem(), unsafe.Pointer(p)).Interface()
}

// Alive reports whether the referenced value is still reachable.
func (r Ref) Alive() bool {
	return r.typ != nil && r.ptr.Value() != nil
}

// Referenceable reports whether v can be referenced weakly.
func Referenceable(v any) bool {
	_, _, ok := pointerOf(v)
	return ok
}

func pointerOf(v any) (*byte, reflect.Type, bool) {
	if v == nil {
		return nil, nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, nil, false
	}
	typ := rv.Type()
	if typ.Elem().Size() == 0 {
		return nil, nil, false
	}
	return (*byte)(rv.UnsafePointer()), typ, true
}
