package membrane

import "reflect"

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

func (UndefinedType) String() string { return "undefined" }

// Undefined is the absent value. A nil value stands for null.
var Undefined = UndefinedType{}

// Object is the set of operations an object supports. Targets, wrappers and
// realm-backed objects all implement it; the membrane forwards each method.
//
// Get and Set resolve accessors with the object itself as receiver.
// Has walks the prototype chain; GetOwnProperty does not and returns nil for
// an absent property.
type Object interface {
	Get(key PropertyKey) (any, error)
	Set(key PropertyKey, value any) (bool, error)
	Has(key PropertyKey) (bool, error)
	Delete(key PropertyKey) (bool, error)
	OwnKeys() ([]PropertyKey, error)
	GetOwnProperty(key PropertyKey) (*PropertyDescriptor, error)
	DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error)
	GetPrototypeOf() (Object, error)
	SetPrototypeOf(proto Object) (bool, error)
	IsExtensible() (bool, error)
	PreventExtensions() (bool, error)
	Call(this any, args []any) (any, error)
	Construct(args []any, newTarget Object) (Object, error)
	Callable() bool
}

// PropertyDescriptor describes one own property. A descriptor with a non-nil
// Get or Set is an accessor; otherwise it is a data property.
type PropertyDescriptor struct {
	Value        any
	Get          Object
	Set          Object
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor reports whether d describes an accessor property.
func (d *PropertyDescriptor) IsAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// Frozen reports whether d is a data property that can never change.
func (d *PropertyDescriptor) Frozen() bool {
	return !d.IsAccessor() && !d.Configurable && !d.Writable
}

// IsPrimitive reports whether v crosses the membrane unchanged. Anything that
// is not an Object is a primitive, including nil, Undefined and *Symbol.
func IsPrimitive(v any) bool {
	_, ok := asObject(v)
	return !ok
}

func asObject(v any) (Object, bool) {
	o, ok := v.(Object)
	if !ok || isNilPointer(o) {
		return nil, false
	}
	return o, true
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
