// Package object implements ordinary objects for Go-hosted graphs.
//
// An Object behaves like a script object: own properties with descriptors,
// a prototype chain, extensibility, and optionally call and construct
// behaviour. Objects are not safe for concurrent mutation; like a script
// heap they are confined to one goroutine at a time.
package object

import (
	"math"
	"sort"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

// Attr is a set of property attributes.
type Attr uint8

const (
	Writable Attr = 1 << iota
	Enumerable
	Configurable

	// Default is what a plain assignment creates.
	Default = Writable | Enumerable | Configurable
)

var lengthKey = membrane.Key("length")

// Func is the behaviour of a callable object.
type Func func(this any, args []any) (any, error)

// Object is an ordinary object.
type Object struct {
	class      string
	proto      membrane.Object
	keys       []membrane.PropertyKey
	props      map[membrane.PropertyKey]*membrane.PropertyDescriptor
	extensible bool
	fn         Func
	ctor       bool
}

var _ membrane.Object = (*Object)(nil)

// New creates an empty extensible object with the given prototype.
func New(proto membrane.Object) *Object {
	return &Object{
		class:      "Object",
		proto:      proto,
		props:      make(map[membrane.PropertyKey]*membrane.PropertyDescriptor),
		extensible: true,
	}
}

// FromMap creates an object with one default data property per entry,
// defined in key order.
func FromMap(m map[string]any) *Object {
	o := New(nil)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.DefineData(k, m[k], Default)
	}
	return o
}

// Class returns the object's class name: Object, Array, Function or Error.
func (o *Object) Class() string { return o.class }

// IsArray reports whether o is an array.
func (o *Object) IsArray() bool { return o.class == "Array" }

// DefineData defines or replaces an own data property without validation.
func (o *Object) DefineData(key string, value any, attrs Attr) *Object {
	return o.DefineDataKey(membrane.Key(key), value, attrs)
}

// DefineDataKey is DefineData for any property key, symbols included.
func (o *Object) DefineDataKey(key membrane.PropertyKey, value any, attrs Attr) *Object {
	o.put(key, &membrane.PropertyDescriptor{
		Value:        value,
		Writable:     attrs&Writable != 0,
		Enumerable:   attrs&Enumerable != 0,
		Configurable: attrs&Configurable != 0,
	})
	return o
}

// DefineAccessor defines or replaces an own accessor property without
// validation. get or set may be nil.
func (o *Object) DefineAccessor(key string, get, set membrane.Object, attrs Attr) *Object {
	o.put(membrane.Key(key), &membrane.PropertyDescriptor{
		Get:          get,
		Set:          set,
		Value:        membrane.Undefined,
		Enumerable:   attrs&Enumerable != 0,
		Configurable: attrs&Configurable != 0,
	})
	return o
}

func (o *Object) put(key membrane.PropertyKey, d *membrane.PropertyDescriptor) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = d
	if o.class == "Array" {
		o.growLength(key)
	}
}

func (o *Object) remove(key membrane.PropertyKey) {
	if _, ok := o.props[key]; !ok {
		return
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *Object) Get(key membrane.PropertyKey) (any, error) {
	return o.getWith(key, o)
}

func (o *Object) getWith(key membrane.PropertyKey, receiver any) (any, error) {
	if d, ok := o.props[key]; ok {
		if !d.IsAccessor() {
			return d.Value, nil
		}
		if d.Get == nil {
			return membrane.Undefined, nil
		}
		return d.Get.Call(receiver, nil)
	}
	switch p := o.proto.(type) {
	case nil:
		return membrane.Undefined, nil
	case *Object:
		return p.getWith(key, receiver)
	default:
		return p.Get(key)
	}
}

func (o *Object) Set(key membrane.PropertyKey, value any) (bool, error) {
	if d, ok := o.props[key]; ok {
		if d.IsAccessor() {
			return callSetter(d, o, value)
		}
		if !d.Writable {
			return false, nil
		}
		if o.class == "Array" && key == lengthKey {
			return o.setLength(value), nil
		}
		d.Value = value
		if o.class == "Array" {
			o.growLength(key)
		}
		return true, nil
	}

	for p := o.proto; p != nil; {
		d, err := p.GetOwnProperty(key)
		if err != nil {
			return false, err
		}
		if d != nil {
			if d.IsAccessor() {
				return callSetter(d, o, value)
			}
			if !d.Writable {
				return false, nil
			}
			break
		}
		if p, err = p.GetPrototypeOf(); err != nil {
			return false, err
		}
	}

	if !o.extensible {
		return false, nil
	}
	o.DefineDataKey(key, value, Default)
	return true, nil
}

func callSetter(d *membrane.PropertyDescriptor, receiver any, value any) (bool, error) {
	if d.Set == nil {
		return false, nil
	}
	if _, err := d.Set.Call(receiver, []any{value}); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Object) Has(key membrane.PropertyKey) (bool, error) {
	if _, ok := o.props[key]; ok {
		return true, nil
	}
	if o.proto == nil {
		return false, nil
	}
	return o.proto.Has(key)
}

func (o *Object) Delete(key membrane.PropertyKey) (bool, error) {
	d, ok := o.props[key]
	if !ok {
		return true, nil
	}
	if !d.Configurable {
		return false, nil
	}
	o.remove(key)
	return true, nil
}

// OwnKeys lists integer keys in ascending order, then other strings and
// then symbols, both in insertion order.
func (o *Object) OwnKeys() ([]membrane.PropertyKey, error) {
	var ints, names, symbols []membrane.PropertyKey
	for _, k := range o.keys {
		switch _, ok := k.Index(); {
		case ok:
			ints = append(ints, k)
		case k.IsSymbol():
			symbols = append(symbols, k)
		default:
			names = append(names, k)
		}
	}
	sort.Slice(ints, func(i, j int) bool {
		a, _ := ints[i].Index()
		b, _ := ints[j].Index()
		return a < b
	})
	return append(append(ints, names...), symbols...), nil
}

func (o *Object) GetOwnProperty(key membrane.PropertyKey) (*membrane.PropertyDescriptor, error) {
	d, ok := o.props[key]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// DefineOwnProperty validates desc against the current property the way
// Object.defineProperty does and reports false when it is rejected.
func (o *Object) DefineOwnProperty(key membrane.PropertyKey, desc membrane.PropertyDescriptor) (bool, error) {
	cur, ok := o.props[key]
	if !ok {
		if !o.extensible {
			return false, nil
		}
		o.put(key, normalize(desc))
		return true, nil
	}
	if !cur.Configurable {
		switch {
		case desc.Configurable:
			return false, nil
		case desc.Enumerable != cur.Enumerable:
			return false, nil
		case desc.IsAccessor() != cur.IsAccessor():
			return false, nil
		case cur.IsAccessor():
			if desc.Get != cur.Get || desc.Set != cur.Set {
				return false, nil
			}
		case !cur.Writable:
			if desc.Writable || !SameValue(desc.Value, cur.Value) {
				return false, nil
			}
		}
	}
	if o.class == "Array" && key == lengthKey && !desc.IsAccessor() {
		if !o.setLength(desc.Value) {
			return false, nil
		}
		cur.Writable = desc.Writable
		return true, nil
	}
	o.put(key, normalize(desc))
	return true, nil
}

func normalize(desc membrane.PropertyDescriptor) *membrane.PropertyDescriptor {
	if desc.IsAccessor() {
		desc.Value = membrane.Undefined
		desc.Writable = false
	}
	return &desc
}

func (o *Object) GetPrototypeOf() (membrane.Object, error) {
	return o.proto, nil
}

// SetPrototypeOf refuses cycles and changes on non-extensible objects.
func (o *Object) SetPrototypeOf(proto membrane.Object) (bool, error) {
	if proto == o.proto {
		return true, nil
	}
	if !o.extensible {
		return false, nil
	}
	for p := proto; p != nil; {
		if p == membrane.Object(o) {
			return false, nil
		}
		next, ok := p.(*Object)
		if !ok {
			break
		}
		p = next.proto
	}
	o.proto = proto
	return true, nil
}

func (o *Object) IsExtensible() (bool, error) {
	return o.extensible, nil
}

func (o *Object) PreventExtensions() (bool, error) {
	o.extensible = false
	return true, nil
}

func (o *Object) Call(this any, args []any) (any, error) {
	if o.fn == nil {
		return nil, membrane.ErrNotCallable
	}
	return o.fn(this, args)
}

// Construct creates an object whose prototype is newTarget's "prototype"
// property, runs the function with it as this, and returns the function's
// result when that is an object.
func (o *Object) Construct(args []any, newTarget membrane.Object) (membrane.Object, error) {
	if o.fn == nil || !o.ctor {
		return nil, membrane.ErrNotConstructor
	}
	if newTarget == nil {
		newTarget = o
	}
	protoVal, err := newTarget.Get(membrane.Key("prototype"))
	if err != nil {
		return nil, err
	}
	proto, _ := protoVal.(membrane.Object)
	inst := New(proto)
	res, err := o.fn(inst, args)
	if err != nil {
		return nil, err
	}
	if r, ok := res.(membrane.Object); ok && r != nil {
		return r, nil
	}
	return inst, nil
}

func (o *Object) Callable() bool {
	return o.fn != nil
}

// SameValue compares two values the way Object.is does.
func SameValue(a, b any) bool {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			if math.IsNaN(fa) && math.IsNaN(fb) {
				return true
			}
			return fa == fb && math.Signbit(fa) == math.Signbit(fb)
		}
	}
	defer func() { _ = recover() }()
	return a == b
}
