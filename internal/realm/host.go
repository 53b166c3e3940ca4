package realm

import (
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

// hostObject presents an object native to a realm as a membrane.Object.
// Every operation goes through the realm's captured Reflect functions, so
// getters, setters, proxies and exotic objects behave as they would for
// script code.
type hostObject struct {
	realm *Realm
	obj   *goja.Object
	call  goja.Callable
}

var _ membrane.Object = (*hostObject)(nil)

// adapt returns the one hostObject standing for o while it is reachable.
func (r *Realm) adapt(o *goja.Object) *hostObject {
	if h, ok := r.adapted.Load(o); ok {
		return h.(*hostObject)
	}
	h := &hostObject{realm: r, obj: o}
	if fn, ok := goja.AssertFunction(o); ok {
		h.call = fn
	}
	r.adapted.Store(o, h)
	return h
}

// Object returns the underlying script object.
func (h *hostObject) Object() *goja.Object { return h.obj }

// Realm returns the realm the object belongs to.
func (h *hostObject) Realm() *Realm { return h.realm }

func (h *hostObject) invoke(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	v, err := fn(goja.Undefined(), args...)
	if err != nil {
		return nil, h.realm.fromJS(err)
	}
	return v, nil
}

func (h *hostObject) key(k membrane.PropertyKey) goja.Value {
	return h.realm.keyValue(k)
}

func (h *hostObject) predicate(fn goja.Callable, args ...goja.Value) (bool, error) {
	v, err := h.invoke(fn, args...)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

func (h *hostObject) Get(key membrane.PropertyKey) (any, error) {
	v, err := h.invoke(h.realm.ops.get, h.obj, h.key(key))
	if err != nil {
		return nil, err
	}
	return h.realm.toGo(v), nil
}

func (h *hostObject) Set(key membrane.PropertyKey, value any) (bool, error) {
	return h.predicate(h.realm.ops.set, h.obj, h.key(key), h.realm.toJS(value))
}

func (h *hostObject) Has(key membrane.PropertyKey) (bool, error) {
	return h.predicate(h.realm.ops.has, h.obj, h.key(key))
}

func (h *hostObject) Delete(key membrane.PropertyKey) (bool, error) {
	return h.predicate(h.realm.ops.deleteProperty, h.obj, h.key(key))
}

func (h *hostObject) OwnKeys() ([]membrane.PropertyKey, error) {
	v, err := h.invoke(h.realm.ops.ownKeys, h.obj)
	if err != nil {
		return nil, err
	}
	return h.realm.keyList(v), nil
}

func (h *hostObject) GetOwnProperty(key membrane.PropertyKey) (*membrane.PropertyDescriptor, error) {
	v, err := h.invoke(h.realm.ops.getOwnPropertyDescriptor, h.obj, h.key(key))
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(v) {
		return nil, nil
	}
	return h.realm.toDescriptor(v.ToObject(h.realm.vm)), nil
}

func (h *hostObject) DefineOwnProperty(key membrane.PropertyKey, desc membrane.PropertyDescriptor) (bool, error) {
	return h.predicate(h.realm.ops.defineProperty, h.obj, h.key(key), h.realm.fromDescriptor(desc))
}

func (h *hostObject) GetPrototypeOf() (membrane.Object, error) {
	v, err := h.invoke(h.realm.ops.getPrototypeOf, h.obj)
	if err != nil {
		return nil, err
	}
	return h.realm.toGoObject(v), nil
}

func (h *hostObject) SetPrototypeOf(proto membrane.Object) (bool, error) {
	p := goja.Null()
	if proto != nil {
		p = h.realm.toJS(proto)
	}
	return h.predicate(h.realm.ops.setPrototypeOf, h.obj, p)
}

func (h *hostObject) IsExtensible() (bool, error) {
	return h.predicate(h.realm.ops.isExtensible, h.obj)
}

func (h *hostObject) PreventExtensions() (bool, error) {
	return h.predicate(h.realm.ops.preventExtensions, h.obj)
}

func (h *hostObject) Call(this any, args []any) (any, error) {
	if h.call == nil {
		return nil, membrane.ErrNotCallable
	}
	v, err := h.call(h.realm.toJS(this), h.realm.toJSAll(args)...)
	if err != nil {
		return nil, h.realm.fromJS(err)
	}
	return h.realm.toGo(v), nil
}

func (h *hostObject) Construct(args []any, newTarget membrane.Object) (membrane.Object, error) {
	if h.call == nil {
		return nil, membrane.ErrNotConstructor
	}
	params := []goja.Value{h.obj, h.realm.array(h.realm.toJSAll(args))}
	if newTarget != nil {
		params = append(params, h.realm.toJS(newTarget))
	}
	v, err := h.invoke(h.realm.ops.construct, params...)
	if err != nil {
		return nil, err
	}
	return h.realm.toGoObject(v), nil
}

func (h *hostObject) Callable() bool {
	return h.call != nil
}

// IsArray answers like Array.isArray; a revoked proxy is not an array.
func (h *hostObject) IsArray() bool {
	v, err := h.realm.isArray(goja.Undefined(), h.obj)
	return err == nil && v.ToBoolean()
}

func (r *Realm) array(vs []goja.Value) *goja.Object {
	items := make([]any, len(vs))
	for i, v := range vs {
		items[i] = v
	}
	return r.vm.NewArray(items...)
}

// toDescriptor reads a script property descriptor object.
func (r *Realm) toDescriptor(d *goja.Object) *membrane.PropertyDescriptor {
	desc := &membrane.PropertyDescriptor{
		Enumerable:   truthy(d.Get("enumerable")),
		Configurable: truthy(d.Get("configurable")),
	}
	get, set := d.Get("get"), d.Get("set")
	if get != nil || set != nil {
		desc.Value = membrane.Undefined
		desc.Get = r.toGoObject(get)
		desc.Set = r.toGoObject(set)
		return desc
	}
	desc.Value = r.toGo(d.Get("value"))
	desc.Writable = truthy(d.Get("writable"))
	return desc
}

// fromDescriptor builds a complete script property descriptor object.
func (r *Realm) fromDescriptor(desc membrane.PropertyDescriptor) *goja.Object {
	d := r.vm.NewObject()
	if desc.IsAccessor() {
		_ = d.Set("get", r.toJSObject(desc.Get))
		_ = d.Set("set", r.toJSObject(desc.Set))
	} else {
		_ = d.Set("value", r.toJS(desc.Value))
		_ = d.Set("writable", desc.Writable)
	}
	_ = d.Set("enumerable", desc.Enumerable)
	_ = d.Set("configurable", desc.Configurable)
	return d
}

func truthy(v goja.Value) bool {
	return v != nil && v.ToBoolean()
}
