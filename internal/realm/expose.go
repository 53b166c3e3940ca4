package realm

import (
	"strconv"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

// expose returns the script proxy standing for obj in this realm. The proxy
// target is a shadow object that only ever holds what the proxy invariants
// force onto it: non-configurable properties, and everything once obj stops
// being extensible. The shadow is a function for callable objects and an
// array for arrays, so typeof and Array.isArray see through the proxy.
func (r *Realm) expose(obj membrane.Object) *goja.Object {
	if p, ok := r.exposed.Load(obj); ok {
		return p.(*goja.Object)
	}

	var shadow *goja.Object
	switch {
	case obj.Callable():
		v, err := r.newShadow(goja.Undefined())
		if err != nil {
			panic(err)
		}
		shadow = v.ToObject(r.vm)
	case membrane.IsArray(obj):
		shadow = r.vm.NewArray()
	default:
		shadow = r.vm.NewObject()
	}

	t := &traps{realm: r, obj: obj, shadow: shadow}
	handler := r.vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"get":                      t.get,
		"set":                      t.set,
		"has":                      t.has,
		"deleteProperty":           t.deleteProperty,
		"ownKeys":                  t.ownKeys,
		"getOwnPropertyDescriptor": t.getOwnPropertyDescriptor,
		"defineProperty":           t.defineProperty,
		"getPrototypeOf":           t.getPrototypeOf,
		"setPrototypeOf":           t.setPrototypeOf,
		"isExtensible":             t.isExtensible,
		"preventExtensions":        t.preventExtensions,
		"apply":                    t.apply,
		"construct":                t.construct,
	} {
		_ = handler.Set(name, fn)
	}

	v, err := r.newProxy(goja.Undefined(), shadow, handler)
	if err != nil {
		panic(err)
	}
	proxy := v.ToObject(r.vm)
	r.exposed.Store(obj, proxy)
	r.imported.Store(proxy, obj)
	return proxy
}

// traps forwards proxy operations to a membrane.Object.
type traps struct {
	realm  *Realm
	obj    membrane.Object
	shadow *goja.Object
}

func (t *traps) check(err error) {
	if err != nil {
		t.realm.throw(err)
	}
}

func (t *traps) result(ok bool, err error) goja.Value {
	t.check(err)
	return t.realm.vm.ToValue(ok)
}

func (t *traps) key(call goja.FunctionCall) membrane.PropertyKey {
	return t.realm.propertyKey(call.Argument(1))
}

func (t *traps) get(call goja.FunctionCall) goja.Value {
	v, err := t.obj.Get(t.key(call))
	t.check(err)
	return t.realm.toJS(v)
}

func (t *traps) set(call goja.FunctionCall) goja.Value {
	return t.result(t.obj.Set(t.key(call), t.realm.toGo(call.Argument(2))))
}

func (t *traps) has(call goja.FunctionCall) goja.Value {
	return t.result(t.obj.Has(t.key(call)))
}

func (t *traps) deleteProperty(call goja.FunctionCall) goja.Value {
	return t.result(t.obj.Delete(t.key(call)))
}

func (t *traps) ownKeys(goja.FunctionCall) goja.Value {
	keys, err := t.obj.OwnKeys()
	t.check(err)
	vs := make([]goja.Value, len(keys))
	for i, k := range keys {
		vs[i] = t.realm.keyValue(k)
	}
	return t.realm.array(vs)
}

func (t *traps) getOwnPropertyDescriptor(call goja.FunctionCall) goja.Value {
	k := t.key(call)
	desc, err := t.obj.GetOwnProperty(k)
	t.check(err)
	if desc == nil {
		return goja.Undefined()
	}
	if !desc.Configurable {
		t.mirror(k, *desc)
	}
	return t.realm.fromDescriptor(*desc)
}

// defineProperty completes a partial script descriptor from the current
// own property before handing it over.
func (t *traps) defineProperty(call goja.FunctionCall) goja.Value {
	k := t.key(call)
	d := call.Argument(2).ToObject(t.realm.vm)

	var desc membrane.PropertyDescriptor
	cur, err := t.obj.GetOwnProperty(k)
	t.check(err)
	if cur != nil {
		desc = *cur
	} else {
		desc.Value = membrane.Undefined
	}

	get, set := d.Get("get"), d.Get("set")
	switch {
	case get != nil || set != nil:
		if !desc.IsAccessor() {
			desc = membrane.PropertyDescriptor{Enumerable: desc.Enumerable, Configurable: desc.Configurable}
		}
		if get != nil {
			desc.Get = t.realm.toGoObject(get)
		}
		if set != nil {
			desc.Set = t.realm.toGoObject(set)
		}
	case d.Get("value") != nil || d.Get("writable") != nil:
		if desc.IsAccessor() {
			desc = membrane.PropertyDescriptor{Value: membrane.Undefined, Enumerable: desc.Enumerable, Configurable: desc.Configurable}
		}
		if v := d.Get("value"); v != nil {
			desc.Value = t.realm.toGo(v)
		}
		if w := d.Get("writable"); w != nil {
			desc.Writable = w.ToBoolean()
		}
	}
	if e := d.Get("enumerable"); e != nil {
		desc.Enumerable = e.ToBoolean()
	}
	if c := d.Get("configurable"); c != nil {
		desc.Configurable = c.ToBoolean()
	}

	ok, err := t.obj.DefineOwnProperty(k, desc)
	t.check(err)
	if ok && !desc.Configurable {
		if now, err := t.obj.GetOwnProperty(k); err == nil && now != nil {
			t.mirror(k, *now)
		}
	}
	return t.realm.vm.ToValue(ok)
}

func (t *traps) getPrototypeOf(goja.FunctionCall) goja.Value {
	proto, err := t.obj.GetPrototypeOf()
	t.check(err)
	if proto == nil {
		return goja.Null()
	}
	return t.realm.toJS(proto)
}

func (t *traps) setPrototypeOf(call goja.FunctionCall) goja.Value {
	return t.result(t.obj.SetPrototypeOf(t.realm.toGoObject(call.Argument(1))))
}

func (t *traps) isExtensible(goja.FunctionCall) goja.Value {
	ok, err := t.obj.IsExtensible()
	t.check(err)
	if !ok {
		t.seal()
	}
	return t.realm.vm.ToValue(ok)
}

func (t *traps) preventExtensions(goja.FunctionCall) goja.Value {
	ok, err := t.obj.PreventExtensions()
	t.check(err)
	if ok {
		t.seal()
	}
	return t.realm.vm.ToValue(ok)
}

func (t *traps) apply(call goja.FunctionCall) goja.Value {
	args := t.realm.toGoAll(t.realm.elements(call.Argument(2)))
	v, err := t.obj.Call(t.realm.toGo(call.Argument(1)), args)
	t.check(err)
	return t.realm.toJS(v)
}

func (t *traps) construct(call goja.FunctionCall) goja.Value {
	args := t.realm.toGoAll(t.realm.elements(call.Argument(1)))
	v, err := t.obj.Construct(args, t.realm.toGoObject(call.Argument(2)))
	t.check(err)
	if v == nil {
		t.realm.throw(membrane.ErrNotConstructor)
	}
	return t.realm.toJS(v)
}

// mirror copies a descriptor onto the shadow.
func (t *traps) mirror(k membrane.PropertyKey, desc membrane.PropertyDescriptor) {
	_, err := t.realm.ops.defineProperty(goja.Undefined(), t.shadow, t.realm.keyValue(k), t.realm.fromDescriptor(desc))
	if err != nil {
		panic(err)
	}
}

// seal makes the shadow a non-extensible copy of obj: same own properties,
// same prototype.
func (t *traps) seal() {
	r := t.realm
	if ok, _ := r.ops.isExtensible(goja.Undefined(), t.shadow); ok != nil && !ok.ToBoolean() {
		return
	}

	keys, err := t.obj.OwnKeys()
	t.check(err)
	want := make(map[membrane.PropertyKey]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
		desc, err := t.obj.GetOwnProperty(k)
		t.check(err)
		if desc != nil {
			t.mirror(k, *desc)
		}
	}

	names, err := r.ops.ownKeys(goja.Undefined(), t.shadow)
	t.check(r.fromJS(err))
	for _, k := range r.keyList(names) {
		if _, ok := want[k]; !ok {
			_, _ = r.ops.deleteProperty(goja.Undefined(), t.shadow, r.keyValue(k))
		}
	}

	proto, err := t.obj.GetPrototypeOf()
	t.check(err)
	p := goja.Null()
	if proto != nil {
		p = r.toJS(proto)
	}
	_, _ = r.ops.setPrototypeOf(goja.Undefined(), t.shadow, p)
	_, _ = r.ops.preventExtensions(goja.Undefined(), t.shadow)
}

// elements reads the items of a script array-like.
func (r *Realm) elements(v goja.Value) []goja.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	arr := v.ToObject(r.vm)
	n := int(arr.Get("length").ToInteger())
	out := make([]goja.Value, n)
	for i := range out {
		if item := arr.Get(strconv.Itoa(i)); item != nil {
			out[i] = item
		} else {
			out[i] = goja.Undefined()
		}
	}
	return out
}
