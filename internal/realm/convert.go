package realm

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

// reflectOps are the realm's own Reflect functions, captured before any
// script can replace them.
type reflectOps struct {
	get                      goja.Callable
	set                      goja.Callable
	has                      goja.Callable
	deleteProperty           goja.Callable
	ownKeys                  goja.Callable
	getOwnPropertyDescriptor goja.Callable
	defineProperty           goja.Callable
	getPrototypeOf           goja.Callable
	setPrototypeOf           goja.Callable
	isExtensible             goja.Callable
	preventExtensions        goja.Callable
	construct                goja.Callable
}

const (
	proxyFactory  = `(function (target, handler) { return new Proxy(target, handler); })`
	shadowFactory = `(function () { return (function () {}).bind(null); })`
)

func (r *Realm) captureIntrinsics() error {
	reflect := r.vm.Get("Reflect")
	if reflect == nil {
		return errors.New("missing Reflect global")
	}
	obj := reflect.ToObject(r.vm)
	fns := map[string]*goja.Callable{
		"get":                      &r.ops.get,
		"set":                      &r.ops.set,
		"has":                      &r.ops.has,
		"deleteProperty":           &r.ops.deleteProperty,
		"ownKeys":                  &r.ops.ownKeys,
		"getOwnPropertyDescriptor": &r.ops.getOwnPropertyDescriptor,
		"defineProperty":           &r.ops.defineProperty,
		"getPrototypeOf":           &r.ops.getPrototypeOf,
		"setPrototypeOf":           &r.ops.setPrototypeOf,
		"isExtensible":             &r.ops.isExtensible,
		"preventExtensions":        &r.ops.preventExtensions,
		"construct":                &r.ops.construct,
	}
	for name, dst := range fns {
		fn, ok := goja.AssertFunction(obj.Get(name))
		if !ok {
			return fmt.Errorf("intrinsic Reflect.%s is not a function", name)
		}
		*dst = fn
	}

	isArray, ok := goja.AssertFunction(r.vm.Get("Array").ToObject(r.vm).Get("isArray"))
	if !ok {
		return errors.New("intrinsic Array.isArray is not a function")
	}
	r.isArray = isArray

	for src, dst := range map[string]*goja.Callable{proxyFactory: &r.newProxy, shadowFactory: &r.newShadow} {
		v, err := r.vm.RunString(src)
		if err != nil {
			return err
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return errors.New("factory is not a function")
		}
		*dst = fn
	}
	return nil
}

// toGo converts a script value into a membrane value. Objects native to
// this realm become hostObjects; proxies of foreign objects unwrap to the
// object they expose.
func (r *Realm) toGo(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) {
		return membrane.Undefined
	}
	if goja.IsNull(v) {
		return nil
	}
	if s, ok := v.(*goja.Symbol); ok {
		return r.symbol(s)
	}
	if o, ok := v.(*goja.Object); ok {
		if obj, ok := r.imported.Load(o); ok {
			return obj
		}
		return r.adapt(o)
	}
	return v.Export()
}

func (r *Realm) toGoObject(v goja.Value) membrane.Object {
	if o, ok := r.toGo(v).(membrane.Object); ok {
		return o
	}
	return nil
}

func (r *Realm) toGoAll(vs []goja.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = r.toGo(v)
	}
	return out
}

// toJS converts a membrane value into a script value of this realm.
func (r *Realm) toJS(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case membrane.UndefinedType:
		return goja.Undefined()
	case *membrane.Symbol:
		if x == nil {
			return goja.Null()
		}
		return r.jsSymbol(x)
	case *hostObject:
		if x.realm == r {
			return x.obj
		}
		return r.expose(x)
	case membrane.Object:
		if membrane.IsPrimitive(x) {
			return goja.Null()
		}
		return r.expose(x)
	case *goja.Object:
		// never hand a foreign runtime's object to this one
		return goja.Undefined()
	case goja.Value:
		return x
	}
	return r.vm.ToValue(v)
}

// toJSObject is toJS for optional objects: nil becomes undefined.
func (r *Realm) toJSObject(o membrane.Object) goja.Value {
	if o == nil || membrane.IsPrimitive(o) {
		return goja.Undefined()
	}
	return r.toJS(o)
}

func (r *Realm) toJSAll(vs []any) []goja.Value {
	out := make([]goja.Value, len(vs))
	for i, v := range vs {
		out[i] = r.toJS(v)
	}
	return out
}

// fromJS turns a script exception into a ThrownError carrying the thrown
// value. Other errors pass through.
func (r *Realm) fromJS(err error) error {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return err
	}
	return &membrane.ThrownError{Value: r.toGo(ex.Value()), Message: describe(ex.Value())}
}

// throw raises err inside the running script.
func (r *Realm) throw(err error) {
	if v, ok := membrane.Thrown(err); ok {
		panic(r.toJS(v))
	}
	if errors.Is(err, membrane.ErrRevoked) ||
		errors.Is(err, membrane.ErrNotCallable) ||
		errors.Is(err, membrane.ErrNotConstructor) {
		panic(r.vm.NewTypeError(err.Error()))
	}
	panic(r.vm.NewGoError(err))
}

// describe renders a thrown value without running script code.
func describe(v goja.Value) string {
	if v == nil {
		return ""
	}
	o, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if o.ClassName() != "Error" {
		return "[object " + o.ClassName() + "]"
	}
	name, msg := primitiveString(o.Get("name")), primitiveString(o.Get("message"))
	switch {
	case name == "":
		return msg
	case msg == "":
		return name
	}
	return name + ": " + msg
}

func primitiveString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	if _, ok := v.(*goja.Object); ok {
		return ""
	}
	return v.String()
}
