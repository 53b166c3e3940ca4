package object

import (
	"strconv"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

// NewFunction creates a callable object that is not a constructor.
func NewFunction(name string, fn Func) *Object {
	o := New(nil)
	o.class = "Function"
	o.fn = fn
	o.DefineData("name", name, Configurable)
	return o
}

// NewConstructor creates a function usable with new. Its "prototype"
// property holds a fresh object whose "constructor" points back at it.
func NewConstructor(name string, fn Func) *Object {
	o := NewFunction(name, fn)
	o.ctor = true
	proto := New(nil)
	proto.DefineData("constructor", o, Writable|Configurable)
	o.DefineData("prototype", proto, Writable)
	return o
}

// NewArray creates an array holding items.
func NewArray(items ...any) *Object {
	o := New(nil)
	o.class = "Array"
	o.DefineData("length", float64(0), Writable)
	for i, v := range items {
		o.DefineData(strconv.Itoa(i), v, Default)
	}
	return o
}

// NewError creates an error object with name and message properties.
func NewError(name, message string) *Object {
	o := New(nil)
	o.class = "Error"
	o.DefineData("name", name, Writable|Configurable)
	o.DefineData("message", message, Writable|Configurable)
	return o
}

// Freeze makes every own property non-configurable, every data property
// non-writable, and the object non-extensible.
func Freeze(o *Object) *Object {
	for _, d := range o.props {
		d.Configurable = false
		if !d.IsAccessor() {
			d.Writable = false
		}
	}
	o.extensible = false
	return o
}

// Len returns the array length of o, or 0 when o is not an array.
func (o *Object) Len() int {
	if o.class != "Array" {
		return 0
	}
	d := o.props[lengthKey]
	n, _ := d.Value.(float64)
	return int(n)
}

// Items returns the elements of an array in index order.
func (o *Object) Items() []any {
	n := o.Len()
	items := make([]any, n)
	for i := range items {
		if d, ok := o.props[membrane.Key(strconv.Itoa(i))]; ok && !d.IsAccessor() {
			items[i] = d.Value
		} else {
			items[i] = membrane.Undefined
		}
	}
	return items
}

// Push appends items to an array.
func (o *Object) Push(items ...any) {
	n := o.Len()
	for i, v := range items {
		o.DefineData(strconv.Itoa(n+i), v, Default)
	}
}

func (o *Object) growLength(key membrane.PropertyKey) {
	idx, ok := key.Index()
	if !ok {
		return
	}
	d := o.props[lengthKey]
	if d == nil {
		return
	}
	if n, _ := d.Value.(float64); float64(idx) >= n {
		d.Value = float64(idx + 1)
	}
}

// setLength truncates or extends the array. Elements that cannot be
// deleted stop the truncation.
func (o *Object) setLength(v any) bool {
	n, ok := toLength(v)
	if !ok {
		return false
	}
	d := o.props[lengthKey]
	for _, k := range append([]membrane.PropertyKey(nil), o.keys...) {
		idx, isIdx := k.Index()
		if !isIdx || idx < n {
			continue
		}
		if !o.props[k].Configurable {
			return false
		}
		o.remove(k)
	}
	d.Value = float64(n)
	return true
}

func toLength(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, n >= 0
	case int64:
		return int(n), n >= 0
	}
	return 0, false
}
