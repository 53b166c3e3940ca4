package object

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

func TestGetWalksPrototypeChain(t *testing.T) {
	base := New(nil).DefineData("greeting", "hi", Default)
	child := New(base)

	v, err := child.Get(membrane.Key("greeting"))
	require.NoError(t, err)
	assert.Equal(t, "hi", v)

	v, err = child.Get(membrane.Key("missing"))
	require.NoError(t, err)
	assert.Equal(t, membrane.Undefined, v)

	has, err := child.Has(membrane.Key("greeting"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestInheritedGetterUsesReceiver(t *testing.T) {
	getter := NewFunction("get", func(this any, _ []any) (any, error) {
		return this.(*Object).Get(membrane.Key("name"))
	})
	base := New(nil).DefineAccessor("label", getter, nil, Configurable)
	child := New(base).DefineData("name", "child", Default)

	v, err := child.Get(membrane.Key("label"))
	require.NoError(t, err)
	assert.Equal(t, "child", v)
}

func TestSet(t *testing.T) {
	t.Run("creates own property", func(t *testing.T) {
		o := New(nil)
		ok, err := o.Set(membrane.Key("x"), 1.0)
		require.NoError(t, err)
		assert.True(t, ok)
		d, _ := o.GetOwnProperty(membrane.Key("x"))
		require.NotNil(t, d)
		assert.True(t, d.Writable && d.Enumerable && d.Configurable)
	})

	t.Run("read-only own property", func(t *testing.T) {
		o := New(nil).DefineData("x", 1.0, Enumerable)
		ok, err := o.Set(membrane.Key("x"), 2.0)
		require.NoError(t, err)
		assert.False(t, ok)
		v, _ := o.Get(membrane.Key("x"))
		assert.Equal(t, 1.0, v)
	})

	t.Run("read-only inherited property", func(t *testing.T) {
		o := New(New(nil).DefineData("x", 1.0, 0))
		ok, _ := o.Set(membrane.Key("x"), 2.0)
		assert.False(t, ok)
	})

	t.Run("inherited setter", func(t *testing.T) {
		var got []any
		setter := NewFunction("set", func(this any, args []any) (any, error) {
			got = append(got, this, args[0])
			return membrane.Undefined, nil
		})
		o := New(New(nil).DefineAccessor("x", nil, setter, Configurable))
		ok, err := o.Set(membrane.Key("x"), 5.0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []any{o, 5.0}, got)
		d, _ := o.GetOwnProperty(membrane.Key("x"))
		assert.Nil(t, d)
	})

	t.Run("non-extensible", func(t *testing.T) {
		o := New(nil)
		_, _ = o.PreventExtensions()
		ok, _ := o.Set(membrane.Key("x"), 1.0)
		assert.False(t, ok)
	})
}

func TestDefineOwnPropertyValidation(t *testing.T) {
	frozen := func() *Object {
		return New(nil).DefineData("x", 1.0, Enumerable)
	}
	tests := []struct {
		name string
		desc membrane.PropertyDescriptor
		want bool
	}{
		{"same value", membrane.PropertyDescriptor{Value: 1.0, Enumerable: true}, true},
		{"different value", membrane.PropertyDescriptor{Value: 2.0, Enumerable: true}, false},
		{"make writable", membrane.PropertyDescriptor{Value: 1.0, Enumerable: true, Writable: true}, false},
		{"make configurable", membrane.PropertyDescriptor{Value: 1.0, Enumerable: true, Configurable: true}, false},
		{"change enumerable", membrane.PropertyDescriptor{Value: 1.0}, false},
		{"to accessor", membrane.PropertyDescriptor{Get: NewFunction("g", nil), Enumerable: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := frozen().DefineOwnProperty(membrane.Key("x"), tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("non-extensible rejects new keys", func(t *testing.T) {
		o := Freeze(New(nil))
		ok, _ := o.DefineOwnProperty(membrane.Key("y"), membrane.PropertyDescriptor{Value: 1.0})
		assert.False(t, ok)
	})
}

func TestDeleteRespectsConfigurable(t *testing.T) {
	o := New(nil).DefineData("fixed", 1.0, Writable).DefineData("loose", 2.0, Default)

	ok, _ := o.Delete(membrane.Key("fixed"))
	assert.False(t, ok)
	ok, _ = o.Delete(membrane.Key("loose"))
	assert.True(t, ok)
	ok, _ = o.Delete(membrane.Key("never"))
	assert.True(t, ok)

	keys, _ := o.OwnKeys()
	assert.Equal(t, []membrane.PropertyKey{membrane.Key("fixed")}, keys)
}

func names(keys []membrane.PropertyKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func TestOwnKeysOrder(t *testing.T) {
	o := New(nil)
	tag := membrane.NewSymbol("tag")
	o.DefineDataKey(membrane.SymbolKey(membrane.SymbolIterator), true, Default)
	for _, k := range []string{"b", "10", "a", "2", "01"} {
		o.DefineData(k, true, Default)
	}
	o.DefineDataKey(membrane.SymbolKey(tag), true, Default)

	keys, err := o.OwnKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "10", "b", "a", "01", "Symbol(Symbol.iterator)", "Symbol(tag)"}, names(keys))
	assert.Equal(t, membrane.SymbolKey(tag), keys[6])
}

func TestSymbolKeys(t *testing.T) {
	sym := membrane.NewSymbol("x")
	o := New(nil).DefineDataKey(membrane.SymbolKey(sym), 1.0, Default)

	v, err := o.Get(membrane.SymbolKey(sym))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, _ = o.Get(membrane.Key("x"))
	assert.Equal(t, membrane.Undefined, v, "a symbol never matches a string of its description")
	v, _ = o.Get(membrane.SymbolKey(membrane.NewSymbol("x")))
	assert.Equal(t, membrane.Undefined, v, "symbols compare by identity")

	child := New(o)
	has, err := child.Has(membrane.SymbolKey(sym))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSetPrototypeOfRejectsCycles(t *testing.T) {
	a := New(nil)
	b := New(a)
	ok, err := a.SetPrototypeOf(b)
	require.NoError(t, err)
	assert.False(t, ok)

	proto, _ := a.GetPrototypeOf()
	assert.Nil(t, proto)
}

func TestCallAndConstruct(t *testing.T) {
	plain := New(nil)
	_, err := plain.Call(nil, nil)
	assert.ErrorIs(t, err, membrane.ErrNotCallable)

	fn := NewFunction("double", func(_ any, args []any) (any, error) {
		return args[0].(float64) * 2, nil
	})
	v, err := fn.Call(membrane.Undefined, []any{4.0})
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)

	_, err = fn.Construct(nil, nil)
	assert.ErrorIs(t, err, membrane.ErrNotConstructor)

	point := NewConstructor("Point", func(this any, args []any) (any, error) {
		_, err := this.(*Object).Set(membrane.Key("x"), args[0])
		return membrane.Undefined, err
	})
	inst, err := point.Construct([]any{3.0}, nil)
	require.NoError(t, err)
	x, _ := inst.Get(membrane.Key("x"))
	assert.Equal(t, 3.0, x)

	proto, _ := inst.GetPrototypeOf()
	want, _ := point.Get(membrane.Key("prototype"))
	assert.Same(t, want, proto)

	ctor, _ := proto.Get(membrane.Key("constructor"))
	assert.Same(t, point, ctor)
}

func TestConstructPrefersObjectResult(t *testing.T) {
	other := New(nil)
	factory := NewConstructor("F", func(any, []any) (any, error) { return other, nil })
	inst, err := factory.Construct(nil, nil)
	require.NoError(t, err)
	assert.Same(t, other, inst)

	boom := errors.New("boom")
	failing := NewConstructor("G", func(any, []any) (any, error) { return nil, boom })
	_, err = failing.Construct(nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestArray(t *testing.T) {
	arr := NewArray("a", "b")
	assert.Equal(t, 2, arr.Len())
	assert.True(t, arr.IsArray())
	assert.True(t, membrane.IsArray(arr))
	assert.False(t, New(nil).IsArray())

	_, _ = arr.Set(membrane.Key("4"), "e")
	assert.Equal(t, 5, arr.Len())

	ok, err := arr.Set(membrane.Key("length"), 1.0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []any{"a"}, arr.Items())

	arr.Push("b", "c")
	assert.Equal(t, []any{"a", "b", "c"}, arr.Items())

	d, _ := arr.GetOwnProperty(membrane.Key("length"))
	assert.False(t, d.Enumerable)
	assert.False(t, d.Configurable)
}

func TestSameValue(t *testing.T) {
	assert.True(t, SameValue(math.NaN(), math.NaN()))
	assert.False(t, SameValue(0.0, math.Copysign(0, -1)))
	assert.True(t, SameValue("a", "a"))
	assert.False(t, SameValue(1.0, 1))
	o := New(nil)
	assert.True(t, SameValue(o, o))
	assert.False(t, SameValue(o, New(nil)))
	assert.False(t, SameValue([]int{1}, []int{1}))
}

func TestFromMap(t *testing.T) {
	o := FromMap(map[string]any{"b": 2.0, "a": 1.0})
	keys, _ := o.OwnKeys()
	assert.Equal(t, []string{"a", "b"}, names(keys))
}
