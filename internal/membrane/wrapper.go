package membrane

// wrapper is the view of a target from the side opposite the one it lives
// on. Values moving toward the target are wrapped from the caller's side;
// values coming back, including thrown ones, are wrapped from the target's.
type wrapper struct {
	m        *Membrane
	from     Side
	handle   *RevocationHandle
	callable bool
	array    bool
}

var _ Object = (*wrapper)(nil)

func (w *wrapper) target() (Object, error) {
	return w.handle.Target()
}

func (w *wrapper) out(v any) any          { return w.m.Wrap(v, w.from) }
func (w *wrapper) in(v any) any           { return w.m.Wrap(v, w.from.Flip()) }
func (w *wrapper) outObj(o Object) Object { return w.m.wrapObject(o, w.from) }
func (w *wrapper) inObj(o Object) Object  { return w.m.wrapObject(o, w.from.Flip()) }
func (w *wrapper) fail(err error) error   { return w.m.wrapError(err, w.from) }
func (w *wrapper) inAll(args []any) []any { return w.m.wrapAll(args, w.from.Flip()) }

func (w *wrapper) Get(key PropertyKey) (any, error) {
	t, err := w.target()
	if err != nil {
		return nil, err
	}
	v, err := t.Get(key)
	if err != nil {
		return nil, w.fail(err)
	}
	if IsPrimitive(v) || w.m.policy.Disabled {
		return v, nil
	}
	desc, err := t.GetOwnProperty(key)
	if err != nil {
		return nil, w.fail(err)
	}
	if w.m.policy.pinned(desc) {
		w.m.breach(key, w.from)
		return v, nil
	}
	return w.out(v), nil
}

func (w *wrapper) Set(key PropertyKey, value any) (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	ok, err := t.Set(key, w.in(value))
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) Has(key PropertyKey) (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	ok, err := t.Has(key)
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) Delete(key PropertyKey) (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	ok, err := t.Delete(key)
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) OwnKeys() ([]PropertyKey, error) {
	t, err := w.target()
	if err != nil {
		return nil, err
	}
	keys, err := t.OwnKeys()
	if err != nil {
		return nil, w.fail(err)
	}
	return keys, nil
}

func (w *wrapper) GetOwnProperty(key PropertyKey) (*PropertyDescriptor, error) {
	t, err := w.target()
	if err != nil {
		return nil, err
	}
	desc, err := t.GetOwnProperty(key)
	if err != nil {
		return nil, w.fail(err)
	}
	if desc == nil {
		return nil, nil
	}
	d := *desc
	if w.m.policy.pinned(desc) {
		w.m.breach(key, w.from)
		return &d, nil
	}
	d.Value = w.out(d.Value)
	d.Get = w.outObj(d.Get)
	d.Set = w.outObj(d.Set)
	return &d, nil
}

func (w *wrapper) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	desc.Value = w.in(desc.Value)
	desc.Get = w.inObj(desc.Get)
	desc.Set = w.inObj(desc.Set)
	ok, err := t.DefineOwnProperty(key, desc)
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) GetPrototypeOf() (Object, error) {
	t, err := w.target()
	if err != nil {
		return nil, err
	}
	proto, err := t.GetPrototypeOf()
	if err != nil {
		return nil, w.fail(err)
	}
	return w.outObj(proto), nil
}

func (w *wrapper) SetPrototypeOf(proto Object) (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	ok, err := t.SetPrototypeOf(w.inObj(proto))
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) IsExtensible() (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	ok, err := t.IsExtensible()
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) PreventExtensions() (bool, error) {
	t, err := w.target()
	if err != nil {
		return false, err
	}
	ok, err := t.PreventExtensions()
	if err != nil {
		return false, w.fail(err)
	}
	return ok, nil
}

func (w *wrapper) Call(this any, args []any) (any, error) {
	t, err := w.target()
	if err != nil {
		return nil, err
	}
	if !w.callable {
		return nil, ErrNotCallable
	}
	v, err := t.Call(w.in(this), w.inAll(args))
	if err != nil {
		return nil, w.fail(err)
	}
	return w.out(v), nil
}

func (w *wrapper) Construct(args []any, newTarget Object) (Object, error) {
	t, err := w.target()
	if err != nil {
		return nil, err
	}
	if !w.callable {
		return nil, ErrNotConstructor
	}
	o, err := t.Construct(w.inAll(args), w.inObj(newTarget))
	if err != nil {
		return nil, w.fail(err)
	}
	return w.outObj(o), nil
}

// Callable is fixed at creation so a revoked wrapper keeps its shape.
func (w *wrapper) Callable() bool {
	return w.callable
}

// IsArray reports whether the target is an array. Like Callable it is fixed
// at creation.
func (w *wrapper) IsArray() bool {
	return w.array
}
