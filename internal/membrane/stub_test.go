package membrane

// stub is a minimal Object for tests inside the package.
type stub struct {
	name  string
	props map[PropertyKey]any
}

func newStub(name string) *stub {
	return &stub{name: name, props: map[PropertyKey]any{}}
}

func (s *stub) Get(key PropertyKey) (any, error) {
	if v, ok := s.props[key]; ok {
		return v, nil
	}
	return Undefined, nil
}

func (s *stub) Set(key PropertyKey, value any) (bool, error) {
	s.props[key] = value
	return true, nil
}

func (s *stub) Has(key PropertyKey) (bool, error) {
	_, ok := s.props[key]
	return ok, nil
}

func (s *stub) Delete(key PropertyKey) (bool, error) {
	delete(s.props, key)
	return true, nil
}

func (s *stub) OwnKeys() ([]PropertyKey, error) {
	keys := make([]PropertyKey, 0, len(s.props))
	for k := range s.props {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *stub) GetOwnProperty(key PropertyKey) (*PropertyDescriptor, error) {
	v, ok := s.props[key]
	if !ok {
		return nil, nil
	}
	return &PropertyDescriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}, nil
}

func (s *stub) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	s.props[key] = desc.Value
	return true, nil
}

func (s *stub) GetPrototypeOf() (Object, error)         { return nil, nil }
func (s *stub) SetPrototypeOf(Object) (bool, error)     { return false, nil }
func (s *stub) IsExtensible() (bool, error)             { return true, nil }
func (s *stub) PreventExtensions() (bool, error)        { return false, nil }
func (s *stub) Call(any, []any) (any, error)            { return nil, ErrNotCallable }
func (s *stub) Construct([]any, Object) (Object, error) { return nil, ErrNotConstructor }
func (s *stub) Callable() bool                          { return false }

// valueObject is an Object that is not a pointer and so cannot be
// referenced weakly.
type valueObject struct {
	*stub
	tag string
}

// sliceObject is neither pointer-shaped nor comparable.
type sliceObject []*stub

func (o sliceObject) Get(key PropertyKey) (any, error)         { return o[0].Get(key) }
func (o sliceObject) Set(key PropertyKey, v any) (bool, error) { return o[0].Set(key, v) }
func (o sliceObject) Has(key PropertyKey) (bool, error)        { return o[0].Has(key) }
func (o sliceObject) Delete(key PropertyKey) (bool, error)     { return o[0].Delete(key) }
func (o sliceObject) OwnKeys() ([]PropertyKey, error)          { return o[0].OwnKeys() }
func (o sliceObject) GetPrototypeOf() (Object, error)          { return nil, nil }
func (o sliceObject) SetPrototypeOf(Object) (bool, error)      { return false, nil }
func (o sliceObject) IsExtensible() (bool, error)              { return true, nil }
func (o sliceObject) PreventExtensions() (bool, error)         { return false, nil }
func (o sliceObject) Call(any, []any) (any, error)             { return nil, ErrNotCallable }
func (o sliceObject) Construct([]any, Object) (Object, error)  { return nil, ErrNotConstructor }
func (o sliceObject) Callable() bool                           { return false }
func (o sliceObject) GetOwnProperty(key PropertyKey) (*PropertyDescriptor, error) {
	return o[0].GetOwnProperty(key)
}
func (o sliceObject) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	return o[0].DefineOwnProperty(key, desc)
}
