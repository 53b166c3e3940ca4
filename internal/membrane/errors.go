package membrane

import (
	"errors"
	"fmt"
)

var (
	// ErrRevoked is returned by every operation on a wrapper whose membrane
	// has been revoked.
	ErrRevoked = errors.New("membrane: operation on a revoked wrapper")

	// ErrNotCallable is returned when calling an object that is not a function.
	ErrNotCallable = errors.New("membrane: object is not callable")

	// ErrNotConstructor is returned when constructing with an object that
	// cannot be used with new.
	ErrNotConstructor = errors.New("membrane: object is not a constructor")
)

// ThrownError carries a script-level thrown value. Values thrown by a target
// are wrapped for the receiving side like any other crossing value.
type ThrownError struct {
	Value any
	// Message describes the value for logs; it is never consulted by the
	// membrane itself.
	Message string
}

// Throw returns an error that throws v.
func Throw(v any) error {
	return &ThrownError{Value: v}
}

func (e *ThrownError) Error() string {
	if e.Message != "" {
		return "thrown: " + e.Message
	}
	if !IsPrimitive(e.Value) {
		return "thrown object"
	}
	return fmt.Sprintf("thrown: %v", e.Value)
}

// Thrown extracts the thrown value from err.
func Thrown(err error) (any, bool) {
	var te *ThrownError
	if errors.As(err, &te) {
		return te.Value, true
	}
	return nil, false
}
