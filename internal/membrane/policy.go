package membrane

import "go.uber.org/zap"

// NonConfigurablePolicy decides what Get and GetOwnProperty return for own
// data properties that are neither configurable nor writable.
//
// Such a property must report the same value through a wrapper as on the
// target, so its object value is handed over raw. That is an isolation
// breach: the receiving side holds an unwrapped object from the other side.
// Every breach is logged and reported to the observer.
type NonConfigurablePolicy struct {
	// Disabled wraps frozen values like any other. Hosts whose proxies do
	// not enforce the invariant can use it to keep isolation intact.
	Disabled bool
}

// pinned reports whether desc must pass through unwrapped.
func (p NonConfigurablePolicy) pinned(desc *PropertyDescriptor) bool {
	if p.Disabled || desc == nil || !desc.Frozen() {
		return false
	}
	return !IsPrimitive(desc.Value)
}

func (m *Membrane) breach(key PropertyKey, from Side) {
	m.logger.Warn("isolation breach",
		zap.String("membrane", m.id),
		zap.Stringer("property", key),
		zap.Stringer("from", from),
		zap.String("reason", "non-configurable non-writable property returned raw"),
	)
	m.observer.IsolationBreach(key.String())
}
