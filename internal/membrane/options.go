package membrane

import "go.uber.org/zap"

// Observer receives membrane lifecycle events, typically to feed metrics.
type Observer interface {
	WrapperCreated(from Side)
	Revoked(severed int)
	IsolationBreach(key string)
}

type nopObserver struct{}

func (nopObserver) WrapperCreated(Side)    {}
func (nopObserver) Revoked(int)            {}
func (nopObserver) IsolationBreach(string) {}

// Option configures a Membrane.
type Option func(*Membrane)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Membrane) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver registers an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(m *Membrane) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithPolicy replaces the non-configurable property policy.
func WithPolicy(p NonConfigurablePolicy) Option {
	return func(m *Membrane) {
		m.policy = p
	}
}

// WithID sets the instance ID used in logs.
func WithID(id string) Option {
	return func(m *Membrane) {
		if id != "" {
			m.id = id
		}
	}
}
