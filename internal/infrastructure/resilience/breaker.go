package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects work.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned in half-open state while the single
	// probe is still running.
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Zero disables it.
	Threshold uint32
	// Cooldown is how long the breaker stays open before letting one probe
	// through.
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes, outside the lock.
	OnStateChange func(name string, from State, to State)
}

// Breaker counts consecutive failures of one unit of work and stops
// admitting it once they reach the threshold.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures uint32
	openedAt time.Time
	probing  bool
}

// New creates a breaker in the closed state.
func New(name string, settings Settings) *Breaker {
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	return &Breaker{name: name, settings: settings, now: time.Now}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state. An open breaker whose cooldown has
// passed reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooled() {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Allow reports whether work may start. Every nil return must be followed
// by exactly one Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	var change func()
	defer func() {
		b.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	switch b.state {
	case StateOpen:
		if !b.cooled() {
			return ErrCircuitOpen
		}
		change = b.transition(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrProbeInFlight
		}
		b.probing = true
	}
	return nil
}

// Record reports the outcome of admitted work.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	var change func()
	defer func() {
		b.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	b.probing = false
	if success {
		b.failures = 0
		if b.state != StateClosed {
			change = b.transition(StateClosed)
		}
		return
	}

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		change = b.open()
	case b.state == StateClosed && b.settings.Threshold > 0 && b.failures >= b.settings.Threshold:
		change = b.open()
	}
}

// Reset closes the breaker and clears its counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.failures = 0
	b.probing = false
	var change func()
	if b.state != StateClosed {
		change = b.transition(StateClosed)
	}
	b.mu.Unlock()
	if change != nil {
		change()
	}
}

func (b *Breaker) cooled() bool {
	return b.now().Sub(b.openedAt) >= b.settings.Cooldown
}

func (b *Breaker) open() func() {
	b.openedAt = b.now()
	return b.transition(StateOpen)
}

// transition sets the state and returns the notification to run once the
// lock is released.
func (b *Breaker) transition(to State) func() {
	from := b.state
	b.state = to
	if b.settings.OnStateChange == nil || from == to {
		return nil
	}
	name, fn := b.name, b.settings.OnStateChange
	return func() { fn(name, from, to) }
}
