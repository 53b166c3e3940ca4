package realm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/membrane/internal/membrane"
	"github.com/GriffinCanCode/membrane/internal/weakref"
)

// ErrClosed is returned by operations on a closed realm.
var ErrClosed = errors.New("realm closed")

// Realm is an isolated script global environment backed by its own goja
// runtime. Objects leave a realm as membrane.Object values and foreign
// objects enter it as proxies, each side preserving identity.
//
// A realm is confined to one goroutine at a time. Eval serialises top-level
// entry; operations on exported objects run on the caller's goroutine.
type Realm struct {
	name   string
	vm     *goja.Runtime
	config Config
	logger *zap.Logger
	mu     sync.Mutex
	closed bool

	console   []LogEntry
	consoleMu sync.Mutex

	ops       reflectOps
	newProxy  goja.Callable
	newShadow goja.Callable
	isArray   goja.Callable
	symbols   *symbolTable

	// *goja.Object -> *hostObject
	adapted *weakref.Map
	// membrane.Object -> proxy *goja.Object
	exposed *weakref.Map
	// proxy *goja.Object -> membrane.Object
	imported *weakref.Map
}

// Option configures a Realm.
type Option func(*Realm)

// WithLogger sets the realm logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Realm) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithName labels the realm in logs.
func WithName(name string) Option {
	return func(r *Realm) { r.name = name }
}

// New creates a realm with a fresh global environment.
func New(config Config, opts ...Option) (*Realm, error) {
	r := &Realm{
		name:     "realm",
		vm:       goja.New(),
		config:   config,
		logger:   zap.NewNop(),
		adapted:  weakref.NewMap(),
		exposed:  weakref.NewMap(),
		imported: weakref.NewMap(),
		symbols:  newSymbolTable(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	if err := r.captureIntrinsics(); err != nil {
		return nil, fmt.Errorf("capture intrinsics: %w", err)
	}
	if err := r.setupGlobals(); err != nil {
		return nil, fmt.Errorf("setup globals: %w", err)
	}
	return r, nil
}

// Name returns the realm's label.
func (r *Realm) Name() string { return r.name }

// Eval runs script in the realm's global scope and returns its completion
// value. Execution is interrupted when the configured timeout elapses or
// ctx is cancelled. A script-level throw is returned as a
// *membrane.ThrownError.
func (r *Realm) Eval(ctx context.Context, script string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.guard(ctx, func() (goja.Value, error) {
		return r.vm.RunString(script)
	})
}

// EvalFunc compiles body as a function taking params, calls it with args
// and returns its result. Bindings made by body stay local to the call.
func (r *Realm) EvalFunc(ctx context.Context, params []string, body string, args ...any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	src := "(function (" + strings.Join(params, ", ") + ") {\n" + body + "\n})"
	return r.guard(ctx, func() (goja.Value, error) {
		v, err := r.vm.RunString(src)
		if err != nil {
			return nil, err
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return nil, membrane.ErrNotCallable
		}
		return fn(goja.Undefined(), r.toJSAll(args)...)
	})
}

// guard runs fn with timeout and ctx interruption and converts its result.
func (r *Realm) guard(ctx context.Context, fn func() (goja.Value, error)) (any, error) {
	start := time.Now()
	done := make(chan struct{})
	exited := make(chan struct{})

	var timeout <-chan time.Time
	if r.config.Timeout > 0 {
		timer := time.NewTimer(r.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	go func() {
		defer close(exited)
		select {
		case <-timeout:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	val, err := fn()
	close(done)
	<-exited
	r.vm.ClearInterrupt()

	r.logger.Debug("script evaluated",
		zap.String("realm", r.name),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("eval in %s: %w", r.name, err)
		}
		return nil, r.fromJS(err)
	}
	return r.toGo(val), nil
}

// Global returns the realm's global object.
func (r *Realm) Global() membrane.Object {
	return r.adapt(r.vm.GlobalObject())
}

// GlobalObject returns the script global itself. It lives exactly as long
// as the realm's runtime and is what collection tracking watches.
func (r *Realm) GlobalObject() *goja.Object {
	return r.vm.GlobalObject()
}

// Set defines a global binding. Foreign objects are exposed as proxies.
func (r *Realm) Set(name string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.vm.Set(name, r.toJS(v))
}

// Console returns the console output captured so far.
func (r *Realm) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry(nil), r.console...)
}

// ClearConsole drops captured console output.
func (r *Realm) ClearConsole() {
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
}

// Close rejects further evaluation. Objects already exported keep working
// until they become unreachable.
func (r *Realm) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
	return nil
}

// setupGlobals removes host escape hatches and installs console and timers.
func (r *Realm) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}
	return r.vm.Set("window", r.vm.GlobalObject())
}

func (r *Realm) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Realm:   r.name,
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}
