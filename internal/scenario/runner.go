package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/membrane/internal/membrane"
	"github.com/GriffinCanCode/membrane/internal/object"
	"github.com/GriffinCanCode/membrane/internal/realm"
	"github.com/GriffinCanCode/membrane/internal/shared/id"
)

var (
	// ErrRunNotFound is returned for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrTooManyRuns is returned when the run table is full of runs whose
	// realms are still alive.
	ErrTooManyRuns = errors.New("too many live runs")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("runner closed")
	// ErrForeignScript marks a failure while setting up the foreign realm.
	ErrForeignScript = errors.New("foreign script failed")
	// ErrQuarantined is returned for a scenario whose recent runs kept
	// ending in an error verdict.
	ErrQuarantined = errors.New("scenario quarantined")
)

// Status is the lifecycle state of a tracked object.
type Status string

const (
	StatusAttached  Status = "attached"
	StatusRevoked   Status = "revoked"
	StatusDetached  Status = "detached"
	StatusCollected Status = "collected"
)

// Kind names what is being tracked for a run.
type Kind string

const (
	// KindRealm is the foreign realm itself.
	KindRealm Kind = "realm"
	// KindRealmGlobal is the foreign realm's global object.
	KindRealmGlobal Kind = "realm-global"
)

// Verdict is the outcome of a run.
type Verdict string

const (
	VerdictPass  Verdict = "pass"
	VerdictFail  Verdict = "fail"
	VerdictError Verdict = "error"
)

// Run is a snapshot of one scenario execution.
type Run struct {
	ID         id.RunID         `json:"id"`
	Number     int              `json:"number"`
	ScenarioID string           `json:"scenario_id"`
	Digest     string           `json:"scenario_digest"`
	MembraneID string           `json:"membrane_id"`
	Verdict    Verdict          `json:"verdict"`
	Result     string           `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	Revoked    bool             `json:"revoked"`
	Status     map[Kind]Status  `json:"status"`
	Console    []realm.LogEntry `json:"console"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration_ns"`
}

// Collected reports whether every tracked object of the run is gone.
func (r Run) Collected() bool {
	for _, s := range r.Status {
		if s != StatusCollected {
			return false
		}
	}
	return true
}

// Observer receives runner and membrane events. monitoring.Metrics
// implements it.
type Observer interface {
	membrane.Observer
	RunCompleted(scenario, verdict string)
	RealmCollected(kind string)
	ActiveRuns(n int)
}

type nopObserver struct{}

func (nopObserver) WrapperCreated(membrane.Side) {}
func (nopObserver) Revoked(int)                  {}
func (nopObserver) IsolationBreach(string)       {}
func (nopObserver) RunCompleted(string, string)  {}
func (nopObserver) RealmCollected(string)        {}
func (nopObserver) ActiveRuns(int)               {}

// Config configures a Runner.
type Config struct {
	Realm   realm.Config
	MaxRuns int
	// QuarantineAfter consecutive error verdicts stop a scenario from
	// running for QuarantineFor. Zero disables quarantine.
	QuarantineAfter uint32
	QuarantineFor   time.Duration
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		Realm:           realm.DefaultConfig(),
		MaxRuns:         32,
		QuarantineAfter: 3,
		QuarantineFor:   30 * time.Second,
	}
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger. Realms and membranes share it.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the observer for runs and membranes.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// Runner executes scenarios against one long-lived host realm. Every run
// gets a fresh foreign realm joined to the host by a fresh membrane, and
// the runner watches for the foreign realm and its global to be collected.
type Runner struct {
	catalog  *Catalog
	config   Config
	logger   *zap.Logger
	observer Observer
	host     *realm.Realm
	events   *bus

	// runMu serialises use of the host realm.
	runMu sync.Mutex

	mu       sync.Mutex
	runs     map[id.RunID]*entry
	order    []id.RunID
	breakers map[string]*resilience.Breaker
	count    int
	closed   bool
}

type entry struct {
	run      Run
	foreign  *realm.Realm
	membrane *membrane.Membrane
}

func (e *entry) snapshot() Run {
	run := e.run
	run.Status = make(map[Kind]Status, len(e.run.Status))
	for k, v := range e.run.Status {
		run.Status[k] = v
	}
	run.Console = append([]realm.LogEntry(nil), e.run.Console...)
	return run
}

type tracked struct {
	run  id.RunID
	kind Kind
}

// NewRunner creates a runner and its host realm.
func NewRunner(catalog *Catalog, cfg Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		catalog:  catalog,
		config:   cfg,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		events:   newBus(),
		runs:     make(map[id.RunID]*entry),
		breakers: make(map[string]*resilience.Breaker),
	}
	for _, opt := range opts {
		opt(r)
	}

	host, err := realm.New(cfg.Realm, realm.WithName("host"), realm.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("create host realm: %w", err)
	}
	r.host = host
	return r, nil
}

// Catalog returns the scenarios the runner can execute.
func (r *Runner) Catalog() *Catalog { return r.catalog }

// Start executes a scenario and returns the completed run. Script failures
// are reported in the run's verdict, not as an error.
func (r *Runner) Start(ctx context.Context, scenarioID string) (Run, error) {
	s, err := r.catalog.Get(scenarioID)
	if err != nil {
		return Run{}, err
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	number, err := r.reserve()
	if err != nil {
		return Run{}, err
	}
	breaker := r.breaker(s.ID)
	if err := breaker.Allow(); err != nil {
		return Run{}, fmt.Errorf("%w: %s: %w", ErrQuarantined, s.ID, err)
	}
	run := Run{
		ID:         id.NewRunID(),
		Number:     number,
		ScenarioID: s.ID,
		Digest:     s.Digest(),
		StartedAt:  time.Now(),
		Status: map[Kind]Status{
			KindRealm:       StatusAttached,
			KindRealmGlobal: StatusAttached,
		},
	}

	foreign, err := realm.New(r.config.Realm,
		realm.WithName(fmt.Sprintf("foreign-%d", number)),
		realm.WithLogger(r.logger),
	)
	if err != nil {
		breaker.Record(false)
		return Run{}, fmt.Errorf("create foreign realm: %w", err)
	}
	m := membrane.New(membrane.WithLogger(r.logger), membrane.WithObserver(r.observer))
	run.MembraneID = m.ID()

	r.host.ClearConsole()
	result, err := r.execute(ctx, s, foreign, m)
	run.Duration = time.Since(run.StartedAt)
	run.Console = mergeConsole(foreign.Console(), r.host.Console())
	r.host.ClearConsole()
	run.Result, run.Verdict, run.Error = judge(s, result, err)
	breaker.Record(run.Verdict != VerdictError)
	revoked := m.Revoked()
	if revoked {
		markRevoked(&run)
	}

	e := &entry{run: run, foreign: foreign, membrane: m}
	r.track(run.ID, foreign)

	r.mu.Lock()
	r.runs[run.ID] = e
	r.order = append(r.order, run.ID)
	active := r.activeLocked()
	snap := e.snapshot()
	r.mu.Unlock()

	r.observer.RunCompleted(s.ID, string(run.Verdict))
	r.observer.ActiveRuns(active)
	r.logger.Info("Scenario run finished",
		zap.String("run", run.ID.String()),
		zap.Int("number", number),
		zap.String("scenario", s.ID),
		zap.String("verdict", string(run.Verdict)),
		zap.Duration("duration", run.Duration),
	)
	r.events.publish(Event{Type: EventRunCompleted, RunID: run.ID, Number: number, Run: &snap})
	if revoked {
		r.announceRevoked(snap, "script")
	}
	return snap, nil
}

func (r *Runner) execute(ctx context.Context, s Scenario, foreign *realm.Realm, m *membrane.Membrane) (any, error) {
	if strings.TrimSpace(s.Foreign) != "" {
		if _, err := foreign.Eval(ctx, s.Foreign); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrForeignScript, err)
		}
	}
	revoke := object.NewFunction("revoke", func(any, []any) (any, error) {
		m.Revoke()
		return membrane.Undefined, nil
	})
	return r.host.EvalFunc(ctx, []string{"foreign", "revoke"}, s.Host, m.Wrap(foreign.Global(), membrane.Wet), revoke)
}

func (r *Runner) reserve() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	if limit := r.config.MaxRuns; limit > 0 && len(r.order) >= limit {
		kept := r.order[:0]
		for _, rid := range r.order {
			if r.runs[rid].run.Collected() {
				delete(r.runs, rid)
				continue
			}
			kept = append(kept, rid)
		}
		r.order = kept
		if len(r.order) >= limit {
			return 0, ErrTooManyRuns
		}
	}
	r.count++
	return r.count, nil
}

func (r *Runner) track(runID id.RunID, foreign *realm.Realm) {
	runtime.AddCleanup(foreign, r.collected, tracked{run: runID, kind: KindRealm})
	runtime.AddCleanup(foreign.GlobalObject(), r.collected, tracked{run: runID, kind: KindRealmGlobal})
}

func (r *Runner) collected(t tracked) {
	r.mu.Lock()
	e, ok := r.runs[t.run]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.run.Status[t.kind] = StatusCollected
	number := e.run.Number
	active := r.activeLocked()
	r.mu.Unlock()

	r.observer.RealmCollected(string(t.kind))
	r.observer.ActiveRuns(active)
	r.logger.Info("Cleaned up foreign object",
		zap.String("run", t.run.String()),
		zap.Int("number", number),
		zap.String("kind", string(t.kind)),
	)
	r.events.publish(Event{Type: EventCollected, RunID: t.run, Number: number, Kind: t.kind, Status: StatusCollected})
}

func (r *Runner) activeLocked() int {
	n := 0
	for _, e := range r.runs {
		if !e.run.Collected() {
			n++
		}
	}
	return n
}

// breaker returns the quarantine breaker for a scenario.
func (r *Runner) breaker(scenarioID string) *resilience.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[scenarioID]
	if !ok {
		b = resilience.New(scenarioID, resilience.Settings{
			Threshold: r.config.QuarantineAfter,
			Cooldown:  r.config.QuarantineFor,
			OnStateChange: func(name string, from, to resilience.State) {
				r.logger.Warn("Scenario quarantine changed",
					zap.String("scenario", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		r.breakers[scenarioID] = b
	}
	return b
}

// Quarantined returns the sorted IDs of scenarios that are not currently
// admitted without restriction.
func (r *Runner) Quarantined() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for sid, b := range r.breakers {
		if b.State() != resilience.StateClosed {
			ids = append(ids, sid)
		}
	}
	sort.Strings(ids)
	return ids
}

// ResetQuarantine lifts a scenario's quarantine, e.g. after its definition
// was replaced.
func (r *Runner) ResetQuarantine(scenarioID string) {
	r.mu.Lock()
	b, ok := r.breakers[scenarioID]
	r.mu.Unlock()
	if ok {
		b.Reset()
	}
}

// Get returns a run snapshot.
func (r *Runner) Get(runID id.RunID) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.runs[runID]
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return e.snapshot(), nil
}

// List returns all retained runs, oldest first.
func (r *Runner) List() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Run, 0, len(r.order))
	for _, rid := range r.order {
		out = append(out, r.runs[rid].snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Revoke revokes the run's membrane. Every wrapper the host still holds
// starts failing and the foreign graph becomes unreachable through it.
func (r *Runner) Revoke(runID id.RunID) (Run, error) {
	r.mu.Lock()
	e, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	e.membrane.Revoke()

	r.mu.Lock()
	markRevoked(&e.run)
	snap := e.snapshot()
	r.mu.Unlock()

	r.announceRevoked(snap, "api")
	return snap, nil
}

// markRevoked moves every attached object of run to revoked.
func markRevoked(run *Run) {
	run.Revoked = true
	for k, s := range run.Status {
		if s == StatusAttached {
			run.Status[k] = StatusRevoked
		}
	}
}

func (r *Runner) announceRevoked(snap Run, by string) {
	r.logger.Info("Run revoked",
		zap.String("run", snap.ID.String()),
		zap.String("membrane", snap.MembraneID),
		zap.String("by", by),
	)
	r.events.publish(Event{Type: EventRunRevoked, RunID: snap.ID, Number: snap.Number, Run: &snap})
}

// Detach drops the runner's own reference to the foreign realm, the way
// removing an iframe from the page does. Whether the realm is then
// collected depends on what the host still holds.
func (r *Runner) Detach(runID id.RunID) (Run, error) {
	r.mu.Lock()
	e, ok := r.runs[runID]
	if !ok {
		r.mu.Unlock()
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	foreign := e.foreign
	e.foreign = nil
	for k, s := range e.run.Status {
		if s != StatusCollected {
			e.run.Status[k] = StatusDetached
		}
	}
	snap := e.snapshot()
	r.mu.Unlock()

	if foreign != nil {
		_ = foreign.Close()
		r.logger.Info("Run detached", zap.String("run", runID.String()))
	}
	r.events.publish(Event{Type: EventRunDetached, RunID: runID, Number: snap.Number, Run: &snap})
	return snap, nil
}

// DetachAll detaches every run.
func (r *Runner) DetachAll() int {
	r.mu.Lock()
	ids := append([]id.RunID(nil), r.order...)
	r.mu.Unlock()

	n := 0
	for _, rid := range ids {
		if _, err := r.Detach(rid); err == nil {
			n++
		}
	}
	return n
}

// CollectGarbage forces a collection cycle. Collection events for runs
// whose realms died are published as their cleanups run.
func (r *Runner) CollectGarbage() {
	runtime.GC()
	runtime.GC()
	r.logger.Info("Garbage collection finished")
	r.events.publish(Event{Type: EventGC})
}

// Subscribe returns a stream of run events and a function that ends the
// subscription.
func (r *Runner) Subscribe() (<-chan Event, func()) {
	return r.events.subscribe()
}

// Close rejects new runs and ends all subscriptions.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.events.close()
	return r.host.Close()
}

// judge turns a host result into the run's result, verdict and error text.
func judge(s Scenario, result any, err error) (string, Verdict, string) {
	if err != nil {
		var thrown *membrane.ThrownError
		if !errors.Is(err, ErrForeignScript) && errors.As(err, &thrown) {
			return "", VerdictFail, err.Error()
		}
		return "", VerdictError, err.Error()
	}
	out := Format(result)
	if s.Expect != "" && out != s.Expect {
		return out, VerdictFail, fmt.Sprintf("expected %q, got %q", s.Expect, out)
	}
	return out, VerdictPass, ""
}

// Format renders a membrane value for reports.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case membrane.UndefinedType:
		return "undefined"
	case string:
		return x
	case membrane.Object:
		if x.Callable() {
			return "[function]"
		}
		return "[object]"
	}
	return fmt.Sprint(v)
}

func mergeConsole(logs ...[]realm.LogEntry) []realm.LogEntry {
	var out []realm.LogEntry
	for _, l := range logs {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
