package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

const (
	// DefaultFieldDebounce is the single-field debounce window.
	DefaultFieldDebounce = 300 * time.Millisecond
	// DefaultFormDebounce is the whole-form debounce window.
	DefaultFormDebounce = time.Second
	// DefaultConcurrency bounds parallel evaluations during a whole-form pass.
	DefaultConcurrency = 4

	tracerName = "github.com/goliatone/go-formadvisor/pkg/session"
)

// ErrSessionClosed is returned by edits made after Close.
var ErrSessionClosed = errors.New("session: closed")

// Mode selects how edits trigger advisory evaluation.
type Mode int

const (
	// ModeField debounces and evaluates each field on its own.
	ModeField Mode = iota
	// ModeForm debounces edits form-wide and evaluates every non-blank field
	// in one pass.
	ModeForm
)

// Option customises a Session.
type Option func(*Session)

// WithEvaluator sets the advisory boundary. Defaults to advisory.New().
func WithEvaluator(ev advisory.Evaluator) Option {
	return func(s *Session) {
		if ev != nil {
			s.evaluator = ev
		}
	}
}

// WithDebounce sets the single-field debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.fieldDebounce = d
		}
	}
}

// WithFormDebounce sets the whole-form debounce window.
func WithFormDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.formDebounce = d
		}
	}
}

// WithMode selects per-field or whole-form evaluation.
func WithMode(mode Mode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithConcurrency bounds parallel evaluations in a whole-form pass.
func WithConcurrency(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScheduler replaces the wall-clock timer source.
func WithScheduler(scheduler Scheduler) Option {
	return func(s *Session) {
		if scheduler != nil {
			s.scheduler = scheduler
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records evaluation outcomes.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Session) {
		s.metrics = metrics
	}
}

// WithTracer sets the tracer used for evaluation spans. Defaults to the
// global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithOnChange registers a listener that receives a snapshot after every
// state transition. Snapshots are delivered in transition order and never
// concurrently; the listener may call back into the Session.
func WithOnChange(fn func(FieldState)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// Session owns the live validation state of one rendered form. Structural
// checks run synchronously on every edit; advisory evaluations are debounced,
// run asynchronously, and are committed only when their per-field token is
// still the latest one issued.
type Session struct {
	id            string
	validator     *validation.Validator
	evaluator     advisory.Evaluator
	fieldDebounce time.Duration
	formDebounce  time.Duration
	mode          Mode
	concurrency   int
	scheduler     Scheduler
	logger        *slog.Logger
	metrics       *Metrics
	tracer        trace.Tracer
	onChange      func(FieldState)

	base   context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	order     []string
	slots     map[string]*slot
	formTimer Timer
	formSeq   uint64
	closed    bool
	changed   chan struct{}
	queue     []FieldState
	draining  bool
}

// New starts a session over a compiled validator.
func New(v *validation.Validator, options ...Option) *Session {
	s := &Session{
		id:            uuid.NewString(),
		validator:     v,
		evaluator:     advisory.New(),
		fieldDebounce: DefaultFieldDebounce,
		formDebounce:  DefaultFormDebounce,
		concurrency:   DefaultConcurrency,
		scheduler:     wallClock{},
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
		slots:         make(map[string]*slot),
		changed:       make(chan struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With("session", s.id)
	s.base, s.cancel = context.WithCancel(context.Background())

	for _, def := range v.Fields() {
		s.order = append(s.order, def.ID)
		s.slots[def.ID] = newSlot(def)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Validator returns the compiled validator backing the session.
func (s *Session) Validator() *validation.Validator {
	return s.validator
}

// Set records a new value for fieldID. The structural outcome is computed and
// returned immediately. A blank value returns the field to idle and cancels
// any advisory work; any other value (re)starts the debounce window.
func (s *Session) Set(fieldID string, value any) (validation.Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return validation.Outcome{}, ErrSessionClosed
	}
	sl, ok := s.slots[fieldID]
	if !ok {
		s.mu.Unlock()
		return validation.Outcome{}, fmt.Errorf("session: %w %q", validation.ErrUnknownField, fieldID)
	}
	outcome, err := s.validator.Check(fieldID, value)
	if err != nil {
		s.mu.Unlock()
		return validation.Outcome{}, err
	}

	sl.stop()
	sl.token++
	sl.value = value
	sl.touched = true
	sl.structural = outcome

	switch {
	case validation.IsBlank(value):
		sl.phase = PhaseIdle
		sl.shown = AdvisoryOutcome{Status: AdvisoryIdle}
		sl.resolved = nil
	case s.mode == ModeForm:
		sl.restore()
		sl.phase = PhaseDebouncing
		s.scheduleFormLocked()
	default:
		// A cancelled evaluation no longer counts as pending; the last
		// committed outcome shows until the new window elapses.
		sl.restore()
		sl.phase = PhaseDebouncing
		token := sl.token
		sl.timer = s.scheduler.AfterFunc(s.fieldDebounce, func() {
			s.fire(fieldID, token)
		})
	}
	s.emitLocked(sl)
	s.mu.Unlock()

	s.drain()
	return outcome, nil
}

// EvaluateAll schedules a whole-form advisory pass after the form debounce
// window. Calling it again restarts the window.
func (s *Session) EvaluateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.scheduleFormLocked()
	return nil
}

// Flush skips every pending debounce window and starts the corresponding
// evaluations now.
func (s *Session) Flush() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	var jobs []job
	if s.formTimer != nil {
		s.formTimer.Stop()
		s.formTimer = nil
		s.formSeq++
		jobs = s.formPassLocked()
	} else {
		for _, id := range s.order {
			sl := s.slots[id]
			if sl.timer == nil {
				continue
			}
			sl.timer.Stop()
			sl.timer = nil
			jobs = append(jobs, s.startLocked(id, sl))
		}
	}
	s.mu.Unlock()

	s.drain()
	s.launch(jobs)
	return nil
}

// Wait blocks until no field is debouncing or pending, or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.busyLocked() {
			s.mu.Unlock()
			return nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Reset clears every value and returns all fields to idle. In-flight
// evaluations are cancelled and their results ignored.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.stopFormLocked()
	for _, id := range s.order {
		sl := s.slots[id]
		sl.stop()
		sl.token++
		sl.value = nil
		sl.touched = false
		sl.structural = validation.Outcome{Valid: true}
		sl.phase = PhaseIdle
		sl.shown = AdvisoryOutcome{Status: AdvisoryIdle}
		sl.resolved = nil
		s.emitLocked(sl)
	}
	s.mu.Unlock()

	s.drain()
	return nil
}

// Close stops all timers and cancels in-flight evaluations. Completions that
// arrive afterwards are dropped. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stopFormLocked()
	for _, id := range s.order {
		s.slots[id].stop()
	}
	s.cancel()
	s.broadcastLocked()
	return nil
}

// State returns a snapshot of one field.
func (s *Session) State(fieldID string) (FieldState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[fieldID]
	if !ok {
		return FieldState{}, false
	}
	return sl.snapshot(), true
}

// States returns snapshots of every field in schema order.
func (s *Session) States() []FieldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FieldState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.slots[id].snapshot())
	}
	return out
}

// Values returns the current value of every touched field.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.order))
	for _, id := range s.order {
		if sl := s.slots[id]; sl.touched {
			out[id] = sl.value
		}
	}
	return out
}

func (s *Session) busyLocked() bool {
	if s.closed {
		return false
	}
	if s.formTimer != nil {
		return true
	}
	for _, sl := range s.slots {
		if sl.busy() {
			return true
		}
	}
	return false
}

func (s *Session) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
