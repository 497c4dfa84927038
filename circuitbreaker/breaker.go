package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-contact-cache/internal/guard"
)

// ErrOpen is returned without running the operation while the breaker is Open,
// or while a HalfOpen trial is already in flight.
var ErrOpen = goerrors.New("circuit breaker is open", goerrors.CategoryRateLimit).
	WithTextCode("CIRCUIT_OPEN")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the breaker settings. It is copied at construction.
type Config struct {
	Name string `mapstructure:"name"`

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int `mapstructure:"failure_threshold"`

	// Cooldown is how long the breaker stays Open before allowing a trial call.
	Cooldown time.Duration `mapstructure:"cooldown"`

	// IsFailure decides whether an error counts against the breaker.
	// Defaults to DefaultIsFailure.
	IsFailure func(error) bool `mapstructure:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:             "cache",
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// Validate checks the threshold and cooldown.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.Cooldown, validation.Required, validation.Min(time.Duration(1))),
	)
}

// DefaultIsFailure counts every error except invalid arguments, which are
// rejected before the protected backend is reached.
func DefaultIsFailure(err error) bool {
	return !errors.Is(err, guard.ErrInvalidArgument)
}

// Snapshot is a point in time view of a breaker.
type Snapshot struct {
	Name                string
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
	TrialInFlight       bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithOnStateChange registers fn to be called on every transition. Hooks run
// while the breaker lock is held and must not call back into the breaker.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		if fn != nil {
			b.hooks = append(b.hooks, fn)
		}
	}
}

// Breaker is a consecutive-failure circuit breaker. It is safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	isFailure func(error) bool
	openErr   error

	logger *zap.Logger
	now    func() time.Time
	hooks  []func(name string, from, to State)

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	// generation changes on every transition; results from an older
	// generation are discarded.
	generation uint64
	trial      bool
}

// New validates cfg and returns a Closed breaker.
func New(cfg Config, opts ...Option) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: circuit breaker %q: %v", guard.ErrInvalidArgument, cfg.Name, err)
	}

	b := &Breaker{
		name:      cfg.Name,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		isFailure: cfg.IsFailure,
		openErr:   fmt.Errorf("%w: %s", ErrOpen, cfg.Name),
		logger:    zap.NewNop(),
		now:       time.Now,
		state:     Closed,
	}
	if b.isFailure == nil {
		b.isFailure = DefaultIsFailure
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("breaker", b.name))

	return b, nil
}

// Name returns the configured name.
func (b *Breaker) Name() string {
	return b.name
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ticket, err := b.acquire()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.releasePanic(ticket, fmt.Errorf("circuit breaker %s: operation panicked: %v", b.name, r))
			panic(r)
		}
	}()

	err = fn(ctx)
	b.release(ctx, ticket, err)
	return err
}

// Execute runs fn through b and returns its result. On rejection the zero
// value and ErrOpen are returned.
func Execute[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// State returns the current state. An Open breaker whose cooldown has elapsed
// still reports Open until the next call starts the trial.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the current counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:                b.name,
		State:               b.state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
		TrialInFlight:       b.trial,
	}
}

// Reset forces the breaker Closed and clears its counters. Calls in flight
// when Reset runs are discarded.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.openedAt = time.Time{}
	if b.state != Closed {
		b.transition(Closed)
		return
	}
	b.generation++
	b.trial = false
}

type ticket struct {
	generation uint64
	trial      bool
}

func (b *Breaker) acquire() (ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return ticket{generation: b.generation}, nil
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ticket{}, b.openErr
		}
		b.transition(HalfOpen)
	case HalfOpen:
		if b.trial {
			return ticket{}, b.openErr
		}
	}

	b.trial = true
	return ticket{generation: b.generation, trial: true}, nil
}

func (b *Breaker) release(ctx context.Context, t ticket, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t.generation != b.generation {
		return
	}

	switch {
	case err == nil:
		b.onSuccess(t)
	case b.neutral(ctx, err):
		if t.trial {
			b.trial = false
		}
	default:
		b.onFailure(t, err)
	}
}

// releasePanic records a panicking operation as a failure whatever the
// failure predicate says, so a panicking trial reopens the breaker.
func (b *Breaker) releasePanic(t ticket, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t.generation != b.generation {
		return
	}
	b.onFailure(t, err)
}

func (b *Breaker) neutral(ctx context.Context, err error) bool {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return true
	}
	return !b.isFailure(err)
}

func (b *Breaker) onSuccess(t ticket) {
	b.failures = 0
	if t.trial {
		b.transition(Closed)
	}
}

func (b *Breaker) onFailure(t ticket, err error) {
	b.failures++
	if t.trial || b.failures >= b.threshold {
		b.openedAt = b.now()
		b.transition(Open)
		b.logger.Warn("circuit breaker opened",
			zap.Int("failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
			zap.Error(err),
		)
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.generation++
	b.trial = false
	if to == Closed {
		b.failures = 0
	}

	if to != Open {
		b.logger.Info("circuit breaker state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	for _, hook := range b.hooks {
		hook(b.name, from, to)
	}
}
