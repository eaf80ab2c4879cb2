package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sony/gobreaker/v2"
	"github.com/zoobzio/clockz"
)

// Executor runs calls to an external dependency with bounded, backed-off retries
// behind one circuit breaker per operation name.
type Executor struct {
	policy   Policy
	clock    clockz.Clock
	listener func(operation, from, to string)

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

type Option func(*Executor)

// WithClock replaces the clock used to wait between retries.
func WithClock(clock clockz.Clock) Option {
	return func(e *Executor) { e.clock = clock }
}

// WithStateListener is notified on every breaker state transition.
func WithStateListener(fn func(operation, from, to string)) Option {
	return func(e *Executor) { e.listener = fn }
}

func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{
		policy:   policy.withDefaults(),
		clock:    clockz.RealClock,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes fn under the executor's policy.
func (e *Executor) Run(ctx context.Context, operation string, classify Classifier, fn func(context.Context) error) error {
	_, err := Call(ctx, e, operation, classify, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call executes fn under the executor's policy and returns its result.
func Call[T any](ctx context.Context, e *Executor, operation string, classify Classifier, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, errors.New("resilience: nil callback")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unnamed"
	}
	if classify == nil {
		classify = Permanent
	}

	if !e.policy.BreakerEnabled {
		return retry(ctx, e, op, classify, fn)
	}

	out, err := e.breaker(op, classify).Execute(func() (any, error) {
		return retry(ctx, e, op, classify, fn)
	})
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func retry[T any](ctx context.Context, e *Executor, op string, classify Classifier, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !classify(err).Retry || attempt >= e.policy.MaxAttempts {
			return zero, err
		}

		wait := e.policy.backoffFor(attempt)
		slog.Warn("retry_attempt",
			"operation", op,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w (retry aborted: %v)", err, ctx.Err())
		case <-e.clock.After(wait):
		}
	}
}

func (e *Executor) breaker(op string, classify Classifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[op]; ok {
		return b
	}

	p := e.policy
	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        op,
		MaxRequests: p.BreakerProbeCalls,
		Timeout:     p.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= p.BreakerMinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= p.BreakerFailRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).Breaks
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			if e.listener != nil {
				e.listener(name, from.String(), to.String())
			}
		},
	})
	e.breakers[op] = b
	return b
}

// IsCircuitOpen reports whether err was produced by an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
