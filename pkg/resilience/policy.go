// Package resilience wraps calls to a remote dependency with a bounded
// retry and a circuit breaker keyed by the remote's name.
//
// Retry wraps the breaker: every attempt asks the breaker first, and an open
// breaker ends the retry loop at once. Errors marked Permanent are returned
// without retrying and are not counted against the breaker. Errors marked
// Abort are not retried either but do count as breaker failures.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

var ErrCircuitOpen = errors.New("circuit open")

type RetrySettings struct {
	MaxAttempts     int           `koanf:"max_attempts"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
}

type BreakerSettings struct {
	FailureRatio float64       `koanf:"failure_ratio"`
	MinRequests  uint32        `koanf:"min_requests"`
	Window       time.Duration `koanf:"window"`
	OpenTimeout  time.Duration `koanf:"open_timeout"`
	HalfOpenMax  uint32        `koanf:"half_open_max"`
}

type Settings struct {
	Name    string
	Timeout time.Duration
	Retry   RetrySettings
	Breaker BreakerSettings
}

// DefaultSettings mirrors resilience4j's defaults: 3 attempts 500ms apart,
// open at 50% failures over at least 10 calls.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:    name,
		Timeout: 5 * time.Second,
		Retry: RetrySettings{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		Breaker: BreakerSettings{
			FailureRatio: 0.5,
			MinRequests:  10,
			Window:       10 * time.Second,
			OpenTimeout:  10 * time.Second,
			HalfOpenMax:  3,
		},
	}
}

type Policy struct {
	log     *slog.Logger
	name    string
	timeout time.Duration
	retry   RetrySettings
	breaker *gobreaker.CircuitBreaker
}

func NewPolicy(log *slog.Logger, s Settings) *Policy {
	if s.Retry.MaxAttempts < 1 {
		s.Retry.MaxAttempts = 1
	}
	p := &Policy{
		log:     log.With("remote", s.Name),
		name:    s.Name,
		timeout: s.Timeout,
		retry:   s.Retry,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.Breaker.HalfOpenMax,
		Interval:    s.Breaker.Window,
		Timeout:     s.Breaker.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.Breaker.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
			breakerState.WithLabelValues(name).Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
	})
	breakerState.WithLabelValues(s.Name).Set(float64(gobreaker.StateClosed))
	return p
}

func (p *Policy) Name() string { return p.name }

func (p *Policy) State() gobreaker.State { return p.breaker.State() }

// Do runs fn until it succeeds, returns a Permanent or Abort error, the
// breaker is open, the attempt budget is spent or ctx is done. Each attempt
// gets its own timeout. The returned error is fn's last error with any
// marker stripped, or one wrapping ErrCircuitOpen.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		_, err := p.breaker.Execute(func() (any, error) {
			actx, cancel := p.attemptContext(ctx)
			defer cancel()
			return nil, fn(actx)
		})
		switch {
		case err == nil:
			attempts.WithLabelValues(p.name, op, "success").Inc()
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			attempts.WithLabelValues(p.name, op, "rejected").Inc()
			return backoff.Permanent(fmt.Errorf("%s: %w: %v", p.name, ErrCircuitOpen, err))
		case IsPermanent(err):
			attempts.WithLabelValues(p.name, op, "permanent").Inc()
			return backoff.Permanent(err)
		case isAbort(err):
			attempts.WithLabelValues(p.name, op, "aborted").Inc()
			return backoff.Permanent(err)
		default:
			attempts.WithLabelValues(p.name, op, "failure").Inc()
			p.log.Debug("remote call failed", "op", op, "attempt", attempt, "err", err)
			return err
		}
	}

	err := backoff.Retry(operation, p.backoff(ctx))
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	var abort *abortError
	if errors.As(err, &abort) {
		return abort.err
	}
	return err
}

func (p *Policy) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Policy) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.retry.InitialInterval
	if p.retry.MaxInterval > 0 {
		exp.MaxInterval = p.retry.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.retry.MaxAttempts-1)), ctx)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying, such as a 404 from the remote.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// Abort marks err as not worth retrying while still counting it against the
// breaker, such as a 200 response whose body cannot be decoded.
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return &abortError{err: err}
}

func isAbort(err error) bool {
	var abort *abortError
	return errors.As(err, &abort)
}
