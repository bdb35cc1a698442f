// Package retrier retries transient failures with exponential backoff.
package retrier

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy configures a Retrier.
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Retries    int
	Jitter     float64 // fraction of the interval, 0..1
}

// DefaultPolicy suits HTTP calls to a public quote API.
func DefaultPolicy() Policy {
	return Policy{
		Initial:    500 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2,
		Retries:    3,
		Jitter:     0.1,
	}
}

// Retrier runs a function until it succeeds, returns a permanent error or
// the retry budget is spent.
type Retrier struct {
	policy    Policy
	retryable func(error) bool
}

// Option customises a Retrier.
type Option func(*Retrier)

// WithRetries sets how many times a failed call is retried.
func WithRetries(n int) Option {
	return func(r *Retrier) { r.policy.Retries = n }
}

// WithInitialInterval sets the first backoff interval.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) { r.policy.Initial = d }
}

// WithRetryIf limits retries to errors for which fn reports true.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) { r.retryable = fn }
}

func New(p Policy, opts ...Option) *Retrier {
	r := &Retrier{policy: p, retryable: func(error) bool { return true }}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.Multiplier < 1 {
		r.policy.Multiplier = 1
	}
	return r
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn at most Retries+1 times.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	interval := r.policy.Initial

	for attempt := 0; attempt <= r.policy.Retries; attempt++ {
		if attempt > 0 {
			jitter := (rand.Float64()*2 - 1) * r.policy.Jitter * float64(interval)
			wait := time.Duration(float64(interval) + jitter)
			if wait < 0 {
				wait = 0
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}

			interval = time.Duration(float64(interval) * r.policy.Multiplier)
			if r.policy.Max > 0 && interval > r.policy.Max {
				interval = r.policy.Max
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if !r.retryable(err) {
			return err
		}
	}

	return err
}
