package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(retries int) Policy {
	p := DefaultPolicy()
	p.Initial = time.Millisecond
	p.Retries = retries
	return p
}

func TestRetrier_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		attempts := 0
		err := New(fastPolicy(3)).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("success after retries", func(t *testing.T) {
		attempts := 0
		err := New(fastPolicy(3)).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("503")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("budget exhausted returns last error", func(t *testing.T) {
		attempts := 0
		err := New(fastPolicy(2)).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("still down")
		})
		assert.EqualError(t, err, "still down")
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		notFound := errors.New("404")
		attempts := 0
		err := New(fastPolicy(5)).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return Permanent(notFound)
		})
		assert.ErrorIs(t, err, notFound)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retry predicate", func(t *testing.T) {
		fatal := errors.New("bad request")
		attempts := 0
		r := New(fastPolicy(5), WithRetryIf(func(err error) bool { return !errors.Is(err, fatal) }))
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return fatal
		})
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := New(fastPolicy(5), WithInitialInterval(time.Second))
		attempts := 0
		err := r.Do(ctx, func(ctx context.Context) error {
			attempts++
			cancel()
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}

func TestWithRetries(t *testing.T) {
	attempts := 0
	err := New(fastPolicy(5), WithRetries(1)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("timeout")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, attempts, "one call plus one retry")
}
