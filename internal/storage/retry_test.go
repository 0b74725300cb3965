package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetrier(attempts int) Retrier {
	return Retrier{MaxAttempts: attempts, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}
}

func TestRetrierSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetrier(4).Do(context.Background(), "k", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierGivesUp(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := fastRetrier(3).Do(context.Background(), "k", func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetrierStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := Retrier{MaxAttempts: 5, BaseDelay: time.Hour}
	err := r.Do(ctx, "k", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
