package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) ExpireTimedOutAttempts(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 1, nil
}

func TestNewScheduler(t *testing.T) {
	sweeper := &countingSweeper{}

	scheduler, err := newScheduler("", sweeper)
	require.NoError(t, err)
	assert.Nil(t, scheduler)

	_, err = newScheduler("not a schedule", sweeper)
	assert.Error(t, err)

	scheduler, err = newScheduler("@every 1s", sweeper)
	require.NoError(t, err)
	require.NotNil(t, scheduler)

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
