package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/scheduler"
)

func TestPriorityOrdering(t *testing.T) {
	s := scheduler.New(0.01, nil)
	var fired []int

	s.Schedule(scheduler.EventSpec{
		At: 0, Until: 0.005, Priority: 2, Oneshot: true,
		Action: func(ctx context.Context, tt float64) error {
			fired = append(fired, 2)
			return nil
		},
	})
	s.Schedule(scheduler.EventSpec{
		At: 0, Until: 0.005, Priority: 1, Oneshot: true,
		Action: func(ctx context.Context, tt float64) error {
			fired = append(fired, 1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	require.Len(t, fired, 2)
	assert.Equal(t, []int{1, 2}, fired)
}

func TestStepRecurrence(t *testing.T) {
	s := scheduler.New(1, nil)
	s.SetTimeScale(1000) // run fast for the test
	step := 1.0
	count := 0

	s.Schedule(scheduler.EventSpec{
		At: 0, Until: 3, Step: &step, Priority: 1,
		Action: func(ctx context.Context, tt float64) error {
			count++
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 4, count) // t=0,1,2,3
}

func TestOneshotRemovedAfterFiring(t *testing.T) {
	s := scheduler.New(1, nil)
	s.SetTimeScale(1000)
	fireCount := 0

	s.Schedule(scheduler.EventSpec{
		At: 0, Until: 5, Oneshot: true, Priority: 1,
		Action: func(ctx context.Context, tt float64) error {
			fireCount++
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 1, fireCount)
}

func TestCancel(t *testing.T) {
	s := scheduler.New(1, nil)
	s.SetTimeScale(1000)
	fired := false

	id := s.Schedule(scheduler.EventSpec{
		At: 0, Until: 5, Priority: 1,
		Action: func(ctx context.Context, tt float64) error {
			fired = true
			return nil
		},
	})
	s.Cancel(id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.False(t, fired)
}
