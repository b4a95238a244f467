//go:build unit

package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"travelcore/internal/scheduler"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerRunsImmediatelyOnStart(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(scheduler.Job{
		Name:     "counter",
		Interval: time.Hour, // only the immediate run should fire
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestSchedulerTicks(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(scheduler.Job{
		Name:     "ticker",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return runs.Load() >= 3 })
}

func TestSchedulerStopWaitsForJobs(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	s := scheduler.New(scheduler.Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	})

	s.Start()
	<-started
	s.Stop()

	assert.True(t, finished.Load(), "Stop must wait for in-flight runs")
}

func TestSchedulerFailingJobKeepsTicking(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(scheduler.Job{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})

	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return runs.Load() >= 3 })
}

func TestSchedulerJobsRunIndependently(t *testing.T) {
	var fast atomic.Int32
	block := make(chan struct{})
	s := scheduler.New(
		scheduler.Job{
			Name:     "stuck",
			Interval: time.Hour,
			Run: func(ctx context.Context) error {
				<-block
				return nil
			},
		},
		scheduler.Job{
			Name:     "fast",
			Interval: 10 * time.Millisecond,
			Run: func(ctx context.Context) error {
				fast.Add(1)
				return nil
			},
		},
	)

	s.Start()
	waitFor(t, func() bool { return fast.Load() >= 3 })
	close(block)
	s.Stop()
}

func TestSchedulerRegisterBeforeStart(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New()
	s.Register(scheduler.Job{
		Name:     "late",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(scheduler.Job{
		Name:     "once",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start()
	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return runs.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "double Start must not spawn a second loop")
}
