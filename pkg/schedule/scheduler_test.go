package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJob(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Add("@every 1s", "discover", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := New()
	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		runs    atomic.Int32
	)
	require.NoError(t, s.Add("@every 1s", "slow", func(ctx context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		runs.Add(1)
		select {
		case <-time.After(2500 * time.Millisecond):
		case <-ctx.Done():
		}
		return errors.New("slow job")
	}))

	s.Start()
	time.Sleep(3500 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestScheduler_StopCancelsJobs(t *testing.T) {
	s := New()
	started := make(chan struct{})
	var once atomic.Bool
	require.NoError(t, s.Add("@every 1s", "blocking", func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New()
	err := s.Add("every tuesday", "bad", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.True(t, s.Next().IsZero())
}

func TestScheduler_Next(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("@hourly", "hourly", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("@every 1m", "minutely", func(context.Context) error { return nil }))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	assert.WithinDuration(t, time.Now().Add(time.Minute), s.Next(), 2*time.Second)
}
