package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/events"
)

func TestNewScheduler_ValidatesJobs(t *testing.T) {
	logger := zap.NewNop()

	_, err := NewScheduler(nil, events.NopPublisher{}, logger)
	assert.Error(t, err, "no jobs")

	_, err = NewScheduler([]Job{{Name: "bad", Interval: 0, Run: func(context.Context) error { return nil }}},
		events.NopPublisher{}, logger)
	assert.Error(t, err, "non-positive interval")

	_, err = NewScheduler([]Job{{Name: "bad", Interval: time.Second}}, events.NopPublisher{}, logger)
	assert.Error(t, err, "nil run function")
}

func TestScheduler_RunsJobsPeriodically(t *testing.T) {
	var runs atomic.Int64
	s, err := NewScheduler([]Job{{
		Name:     "counter",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}}, events.NopPublisher{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "counter", status[0].Name)
	assert.False(t, status[0].LastCompleted.IsZero())
	assert.Empty(t, status[0].LastError)
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	s, err := NewScheduler([]Job{{
		Name:     "noop",
		Interval: time.Hour,
		Run:      func(context.Context) error { return nil },
	}}, events.NopPublisher{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	s.Stop()

	// Stop is idempotent.
	s.Stop()

	// A stopped scheduler can be started again.
	require.NoError(t, s.Start())
	s.Stop()
}

func TestScheduler_FailedCyclePublishesAnalysisError(t *testing.T) {
	recorder := &events.Recorder{}
	s, err := NewScheduler([]Job{{
		Name:     "failing",
		Interval: 5 * time.Millisecond,
		Run:      func(context.Context) error { return fmt.Errorf("boom") },
	}}, recorder, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		for _, name := range recorder.Names() {
			if name == events.AnalysisError {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "boom", status[0].LastError)
	assert.True(t, status[0].LastCompleted.IsZero(), "failed cycles do not count as completed")
}

func TestScheduler_RecoversFromPanic(t *testing.T) {
	var runs atomic.Int64
	recorder := &events.Recorder{}
	s, err := NewScheduler([]Job{{
		Name:     "panicky",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			panic("unexpected state")
		},
	}}, recorder, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	// The loop survives the panic and keeps ticking.
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Contains(t, status[0].LastError, "panicked")
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int64
	s, err := NewScheduler([]Job{{
		Name:     "slow",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			started.Add(1)
			<-release
			return nil
		},
	}}, events.NopPublisher{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, time.Millisecond)

	// Let several ticks fire while the first run is still in flight.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), started.Load(), "overlapping ticks are skipped, not queued")

	status := s.Status()
	require.Len(t, status, 1)
	assert.True(t, status[0].InFlight)

	close(release)
	s.Stop()
}
