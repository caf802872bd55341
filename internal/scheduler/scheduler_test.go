// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestManualScheduler_RunsInRequestOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []int
	s.RequestFrame(func() { order = append(order, 1) })
	s.RequestFrame(func() { order = append(order, 2) })
	s.RequestFrame(func() { order = append(order, 3) })

	assert.Equal(t, 3, s.Pending())
	assert.Equal(t, 3, s.Step())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, s.Step(), "callbacks are one-shot")
}

func TestManualScheduler_ReRequestWaitsForNextFrame(t *testing.T) {
	s := NewManualScheduler()
	ticks := 0
	var loop FrameFunc
	loop = func() {
		ticks++
		s.RequestFrame(loop)
	}
	s.RequestFrame(loop)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, s.Step())
	}
	assert.Equal(t, 5, ticks)
}

func TestManualScheduler_Cancel(t *testing.T) {
	t.Run("BeforeFrame", func(t *testing.T) {
		s := NewManualScheduler()
		ran := false
		id := s.RequestFrame(func() { ran = true })
		s.CancelFrame(id)
		assert.Equal(t, 0, s.Step())
		assert.False(t, ran)
	})

	t.Run("ByEarlierCallbackInSameFrame", func(t *testing.T) {
		s := NewManualScheduler()
		ran := false
		var victim FrameID
		s.RequestFrame(func() { s.CancelFrame(victim) })
		victim = s.RequestFrame(func() { ran = true })

		assert.Equal(t, 1, s.Step())
		assert.False(t, ran)
	})

	t.Run("UnknownIDIsNoop", func(t *testing.T) {
		s := NewManualScheduler()
		assert.NotPanics(t, func() { s.CancelFrame(12345) })
	})
}

func TestTickerScheduler_RunsFramesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewTickerScheduler(200, zaptest.NewLogger(t))
	assert.Equal(t, 5*time.Millisecond, s.Interval())

	var ticks atomic.Int32
	var loop FrameFunc
	loop = func() {
		if ticks.Add(1) < 5 {
			s.RequestFrame(loop)
		}
	}
	s.RequestFrame(loop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return ticks.Load() == 5 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, 0, s.Pending())
}

func TestTickerScheduler_CancelledFrameNeverRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewTickerScheduler(500, nil)
	var ran atomic.Bool
	id := s.RequestFrame(func() { ran.Store(true) })
	s.CancelFrame(id)

	var marker atomic.Bool
	s.RequestFrame(func() { marker.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, marker.Load, 2*time.Second, time.Millisecond)
	cancel()
	<-done
	assert.False(t, ran.Load())
}

func TestTickerScheduler_DefaultRate(t *testing.T) {
	s := NewTickerScheduler(0, nil)
	assert.Equal(t, time.Second/DefaultFrameRate, s.Interval())
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(16 * time.Millisecond)
	assert.Equal(t, start.Add(16*time.Millisecond), c.Now())

	c.Advance(-time.Second)
	assert.Equal(t, start.Add(16*time.Millisecond), c.Now(), "the clock never runs backwards")

	c.Set(start)
	assert.Equal(t, start.Add(16*time.Millisecond), c.Now())
	c.Set(start.Add(time.Second))
	assert.Equal(t, start.Add(time.Second), c.Now())

	var _ Clock = SystemClock{}
	assert.WithinDuration(t, time.Now(), SystemClock{}.Now(), time.Second)
}
