// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFrameRate approximates a display refresh.
const DefaultFrameRate = 60

// FrameID identifies a requested frame callback. The zero value is never
// issued.
type FrameID uint64

// FrameFunc runs once on the frame it was requested for.
type FrameFunc func()

// Scheduler hands out one-shot frame callbacks, in the manner of a browser
// animation-frame API. A loop re-requests itself from inside its callback and
// stops by cancelling the pending request.
type Scheduler interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
}

// queue is the pending-callback bookkeeping shared by both schedulers.
type queue struct {
	mu      sync.Mutex
	nextID  FrameID
	pending map[FrameID]FrameFunc
}

func (q *queue) request(fn FrameFunc) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[FrameID]FrameFunc)
	}
	q.nextID++
	q.pending[q.nextID] = fn
	return q.nextID
}

func (q *queue) cancel(id FrameID) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}

func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// drain runs every callback that was pending when it was called, in request
// order. Callbacks requested while draining wait for the next frame, and a
// callback cancelled by an earlier one in the same batch is skipped.
func (q *queue) drain() int {
	q.mu.Lock()
	ids := make([]FrameID, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	q.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ran := 0
	for _, id := range ids {
		q.mu.Lock()
		fn, ok := q.pending[id]
		delete(q.pending, id)
		q.mu.Unlock()
		if !ok {
			continue
		}
		fn()
		ran++
	}
	return ran
}

// TickerScheduler runs frame callbacks serially on the goroutine that calls
// Run, at a fixed frame rate.
type TickerScheduler struct {
	queue
	interval time.Duration
	logger   *zap.Logger
}

// NewTickerScheduler returns a scheduler ticking frameRate times per second.
// A non-positive rate uses DefaultFrameRate.
func NewTickerScheduler(frameRate int, logger *zap.Logger) *TickerScheduler {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(frameRate),
		logger:   logger.Named("scheduler"),
	}
}

// Interval is the time between frames.
func (s *TickerScheduler) Interval() time.Duration { return s.interval }

// RequestFrame queues fn for the next tick.
func (s *TickerScheduler) RequestFrame(fn FrameFunc) FrameID { return s.request(fn) }

// CancelFrame drops a queued callback. Cancelling an id that already ran or
// was never issued is a no-op.
func (s *TickerScheduler) CancelFrame(id FrameID) { s.cancel(id) }

// Pending reports the number of queued callbacks.
func (s *TickerScheduler) Pending() int { return s.size() }

// Run drives the frame loop until ctx is done.
func (s *TickerScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("Frame loop started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Frame loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			s.drain()
		}
	}
}

// ManualScheduler only runs callbacks when stepped. It pairs with a
// ManualClock for deterministic tests and headless simulation.
type ManualScheduler struct {
	queue
}

// NewManualScheduler returns an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) RequestFrame(fn FrameFunc) FrameID { return s.request(fn) }
func (s *ManualScheduler) CancelFrame(id FrameID)            { s.cancel(id) }

// Pending reports the number of queued callbacks.
func (s *ManualScheduler) Pending() int { return s.size() }

// Step runs one frame and returns how many callbacks ran.
func (s *ManualScheduler) Step() int { return s.drain() }
