// internal/trajectory/capture.go
package trajectory

import (
	"math"
	"time"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/scheduler"
)

// DefaultAngleEpsilon is the joint change, in radians, below which a capture
// tick is treated as idle input and not recorded.
const DefaultAngleEpsilon = 1e-4

// Capture samples the live arm into frames while recording. It is polled once
// per display frame; it does not subscribe to input events.
type Capture struct {
	clock   scheduler.Clock
	epsilon float64

	active bool
	origin time.Time

	// Angles of the last frame this segment recorded.
	hasLast      bool
	lastShoulder float64
	lastElbow    float64
}

// NewCapture returns an idle capture controller. A non-positive epsilon falls
// back to DefaultAngleEpsilon.
func NewCapture(clock scheduler.Clock, epsilon float64) *Capture {
	if epsilon <= 0 {
		epsilon = DefaultAngleEpsilon
	}
	return &Capture{clock: clock, epsilon: epsilon}
}

// Active reports whether a segment is being recorded.
func (c *Capture) Active() bool { return c.active }

// Start opens a recording segment for traj. When traj already has frames the
// time origin is shifted back so new timestamps continue from the last one,
// which is what appending after a redraw needs.
func (c *Capture) Start(traj MotionTrajectory) {
	now := c.clock.Now()
	c.origin = now
	if last, ok := traj.LastFrame(); ok {
		c.origin = now.Add(-time.Duration(last.Timestamp * float64(time.Millisecond)))
	}
	c.hasLast = false
	c.active = true
}

// Tick samples live and returns current with a new frame appended when either
// joint moved by more than epsilon since the last recorded frame. The boolean
// reports whether a frame was added; when false, current is returned as is.
func (c *Capture) Tick(current MotionTrajectory, live kinematics.ArmConfig) (MotionTrajectory, bool) {
	if !c.active {
		return current, false
	}

	if c.hasLast &&
		math.Abs(live.ShoulderAngle-c.lastShoulder) <= c.epsilon &&
		math.Abs(live.ElbowAngle-c.lastElbow) <= c.epsilon {
		return current, false
	}

	elapsed := millis(c.clock.Now().Sub(c.origin))
	if last, ok := current.LastFrame(); ok && elapsed < last.Timestamp {
		elapsed = last.Timestamp
	}

	frame := NewFrame(elapsed, live)
	c.hasLast = true
	c.lastShoulder = live.ShoulderAngle
	c.lastElbow = live.ElbowAngle

	return current.WithFrames(append(current.Frames, frame)), true
}

// Stop closes the segment. The origin and the dedup cache are cleared so the
// next Start begins clean.
func (c *Capture) Stop() {
	c.active = false
	c.origin = time.Time{}
	c.hasLast = false
	c.lastShoulder = 0
	c.lastElbow = 0
}
