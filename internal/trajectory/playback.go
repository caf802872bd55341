// internal/trajectory/playback.go
package trajectory

import (
	"sort"
	"time"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/scheduler"
)

// Step is the outcome of one playback tick.
type Step struct {
	// FrameIndex is the last frame whose timestamp has been reached.
	FrameIndex int
	// Frame holds the angles to show. It equals Frames[FrameIndex] unless
	// interpolation is enabled.
	Frame MotionFrame
	// Changed is set only when FrameIndex moved since the previous tick.
	Changed bool
	// Done is set once the last frame has been reached.
	Done bool
}

// Player replays a trajectory against wall-clock time, so segments play at
// the speed they were recorded regardless of how many frames they hold.
type Player struct {
	clock scheduler.Clock

	// Interpolate blends between neighbouring frames instead of holding each
	// frame until the next timestamp. Geometry is needed to recompute the
	// blended positions.
	Interpolate bool
	Geometry    kinematics.Geometry

	traj     MotionTrajectory
	origin   time.Time
	base     float64
	current  int
	loaded   bool
	paused   bool
	finished bool
}

// NewPlayer returns an idle player.
func NewPlayer(clock scheduler.Clock) *Player {
	return &Player{clock: clock}
}

// Start begins playback of traj at frame from. It reports false, leaving the
// player idle, when traj is empty or from is out of range.
func (p *Player) Start(traj MotionTrajectory, from int) bool {
	if from < 0 || from >= len(traj.Frames) {
		p.Stop()
		return false
	}
	p.traj = traj
	p.current = from
	p.base = traj.Frames[from].Timestamp
	p.origin = p.clock.Now()
	p.loaded = true
	p.paused = false
	p.finished = false
	return true
}

// Playing reports whether ticks will advance the frame index.
func (p *Player) Playing() bool { return p.loaded && !p.paused && !p.finished }

// Paused reports whether playback is frozen by Pause.
func (p *Player) Paused() bool { return p.loaded && p.paused }

// Position returns the frame index last published.
func (p *Player) Position() int { return p.current }

// Tick advances playback to the frame matching the elapsed time.
func (p *Player) Tick() Step {
	if !p.loaded {
		return Step{Done: true}
	}
	frames := p.traj.Frames
	last := len(frames) - 1
	if p.paused || p.finished {
		return Step{FrameIndex: p.current, Frame: frames[p.current], Done: p.finished}
	}

	elapsed := millis(p.clock.Now().Sub(p.origin)) + p.base
	i := FrameIndexAt(frames, elapsed)
	if i < p.current {
		i = p.current
	}

	step := Step{FrameIndex: i, Frame: frames[i], Changed: i != p.current}
	p.current = i

	if i >= last {
		p.finished = true
		step.Done = true
		return step
	}
	if p.Interpolate {
		step.Frame = p.blend(frames[i], frames[i+1], elapsed)
	}
	return step
}

// Pause freezes playback on the current frame.
func (p *Player) Pause() {
	if p.Playing() {
		p.paused = true
	}
}

// Resume continues from the paused frame's own timestamp so nothing is
// skipped or replayed.
func (p *Player) Resume() {
	if !p.loaded || !p.paused {
		return
	}
	p.paused = false
	p.base = p.traj.Frames[p.current].Timestamp
	p.origin = p.clock.Now()
}

// Stop unloads the trajectory.
func (p *Player) Stop() {
	p.traj = MotionTrajectory{}
	p.current = 0
	p.base = 0
	p.origin = time.Time{}
	p.loaded = false
	p.paused = false
	p.finished = false
}

// blend interpolates from a towards b at elapsed ms, which must lie between
// their timestamps.
func (p *Player) blend(a, b MotionFrame, elapsed float64) MotionFrame {
	span := b.Timestamp - a.Timestamp
	if span <= 0 {
		return a
	}
	t := (elapsed - a.Timestamp) / span
	// Keep a's winding so the arm does not jump by 2Pi mid-blend.
	shoulder := a.ShoulderAngle + kinematics.LerpAngle(a.ShoulderAngle, b.ShoulderAngle, t) - kinematics.NormalizeAngle(a.ShoulderAngle)
	elbow := a.ElbowAngle + kinematics.LerpAngle(a.ElbowAngle, b.ElbowAngle, t) - kinematics.NormalizeAngle(a.ElbowAngle)
	return NewFrame(elapsed, p.Geometry.WithAngles(shoulder, elbow))
}

// FrameIndexAt returns the index i with frames[i].Timestamp <= elapsed <
// frames[i+1].Timestamp, clamped to the valid range. frames must be sorted.
func FrameIndexAt(frames []MotionFrame, elapsed float64) int {
	if len(frames) == 0 {
		return 0
	}
	i := sort.Search(len(frames), func(i int) bool {
		return frames[i].Timestamp > elapsed
	}) - 1
	if i < 0 {
		return 0
	}
	return i
}
