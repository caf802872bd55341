// internal/session/session.go
package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/scheduler"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

// State is the recording-state signal that decides which loop is live.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
)

// Options configures a Session.
type Options struct {
	Geometry kinematics.Geometry
	// TargetRadius is the radius of the completion zone around the target.
	TargetRadius float64
	// GrabRadius is how close to the end effector a press must land to start
	// a drag.
	GrabRadius float64
	// MinMoveDistance is the pointer travel below which a drag move is ignored.
	MinMoveDistance float64
	// AngleEpsilon is the capture dedup threshold in radians.
	AngleEpsilon float64
	// Interpolate blends between frames during playback.
	Interpolate bool
	// AutoRelease ends a drag as soon as the end effector enters the target
	// zone.
	AutoRelease bool
}

// DefaultOptions mirrors the defaults of the config package.
func DefaultOptions() Options {
	return Options{
		Geometry: kinematics.Geometry{
			ShoulderPosition: kinematics.Vector2D{X: 400, Y: 300},
			UpperArmLength:   150,
			LowerArmLength:   130,
		},
		TargetRadius: 20,
		GrabRadius:   25,
		AngleEpsilon: trajectory.DefaultAngleEpsilon,
		AutoRelease:  true,
	}
}

// Session owns one participant's live arm and the attempt being recorded. It
// runs at most one frame loop at a time: capture while recording, playback
// while playing. Input and edits may arrive from a different goroutine than
// the scheduler's, so every method takes the session lock.
type Session struct {
	mu sync.Mutex

	opts    Options
	logger  *zap.Logger
	sched   scheduler.Scheduler
	solver  *kinematics.Solver
	capture *trajectory.Capture
	player  *trajectory.Player
	history *trajectory.History

	state      State
	arm        kinematics.ArmConfig
	traj       trajectory.MotionTrajectory
	frameIndex int

	dragging    bool
	lastPointer kinematics.Vector2D

	pending    scheduler.FrameID
	generation uint64

	onFrame func(index int)
	onState func(State)
	outbox  []func()
}

// New returns an idle session with the arm stretched out along +X. Call
// StartAttempt before taking input.
func New(opts Options, sched scheduler.Scheduler, clock scheduler.Clock, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = scheduler.SystemClock{}
	}

	player := trajectory.NewPlayer(clock)
	player.Interpolate = opts.Interpolate
	player.Geometry = opts.Geometry

	return &Session{
		opts:    opts,
		logger:  logger.Named("session"),
		sched:   sched,
		solver:  kinematics.NewSolver(opts.MinMoveDistance),
		capture: trajectory.NewCapture(clock, opts.AngleEpsilon),
		player:  player,
		history: trajectory.NewHistory(),
		state:   StateIdle,
		arm:     opts.Geometry.WithAngles(0, 0),
	}
}

// OnFrame registers a listener for playback position changes. Listeners run
// outside the session lock and may call back into the session.
func (s *Session) OnFrame(fn func(index int)) {
	s.mu.Lock()
	s.onFrame = fn
	s.mu.Unlock()
}

// OnStateChange registers a listener for state transitions, including the
// automatic return to idle when playback finishes.
func (s *Session) OnStateChange(fn func(State)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// do runs fn under the lock and then fires whatever notifications it queued.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	fn()
	queued := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, notify := range queued {
		notify()
	}
}

func (s *Session) publishFrame(i int) {
	if fn := s.onFrame; fn != nil {
		s.outbox = append(s.outbox, func() { fn(i) })
	}
}

func (s *Session) publishState(st State) {
	if fn := s.onState; fn != nil {
		s.outbox = append(s.outbox, func() { fn(st) })
	}
}

// StartAttempt discards the current attempt and its history, and places the
// arm on start with the elbow up.
func (s *Session) StartAttempt(start, target kinematics.Vector2D) {
	s.do(func() {
		s.transition(StateIdle)
		s.history.Clear()
		s.traj = trajectory.New(start, target)
		s.frameIndex = 0
		s.dragging = false
		s.placeArm(start)
		s.logger.Debug("Attempt started",
			zap.Float64("start_x", start.X), zap.Float64("start_y", start.Y),
			zap.Float64("target_x", target.X), zap.Float64("target_y", target.Y))
	})
}

// Load replaces the attempt with a recording made elsewhere, for replay or
// further editing. History is cleared and the arm shows the first frame.
func (s *Session) Load(traj trajectory.MotionTrajectory) {
	s.do(func() {
		s.transition(StateIdle)
		s.history.Clear()
		s.traj = traj.Clone()
		s.frameIndex = 0
		s.dragging = false
		if traj.Len() > 0 {
			s.showFrame(s.traj.Frames[0])
		} else {
			s.placeArm(traj.StartPosition)
		}
	})
}

func (s *Session) placeArm(p kinematics.Vector2D) {
	g := s.opts.Geometry
	sol := kinematics.InverseKinematics(g.ShoulderPosition, p, g.UpperArmLength, g.LowerArmLength, true)
	s.arm = sol.Apply(g.WithAngles(0, 0))
}

// BeginDrag starts following the pointer when p lands within the grab radius
// of the end effector. Drags are refused during playback.
func (s *Session) BeginDrag(p kinematics.Vector2D) bool {
	var ok bool
	s.do(func() {
		if s.state == StatePlaying || s.state == StatePaused {
			return
		}
		effector := kinematics.ForwardKinematics(s.arm).EndEffector
		if kinematics.Distance(p, effector) > s.opts.GrabRadius {
			return
		}
		s.dragging = true
		s.lastPointer = p
		ok = true
	})
	return ok
}

// DragTo moves the arm towards p. It reports whether the arm was re-solved;
// moves below the significance threshold and moves without an active drag
// are ignored.
func (s *Session) DragTo(p kinematics.Vector2D) bool {
	var moved bool
	s.do(func() {
		if !s.dragging || !s.solver.Significant(s.lastPointer, p) {
			return
		}
		s.lastPointer = p
		s.arm = s.solver.Solve(s.arm, p).Apply(s.arm)
		s.armChanged()
		moved = true
	})
	return moved
}

// EndDrag stops following the pointer.
func (s *Session) EndDrag() {
	s.do(func() { s.dragging = false })
}

// Dragging reports whether the arm is following the pointer.
func (s *Session) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// armChanged runs the target-zone test after a pointer-driven arm change.
// Only a recording attempt can be completed.
func (s *Session) armChanged() {
	effector := kinematics.ForwardKinematics(s.arm).EndEffector
	inZone := kinematics.IsInTargetZone(effector, s.traj.TargetPosition, s.opts.TargetRadius)

	if s.state == StateRecording && !s.traj.Completed && inZone {
		s.traj = trajectory.UpdateCompletion(s.traj, effector, s.opts.TargetRadius)
		s.logger.Info("Target reached", zap.Int("frames", s.traj.Len()))
	}
	if inZone && s.opts.AutoRelease {
		s.dragging = false
	}
}

// SetState switches loops. The pending frame of the previous loop is
// cancelled before the next one is scheduled. It reports false when the
// transition is not possible: pausing when not playing, or playing an empty
// attempt.
func (s *Session) SetState(next State) bool {
	var ok bool
	s.do(func() { ok = s.transition(next) })
	return ok
}

func (s *Session) transition(next State) bool {
	prev := s.state
	if next == prev {
		return true
	}

	switch next {
	case StateIdle, StateRecording:
	case StatePlaying:
		if prev != StatePaused && s.traj.Len() == 0 {
			return false
		}
	case StatePaused:
		if prev != StatePlaying {
			return false
		}
	default:
		return false
	}

	s.stopLoop()

	switch prev {
	case StateRecording:
		s.capture.Stop()
	case StatePlaying, StatePaused:
		if next != StatePaused && next != StatePlaying {
			s.player.Stop()
		}
	}

	switch next {
	case StateRecording:
		s.capture.Start(s.traj)
		s.startLoop()
	case StatePlaying:
		if prev == StatePaused {
			s.player.Resume()
		} else {
			from := s.frameIndex
			if from < 0 || from >= s.traj.Len()-1 {
				from = 0
			}
			s.player.Start(s.traj, from)
			s.frameIndex = from
			s.showFrame(s.traj.Frames[from])
		}
		s.startLoop()
	case StatePaused:
		s.player.Pause()
	}

	s.state = next
	s.logger.Debug("State changed", zap.String("from", string(prev)), zap.String("to", string(next)))
	s.publishState(next)
	return true
}

// stopLoop cancels the pending frame and invalidates any tick that already
// left the scheduler's queue.
func (s *Session) stopLoop() {
	if s.pending != 0 {
		s.sched.CancelFrame(s.pending)
		s.pending = 0
	}
	s.generation++
}

func (s *Session) startLoop() {
	gen := s.generation
	s.pending = s.sched.RequestFrame(func() { s.tick(gen) })
}

func (s *Session) tick(gen uint64) {
	s.do(func() {
		if gen != s.generation {
			s.logger.Debug("Stale tick dropped", zap.Uint64("generation", gen))
			return
		}
		s.pending = 0

		switch s.state {
		case StateRecording:
			s.traj, _ = s.capture.Tick(s.traj, s.arm)
		case StatePlaying:
			step := s.player.Tick()
			if step.Changed || s.opts.Interpolate {
				s.showFrame(step.Frame)
			}
			if step.Changed {
				s.frameIndex = step.FrameIndex
				s.publishFrame(step.FrameIndex)
			}
			if step.Done {
				s.logger.Debug("Playback finished", zap.Int("frame", step.FrameIndex))
				s.transition(StateIdle)
				return
			}
		default:
			return
		}
		s.startLoop()
	})
}

func (s *Session) showFrame(f trajectory.MotionFrame) {
	s.arm = f.Config(s.opts.Geometry)
}

// Seek moves the playback position to frame i and shows it. Seeking while
// recording, or out of range, is refused.
func (s *Session) Seek(i int) bool {
	var ok bool
	s.do(func() {
		if s.state == StateRecording || i < 0 || i >= s.traj.Len() {
			return
		}
		s.frameIndex = i
		s.showFrame(s.traj.Frames[i])
		switch s.state {
		case StatePlaying:
			s.player.Start(s.traj, i)
		case StatePaused:
			s.player.Start(s.traj, i)
			s.player.Pause()
		}
		s.publishFrame(i)
		ok = true
	})
	return ok
}

// RedrawFrom keeps frames[0..k] so recording can continue from frame k. The
// previous attempt is pushed onto the undo stack.
func (s *Session) RedrawFrom(k int) bool {
	var ok bool
	s.do(func() {
		if s.state == StateRecording {
			return
		}
		truncated, valid := trajectory.TruncateAt(s.traj, k)
		if !valid {
			return
		}
		s.transition(StateIdle)
		s.history.Push(s.traj)
		s.traj = truncated
		s.frameIndex = k
		s.showFrame(truncated.Frames[k])
		s.logger.Info("Redrawing from frame", zap.Int("frame", k))
		ok = true
	})
	return ok
}

// Reset empties the attempt, keeping start and target, and puts the arm back
// on the start point.
func (s *Session) Reset() {
	s.do(func() {
		s.transition(StateIdle)
		s.history.Push(s.traj)
		s.traj = trajectory.New(s.traj.StartPosition, s.traj.TargetPosition)
		s.frameIndex = 0
		s.dragging = false
		s.placeArm(s.traj.StartPosition)
	})
}

// Smooth replaces the attempt with a smoothed copy. A zero strength, an
// unknown method, or an attempt too short for the chosen window leaves
// everything untouched and records nothing to undo.
func (s *Session) Smooth(method trajectory.Method, strength float64) bool {
	var ok bool
	s.do(func() {
		if s.state == StateRecording || strength <= 0 || s.traj.Len() == 0 {
			return
		}
		if _, err := trajectory.ParseMethod(string(method)); err != nil {
			s.logger.Warn("Unknown smoothing method", zap.String("method", string(method)))
			return
		}
		smoothed := trajectory.Smooth(s.traj, method, strength, s.opts.Geometry)
		// The smoothers hand back their input when there are too few frames.
		if &smoothed.Frames[0] == &s.traj.Frames[0] {
			s.logger.Debug("Attempt too short to smooth",
				zap.String("method", string(method)), zap.Int("frames", s.traj.Len()))
			return
		}
		s.transition(StateIdle)
		s.history.Push(s.traj)
		s.traj = smoothed
		if s.frameIndex >= s.traj.Len() {
			s.frameIndex = 0
		}
		s.logger.Info("Trajectory smoothed",
			zap.String("method", string(method)), zap.Float64("strength", strength))
		ok = true
	})
	return ok
}

// Undo restores the attempt as it was before the last reset, redraw or
// smoothing.
func (s *Session) Undo() bool {
	return s.restore(s.history.Undo)
}

// Redo reapplies the edit most recently undone.
func (s *Session) Redo() bool {
	return s.restore(s.history.Redo)
}

func (s *Session) restore(step func(trajectory.MotionTrajectory) (trajectory.MotionTrajectory, bool)) bool {
	var ok bool
	s.do(func() {
		if s.state == StateRecording {
			return
		}
		var restored trajectory.MotionTrajectory
		if restored, ok = step(s.traj); !ok {
			return
		}
		s.transition(StateIdle)
		s.traj = restored
		s.frameIndex = 0
		if last, has := restored.LastFrame(); has {
			s.showFrame(last)
			s.frameIndex = restored.Len() - 1
		} else {
			s.placeArm(restored.StartPosition)
		}
	})
	return ok
}

// State returns the current recording state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm returns the live arm configuration.
func (s *Session) Arm() kinematics.ArmConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arm
}

// Trajectory returns a snapshot of the current attempt.
func (s *Session) Trajectory() trajectory.MotionTrajectory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traj.Clone()
}

// Completed reports whether the current attempt reached its target.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traj.Completed
}

// CurrentFrame returns the playback or scrub position.
func (s *Session) CurrentFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameIndex
}

// CanUndo and CanRedo report whether the history stacks are non-empty.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}
