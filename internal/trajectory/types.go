// internal/trajectory/types.go
package trajectory

import (
	"time"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
)

// MotionFrame is one timestamped sample of the arm. The positions are cached
// from forward kinematics when the frame is created and are never recomputed
// on read.
type MotionFrame struct {
	// Timestamp is milliseconds since the start of the recording.
	Timestamp float64 `json:"timestamp"`
	// ShoulderAngle and ElbowAngle are the joint angles in radians. Captured
	// frames are unwrapped, so neighbours never differ by a full turn.
	ShoulderAngle float64 `json:"shoulderAngle"`
	ElbowAngle    float64 `json:"elbowAngle"`
	// ElbowPosition and EndEffectorPosition are cached forward kinematics.
	ElbowPosition       kinematics.Vector2D `json:"elbowPosition"`
	EndEffectorPosition kinematics.Vector2D `json:"endEffectorPosition"`
}

// NewFrame samples cfg at timestamp ms.
func NewFrame(timestamp float64, cfg kinematics.ArmConfig) MotionFrame {
	pose := kinematics.ForwardKinematics(cfg)
	return MotionFrame{
		Timestamp:           timestamp,
		ShoulderAngle:       cfg.ShoulderAngle,
		ElbowAngle:          cfg.ElbowAngle,
		ElbowPosition:       pose.Elbow,
		EndEffectorPosition: pose.EndEffector,
	}
}

// Config returns the arm configuration the frame describes.
func (f MotionFrame) Config(g kinematics.Geometry) kinematics.ArmConfig {
	return g.WithAngles(f.ShoulderAngle, f.ElbowAngle)
}

// MotionTrajectory is one recorded attempt. Frames are sorted by timestamp
// and TotalTimeMs mirrors the last frame's timestamp. A trajectory is treated
// as a value: edits build a new one instead of touching Frames in place.
type MotionTrajectory struct {
	Frames         []MotionFrame       `json:"frames"`
	StartPosition  kinematics.Vector2D `json:"startPosition"`
	TargetPosition kinematics.Vector2D `json:"targetPosition"`
	// Completed is set once the end effector entered the target zone.
	Completed   bool    `json:"completed"`
	TotalTimeMs float64 `json:"totalTimeMs"`
}

// New returns an empty trajectory for an attempt from start to target.
func New(start, target kinematics.Vector2D) MotionTrajectory {
	return MotionTrajectory{StartPosition: start, TargetPosition: target}
}

// Len returns the number of frames.
func (t MotionTrajectory) Len() int { return len(t.Frames) }

// LastFrame returns the most recent frame, if any.
func (t MotionTrajectory) LastFrame() (MotionFrame, bool) {
	if len(t.Frames) == 0 {
		return MotionFrame{}, false
	}
	return t.Frames[len(t.Frames)-1], true
}

// Duration returns TotalTimeMs as a time.Duration.
func (t MotionTrajectory) Duration() time.Duration {
	return time.Duration(t.TotalTimeMs * float64(time.Millisecond))
}

// Clone returns a copy that shares no backing storage with t.
func (t MotionTrajectory) Clone() MotionTrajectory {
	c := t
	if t.Frames != nil {
		c.Frames = make([]MotionFrame, len(t.Frames))
		copy(c.Frames, t.Frames)
	}
	return c
}

// WithFrames returns t carrying frames, with TotalTimeMs kept in sync.
func (t MotionTrajectory) WithFrames(frames []MotionFrame) MotionTrajectory {
	t.Frames = frames
	t.TotalTimeMs = 0
	if n := len(frames); n > 0 {
		t.TotalTimeMs = frames[n-1].Timestamp
	}
	return t
}

// millis converts d to fractional milliseconds, the unit frame timestamps use.
func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
