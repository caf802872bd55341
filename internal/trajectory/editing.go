// internal/trajectory/editing.go
package trajectory

import "github.com/xkilldash9x/armtrace/internal/kinematics"

// TruncateAt keeps frames[0..k] so a participant can redraw from frame k. The
// result is never completed and its total time is frames[k].Timestamp. An out
// of range k is rejected and t is returned unchanged with false.
func TruncateAt(t MotionTrajectory, k int) (MotionTrajectory, bool) {
	if k < 0 || k >= len(t.Frames) {
		return t, false
	}
	frames := make([]MotionFrame, k+1)
	copy(frames, t.Frames[:k+1])

	out := t.WithFrames(frames)
	out.Completed = false
	return out, true
}

// UpdateCompletion marks t completed once effector lies inside the target
// zone. Completion is sticky: a completed trajectory stays completed.
func UpdateCompletion(t MotionTrajectory, effector kinematics.Vector2D, radius float64) MotionTrajectory {
	if !t.Completed && kinematics.IsInTargetZone(effector, t.TargetPosition, radius) {
		t.Completed = true
	}
	return t
}
