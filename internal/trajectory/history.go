// internal/trajectory/history.go
package trajectory

// History holds undo and redo snapshots of whole trajectories. Every snapshot
// is cloned on the way in and out, so no two trajectories share frames.
type History struct {
	undo []MotionTrajectory
	redo []MotionTrajectory
}

// NewHistory returns empty undo and redo stacks.
func NewHistory() *History {
	return &History{}
}

// Push records current before a destructive edit and drops the redo stack.
func (h *History) Push(current MotionTrajectory) {
	h.undo = append(h.undo, current.Clone())
	h.redo = nil
}

// Undo returns the most recent snapshot and stores current for Redo. With an
// empty undo stack it returns current and false.
func (h *History) Undo(current MotionTrajectory) (MotionTrajectory, bool) {
	if len(h.undo) == 0 {
		return current, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.Clone())
	return prev.Clone(), true
}

// Redo mirrors Undo.
func (h *History) Redo(current MotionTrajectory) (MotionTrajectory, bool) {
	if len(h.redo) == 0 {
		return current, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current.Clone())
	return next.Clone(), true
}

// CanUndo reports whether Undo has a snapshot to restore.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo has a snapshot to restore.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
