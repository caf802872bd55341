// internal/kinematics/inverse.go
package kinematics

import "math"

// Solution is the result of an inverse kinematics query.
type Solution struct {
	// ShoulderAngle and ElbowAngle follow the ArmConfig conventions.
	ShoulderAngle float64
	ElbowAngle    float64
	// ClampedTarget is the point actually solved for. It differs from the
	// requested target only when that target was outside the workspace annulus.
	ClampedTarget Vector2D
	// Reach is the shoulder-to-ClampedTarget distance used by the solve.
	Reach float64
	// ElbowUp records which of the two mirror-image configurations was solved.
	ElbowUp bool
}

// InverseKinematics finds joint angles that put the end effector on target.
// It never fails: targets outside [|len1-len2|, len1+len2] are projected onto
// the nearest workspace circle along the shoulder-to-target ray.
func InverseKinematics(shoulder, target Vector2D, len1, len2 float64, elbowUp bool) Solution {
	dist := Distance(shoulder, target)
	maxReach := len1 + len2
	minReach := math.Abs(len1 - len2)

	clamped := target
	switch {
	case dist > maxReach:
		clamped = shoulder.Add(rayDirection(shoulder, target, dist).Mul(maxReach))
		dist = maxReach
	case dist < minReach:
		clamped = shoulder.Add(rayDirection(shoulder, target, dist).Mul(minReach))
		dist = minReach
	}

	// Interior angle at the elbow between the two segments.
	cosInterior := clamp((len1*len1+len2*len2-dist*dist)/(2*len1*len2), -1, 1)
	interior := math.Acos(cosInterior)

	elbowAngle := math.Pi - interior
	if !elbowUp {
		elbowAngle = -elbowAngle
	}

	// Angle at the shoulder between the upper arm and the target ray.
	cosOffset := 1.0
	if dist > 0 {
		cosOffset = clamp((len1*len1+dist*dist-len2*len2)/(2*len1*dist), -1, 1)
	}
	offset := math.Acos(cosOffset)

	angleToTarget := AngleTo(shoulder, clamped)
	shoulderAngle := angleToTarget + offset
	if elbowUp {
		shoulderAngle = angleToTarget - offset
	}

	return Solution{
		ShoulderAngle: shoulderAngle,
		ElbowAngle:    elbowAngle,
		ClampedTarget: clamped,
		Reach:         dist,
		ElbowUp:       elbowUp,
	}
}

// rayDirection is the unit vector from shoulder towards target, or +X when the
// two coincide.
func rayDirection(shoulder, target Vector2D, dist float64) Vector2D {
	if dist == 0 {
		return Vector2D{X: 1}
	}
	return target.Sub(shoulder).Mul(1 / dist)
}

// angularCost is the joint travel between the current arm and a candidate.
// Both candidates must already be unwrapped onto current.
func angularCost(current ArmConfig, s Solution) float64 {
	return math.Abs(s.ShoulderAngle-current.ShoulderAngle) + math.Abs(s.ElbowAngle-current.ElbowAngle)
}

// NearestTurn shifts a by whole turns to the equivalent angle closest to ref.
// It returns a unchanged when ref is not finite.
func NearestTurn(a, ref float64) float64 {
	turns := math.Round((ref - a) / (2 * math.Pi))
	if math.IsNaN(turns) || math.IsInf(turns, 0) {
		return a
	}
	return a + turns*2*math.Pi
}

// unwrapOnto moves the solution's joint angles onto the turn nearest current,
// so a drag across the shoulder's ±Pi direction keeps the angles continuous
// instead of jumping by 2Pi.
func unwrapOnto(current ArmConfig, s Solution) Solution {
	s.ShoulderAngle = NearestTurn(s.ShoulderAngle, current.ShoulderAngle)
	s.ElbowAngle = NearestTurn(s.ElbowAngle, current.ElbowAngle)
	return s
}

// SolveContinuous solves for both elbow configurations and keeps the one that
// moves the joints least from current. Dragging must go through this to keep
// the arm from flipping between configurations. Ties favour elbow-up.
//
// The returned angles are equal modulo 2Pi to the plain IK angles but sit on
// the turn nearest current, so recorded joint angles never wrap.
func SolveContinuous(current ArmConfig, target Vector2D) Solution {
	up := unwrapOnto(current, InverseKinematics(current.ShoulderPosition, target, current.UpperArmLength, current.LowerArmLength, true))
	down := unwrapOnto(current, InverseKinematics(current.ShoulderPosition, target, current.UpperArmLength, current.LowerArmLength, false))
	if angularCost(current, down) < angularCost(current, up) {
		return down
	}
	return up
}

// Apply returns current with the solution's joint angles.
func (s Solution) Apply(current ArmConfig) ArmConfig {
	current.ShoulderAngle = s.ShoulderAngle
	current.ElbowAngle = s.ElbowAngle
	return current
}

// Solver is the pointer-facing IK entry point. It combines the continuity
// policy with a movement threshold below which pointer jitter is ignored.
type Solver struct {
	// MinMoveDistance is the pointer travel, in canvas pixels, a move must
	// cover before the arm is re-solved. Zero re-solves on every move.
	MinMoveDistance float64
}

// NewSolver returns a Solver with the given movement threshold.
func NewSolver(minMoveDistance float64) *Solver {
	if minMoveDistance < 0 {
		minMoveDistance = 0
	}
	return &Solver{MinMoveDistance: minMoveDistance}
}

// Significant reports whether moving the pointer from prev to next should
// trigger a new solve.
func (s *Solver) Significant(prev, next Vector2D) bool {
	if s.MinMoveDistance == 0 {
		return true
	}
	return Distance(prev, next) >= s.MinMoveDistance
}

// Solve runs SolveContinuous against the live arm.
func (s *Solver) Solve(current ArmConfig, target Vector2D) Solution {
	return SolveContinuous(current, target)
}

// IsInTargetZone reports whether p lies within radius of target, inclusive.
func IsInTargetZone(p, target Vector2D, radius float64) bool {
	return Distance(p, target) <= radius
}
