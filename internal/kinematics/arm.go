// internal/kinematics/arm.go
package kinematics

// Geometry is the fixed part of an arm: where the shoulder sits and how long
// the two segments are. Lengths are constant for a session.
type Geometry struct {
	// ShoulderPosition is the fixed base joint in canvas coordinates.
	ShoulderPosition Vector2D `json:"shoulderPosition"`
	// UpperArmLength runs shoulder to elbow, LowerArmLength elbow to end
	// effector. Both are in canvas pixels.
	UpperArmLength float64 `json:"upperArmLength"`
	LowerArmLength float64 `json:"lowerArmLength"`
}

// MaxReach is the radius of the outer workspace boundary.
func (g Geometry) MaxReach() float64 {
	return g.UpperArmLength + g.LowerArmLength
}

// MinReach is the radius of the inner workspace boundary.
func (g Geometry) MinReach() float64 {
	d := g.UpperArmLength - g.LowerArmLength
	if d < 0 {
		return -d
	}
	return d
}

// WithAngles returns the full arm configuration for the given joint angles.
func (g Geometry) WithAngles(shoulderAngle, elbowAngle float64) ArmConfig {
	return ArmConfig{
		ShoulderPosition: g.ShoulderPosition,
		UpperArmLength:   g.UpperArmLength,
		LowerArmLength:   g.LowerArmLength,
		ShoulderAngle:    shoulderAngle,
		ElbowAngle:       elbowAngle,
	}
}

// ArmConfig is the live state of a two-segment planar arm. ShoulderAngle is
// absolute; ElbowAngle is relative to the upper-arm direction. Both are in
// radians and are not wrapped.
type ArmConfig struct {
	ShoulderPosition Vector2D `json:"shoulderPosition"`
	UpperArmLength   float64  `json:"upperArmLength"`
	LowerArmLength   float64  `json:"lowerArmLength"`
	ShoulderAngle    float64  `json:"shoulderAngle"`
	ElbowAngle       float64  `json:"elbowAngle"`
}

// Geometry strips the joint angles from c.
func (c ArmConfig) Geometry() Geometry {
	return Geometry{
		ShoulderPosition: c.ShoulderPosition,
		UpperArmLength:   c.UpperArmLength,
		LowerArmLength:   c.LowerArmLength,
	}
}

// Pose holds the joint positions derived from an ArmConfig.
type Pose struct {
	// Elbow is the joint between the two segments.
	Elbow Vector2D
	// EndEffector is the free tip of the lower arm, the point a user drags.
	EndEffector Vector2D
}

// ForwardKinematics places the elbow and end effector for the given angles.
func ForwardKinematics(c ArmConfig) Pose {
	elbow := c.ShoulderPosition.Add(Polar(c.UpperArmLength, c.ShoulderAngle))
	effector := elbow.Add(Polar(c.LowerArmLength, c.ShoulderAngle+c.ElbowAngle))
	return Pose{Elbow: elbow, EndEffector: effector}
}
