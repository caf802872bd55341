// internal/kinematics/vector.go
package kinematics

import "math"

// Vector2D is a point or displacement in canvas coordinates.
// Canvas Y grows downwards, so positive angles turn clockwise on screen.
type Vector2D struct {
	// X grows to the right of the canvas origin.
	X float64 `json:"x"`
	// Y grows downwards from the canvas origin.
	Y float64 `json:"y"`
}

// Add returns v + other.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns v - other.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul scales v by scalar.
func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{X: v.X * scalar, Y: v.Y * scalar}
}

// Mag returns the Euclidean length of v.
func (v Vector2D) Mag() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Dist returns the distance between v and other.
func (v Vector2D) Dist(other Vector2D) float64 {
	return Distance(v, other)
}

// Angle returns the direction of v relative to +X in [-Pi, Pi].
func (v Vector2D) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Polar returns the vector of the given length pointing along angle.
func Polar(length, angle float64) Vector2D {
	return Vector2D{X: length * math.Cos(angle), Y: length * math.Sin(angle)}
}

// Distance returns sqrt(dx² + dy²) between two points.
func Distance(p1, p2 Vector2D) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// AngleTo returns the direction from p1 towards p2.
func AngleTo(p1, p2 Vector2D) float64 {
	return math.Atan2(p2.Y-p1.Y, p2.X-p1.X)
}

// NormalizeAngle reduces a into (-Pi, Pi]. NaN and infinities are returned
// as they are.
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	// Remainder lands in [-Pi, Pi]; the lower bound belongs to the other end.
	r := math.Remainder(a, 2*math.Pi)
	if r <= -math.Pi {
		r = math.Pi
	}
	return r
}

// LerpAngle interpolates from a to b along the shortest arc, so the result
// crosses the ±Pi seam instead of sweeping back through zero.
func LerpAngle(a, b, t float64) float64 {
	a = NormalizeAngle(a)
	b = NormalizeAngle(b)
	diff := b - a
	if diff > math.Pi {
		diff -= 2 * math.Pi
	} else if diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return a + diff*t
}

// LerpVector returns v1 + (v2-v1)*t.
func LerpVector(v1, v2 Vector2D, t float64) Vector2D {
	return v1.Add(v2.Sub(v1).Mul(t))
}

// clamp bounds v to [lo, hi]. The IK cosines go through it so rounding just
// past ±1 cannot turn math.Acos into NaN.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
