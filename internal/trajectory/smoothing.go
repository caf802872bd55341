// internal/trajectory/smoothing.go
package trajectory

import (
	"fmt"
	"math"
	"strings"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
)

// Method selects a smoothing transform.
type Method string

const (
	// MethodMovingAverage is a box filter over the joint angles.
	MethodMovingAverage Method = "moving_average"
	// MethodGaussian is a Gaussian-weighted filter that also refreshes the
	// cached positions.
	MethodGaussian Method = "gaussian"
)

// Strength mapping bounds.
const (
	MinWindowSize = 1
	MaxWindowSize = 15
	MinSigma      = 0.5
	MaxSigma      = 5.0

	minGaussianFrames = 3
)

// ParseMethod accepts the canonical names plus a few spellings used on the
// command line.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "moving_average", "moving-average", "movingaverage", "average", "ma":
		return MethodMovingAverage, nil
	case "gaussian", "gauss":
		return MethodGaussian, nil
	default:
		return "", fmt.Errorf("unknown smoothing method %q", s)
	}
}

// clampStrength bounds strength to [0, 100] and maps NaN to 0.
func clampStrength(strength float64) float64 {
	if math.IsNaN(strength) || strength < 0 {
		return 0
	}
	if strength > 100 {
		return 100
	}
	return strength
}

// WindowForStrength maps a strength in [0,100] linearly onto a moving-average
// window of 1..15 frames.
func WindowForStrength(strength float64) int {
	s := clampStrength(strength)
	return int(math.Round(MinWindowSize + s/100*(MaxWindowSize-MinWindowSize)))
}

// SigmaForStrength maps a strength in [0,100] linearly onto a Gaussian sigma
// of 0.5..5.0 frames.
func SigmaForStrength(strength float64) float64 {
	s := clampStrength(strength)
	return MinSigma + s/100*(MaxSigma-MinSigma)
}

// Smooth applies method at the given strength. Strength 0 returns t
// untouched. Unknown methods also return t untouched.
func Smooth(t MotionTrajectory, method Method, strength float64, g kinematics.Geometry) MotionTrajectory {
	if clampStrength(strength) == 0 {
		return t
	}
	switch method {
	case MethodMovingAverage:
		return SmoothMovingAverage(t, WindowForStrength(strength))
	case MethodGaussian:
		return SmoothGaussian(t, SigmaForStrength(strength), g)
	default:
		return t
	}
}

// unwrappedAngles returns the joint angles with each frame moved onto the
// turn nearest its predecessor. Files written before capture unwrapped its
// angles can still jump by 2Pi at the seam, and averaging across such a jump
// lands the arm on the wrong side of the shoulder.
func unwrappedAngles(frames []MotionFrame) (shoulders, elbows []float64) {
	shoulders = make([]float64, len(frames))
	elbows = make([]float64, len(frames))
	for i, f := range frames {
		shoulders[i], elbows[i] = f.ShoulderAngle, f.ElbowAngle
		if i > 0 {
			shoulders[i] = kinematics.NearestTurn(shoulders[i], shoulders[i-1])
			elbows[i] = kinematics.NearestTurn(elbows[i], elbows[i-1])
		}
	}
	return shoulders, elbows
}

// SmoothMovingAverage averages joint angles over a centred window of
// windowSize frames, truncated at the trajectory ends. Positions keep their
// captured values and no longer match the smoothed angles; callers that need
// consistent positions should use SmoothGaussian or recompute them.
// Trajectories shorter than windowSize are returned unchanged.
func SmoothMovingAverage(t MotionTrajectory, windowSize int) MotionTrajectory {
	if windowSize < 1 {
		windowSize = 1
	}
	n := len(t.Frames)
	if n < windowSize {
		return t
	}

	shoulders, elbows := unwrappedAngles(t.Frames)
	half := windowSize / 2
	out := make([]MotionFrame, n)
	for i := range t.Frames {
		lo := max(0, i-half)
		hi := min(n-1, i+half)

		var shoulder, elbow float64
		for j := lo; j <= hi; j++ {
			shoulder += shoulders[j]
			elbow += elbows[j]
		}
		count := float64(hi - lo + 1)

		out[i] = t.Frames[i]
		out[i].ShoulderAngle = shoulder / count
		out[i].ElbowAngle = elbow / count
	}
	return t.WithFrames(out)
}

// SmoothGaussian applies a Gaussian-weighted average of joint angles with a
// window of 2*ceil(3*sigma)+1 frames, then recomputes the elbow and effector
// positions from the smoothed angles using g. Trajectories with fewer than
// three frames, or a non-positive sigma, are returned unchanged.
func SmoothGaussian(t MotionTrajectory, sigma float64, g kinematics.Geometry) MotionTrajectory {
	n := len(t.Frames)
	if n < minGaussianFrames || !(sigma > 0) {
		return t
	}

	radius := int(math.Ceil(3 * sigma))
	weights := make([]float64, 2*radius+1)
	for d := -radius; d <= radius; d++ {
		weights[d+radius] = math.Exp(-float64(d*d) / (2 * sigma * sigma))
	}

	shoulders, elbows := unwrappedAngles(t.Frames)
	out := make([]MotionFrame, n)
	for i, f := range t.Frames {
		var shoulder, elbow, total float64
		for j := max(0, i-radius); j <= min(n-1, i+radius); j++ {
			w := weights[j-i+radius]
			shoulder += shoulders[j] * w
			elbow += elbows[j] * w
			total += w
		}
		out[i] = NewFrame(f.Timestamp, g.WithAngles(shoulder/total, elbow/total))
	}
	return t.WithFrames(out)
}
