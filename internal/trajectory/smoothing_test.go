// internal/trajectory/smoothing_test.go
package trajectory

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/armtrace/internal/kinematics"
)

func TestStrengthMapping(t *testing.T) {
	assert.Equal(t, 1, WindowForStrength(0))
	assert.Equal(t, 8, WindowForStrength(50))
	assert.Equal(t, 15, WindowForStrength(100))
	assert.Equal(t, 15, WindowForStrength(250), "strength is clamped to 100")
	assert.Equal(t, 1, WindowForStrength(-3))

	assert.InDelta(t, 0.5, SigmaForStrength(0), 1e-12)
	assert.InDelta(t, 2.75, SigmaForStrength(50), 1e-12)
	assert.InDelta(t, 5.0, SigmaForStrength(100), 1e-12)

	prevW, prevS := 0, 0.0
	for s := 0.0; s <= 100; s += 5 {
		w, sigma := WindowForStrength(s), SigmaForStrength(s)
		assert.GreaterOrEqual(t, w, prevW)
		assert.Greater(t, sigma, prevS)
		prevW, prevS = w, sigma
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Gaussian")
	require.NoError(t, err)
	assert.Equal(t, MethodGaussian, m)

	m, err = ParseMethod("moving-average")
	require.NoError(t, err)
	assert.Equal(t, MethodMovingAverage, m)

	_, err = ParseMethod("median")
	assert.Error(t, err)
}

func TestSmoothMovingAverage(t *testing.T) {
	g := testGeometry()
	traj := New(kinematics.Vector2D{}, kinematics.Vector2D{}).WithFrames([]MotionFrame{
		NewFrame(0, g.WithAngles(0, 0)),
		NewFrame(10, g.WithAngles(3, 30)),
		NewFrame(20, g.WithAngles(6, 60)),
		NewFrame(30, g.WithAngles(9, 90)),
	})
	original := traj.Clone()

	out := SmoothMovingAverage(traj, 3)
	require.Len(t, out.Frames, 4)

	wantShoulder := []float64{1.5, 3, 6, 7.5}
	for i, f := range out.Frames {
		assert.InDelta(t, wantShoulder[i], f.ShoulderAngle, 1e-12)
		assert.InDelta(t, wantShoulder[i]*10, f.ElbowAngle, 1e-12)
		// Angle-only variant: positions stay as captured.
		assert.Equal(t, traj.Frames[i].EndEffectorPosition, f.EndEffectorPosition)
		assert.Equal(t, traj.Frames[i].Timestamp, f.Timestamp)
	}
	assert.Equal(t, original, traj, "input must not be mutated")
	assert.Equal(t, 30.0, out.TotalTimeMs)
}

func TestSmoothMovingAverage_BelowWindowIsNoop(t *testing.T) {
	traj := makeTrajectory(4, 10)
	out := SmoothMovingAverage(traj, 5)
	require.Len(t, out.Frames, 4)
	assert.Same(t, &traj.Frames[0], &out.Frames[0], "short trajectories are returned as is")
}

func TestSmoothMovingAverage_WindowOneIsIdentity(t *testing.T) {
	traj := makeTrajectory(12, 10)
	out := SmoothMovingAverage(traj, 1)
	assert.Equal(t, traj.Frames, out.Frames)
}

func TestSmoothGaussian(t *testing.T) {
	g := testGeometry()

	t.Run("TooShortIsNoop", func(t *testing.T) {
		traj := makeTrajectory(2, 10)
		out := SmoothGaussian(traj, 2, g)
		assert.Same(t, &traj.Frames[0], &out.Frames[0])
	})

	t.Run("TinySigmaIsIdentity", func(t *testing.T) {
		traj := makeTrajectory(20, 10)
		out := SmoothGaussian(traj, 0.01, g)
		if diff := cmp.Diff(traj, out, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("near-zero sigma changed the trajectory (-want +got):\n%s", diff)
		}
	})

	t.Run("PositionsFollowSmoothedAngles", func(t *testing.T) {
		traj := makeTrajectory(30, 10)
		original := traj.Clone()
		out := SmoothGaussian(traj, 2, g)

		require.Len(t, out.Frames, 30)
		for i, f := range out.Frames {
			pose := kinematics.ForwardKinematics(g.WithAngles(f.ShoulderAngle, f.ElbowAngle))
			assert.InDelta(t, pose.EndEffector.X, f.EndEffectorPosition.X, 1e-9)
			assert.InDelta(t, pose.EndEffector.Y, f.EndEffectorPosition.Y, 1e-9)
			assert.Equal(t, traj.Frames[i].Timestamp, f.Timestamp)
		}
		assert.Equal(t, original, traj)
	})

	t.Run("ConstantAnglesUnchanged", func(t *testing.T) {
		frames := make([]MotionFrame, 10)
		for i := range frames {
			frames[i] = NewFrame(float64(i), g.WithAngles(0.4, -0.2))
		}
		traj := New(kinematics.Vector2D{}, kinematics.Vector2D{}).WithFrames(frames)
		out := SmoothGaussian(traj, 3, g)
		for _, f := range out.Frames {
			assert.InDelta(t, 0.4, f.ShoulderAngle, 1e-12)
			assert.InDelta(t, -0.2, f.ElbowAngle, 1e-12)
		}
	})

	t.Run("ReducesJitter", func(t *testing.T) {
		frames := make([]MotionFrame, 21)
		for i := range frames {
			e := 0.0
			if i%2 == 1 {
				e = 0.2
			}
			frames[i] = NewFrame(float64(i), g.WithAngles(0, e))
		}
		traj := New(kinematics.Vector2D{}, kinematics.Vector2D{}).WithFrames(frames)
		out := SmoothGaussian(traj, 1.5, g)
		mid := out.Frames[10].ElbowAngle
		assert.InDelta(t, 0.1, mid, 0.02)
	})
}

// seamDrag captures a drag straight down past the point directly left of the
// shoulder, one pixel per frame. When wrap is set each frame's angles are
// reduced into (-Pi, Pi], which puts a 2Pi jump in the shoulder series.
func seamDrag(g kinematics.Geometry, wrap bool) MotionTrajectory {
	arm := kinematics.InverseKinematics(g.ShoulderPosition, kinematics.Vector2D{X: 200, Y: 285}, g.UpperArmLength, g.LowerArmLength, true).
		Apply(g.WithAngles(0, 0))
	var frames []MotionFrame
	for y := 285.0; y <= 315; y++ {
		arm = kinematics.SolveContinuous(arm, kinematics.Vector2D{X: 200, Y: y}).Apply(arm)
		shoulder, elbow := arm.ShoulderAngle, arm.ElbowAngle
		if wrap {
			shoulder, elbow = kinematics.NormalizeAngle(shoulder), kinematics.NormalizeAngle(elbow)
		}
		frames = append(frames, NewFrame(float64(len(frames))*16, g.WithAngles(shoulder, elbow)))
	}
	return New(kinematics.Vector2D{X: 200, Y: 285}, kinematics.Vector2D{X: 200, Y: 315}).WithFrames(frames)
}

func TestSmooth_AcrossShoulderSeam(t *testing.T) {
	g := testGeometry()

	for _, wrap := range []bool{false, true} {
		name := "ContinuousCapture"
		if wrap {
			name = "WrappedInput"
		}
		t.Run(name, func(t *testing.T) {
			raw := seamDrag(g, wrap)
			if !wrap {
				for i := 1; i < raw.Len(); i++ {
					require.Less(t, math.Abs(raw.Frames[i].ShoulderAngle-raw.Frames[i-1].ShoulderAngle), math.Pi)
				}
			}

			smoothed := SmoothGaussian(raw, SigmaForStrength(30), g)
			require.Equal(t, raw.Len(), smoothed.Len())
			for i := range raw.Frames {
				moved := kinematics.Distance(raw.Frames[i].EndEffectorPosition, smoothed.Frames[i].EndEffectorPosition)
				assert.Less(t, moved, 5.0, "frame %d moved %.1f px", i, moved)
			}

			averaged := SmoothMovingAverage(raw, WindowForStrength(50))
			for i := 1; i < averaged.Len(); i++ {
				step := math.Abs(averaged.Frames[i].ShoulderAngle - averaged.Frames[i-1].ShoulderAngle)
				assert.Less(t, step, 0.2, "frame %d", i)
			}
		})
	}
}

func TestSmooth_StrengthZeroIsIdentity(t *testing.T) {
	traj := makeTrajectory(20, 10)
	for _, m := range []Method{MethodMovingAverage, MethodGaussian} {
		out := Smooth(traj, m, 0, testGeometry())
		assert.Same(t, &traj.Frames[0], &out.Frames[0], string(m))
	}
}

func TestSmooth_Dispatch(t *testing.T) {
	traj := makeTrajectory(20, 10)
	g := testGeometry()

	assert.Equal(t, SmoothMovingAverage(traj, WindowForStrength(40)), Smooth(traj, MethodMovingAverage, 40, g))
	assert.Equal(t, SmoothGaussian(traj, SigmaForStrength(40), g), Smooth(traj, MethodGaussian, 40, g))

	out := Smooth(traj, Method("bogus"), 40, g)
	assert.Same(t, &traj.Frames[0], &out.Frames[0])
}
