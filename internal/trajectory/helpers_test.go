// internal/trajectory/helpers_test.go
package trajectory

import (
	"math"
	"time"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/scheduler"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testGeometry() kinematics.Geometry {
	return kinematics.Geometry{
		ShoulderPosition: kinematics.Vector2D{X: 400, Y: 300},
		UpperArmLength:   150,
		LowerArmLength:   130,
	}
}

// makeTrajectory builds n frames spaced stepMs apart with a gently curving
// joint path.
func makeTrajectory(n int, stepMs float64) MotionTrajectory {
	g := testGeometry()
	traj := New(kinematics.Vector2D{X: 600, Y: 300}, kinematics.Vector2D{X: 450, Y: 150})
	frames := make([]MotionFrame, n)
	for i := range frames {
		s := 0.02 * float64(i)
		e := 0.5 + 0.1*math.Sin(float64(i))
		frames[i] = NewFrame(float64(i)*stepMs, g.WithAngles(s, e))
	}
	return traj.WithFrames(frames)
}

func newTestClock() *scheduler.ManualClock {
	return scheduler.NewManualClock(epoch)
}
