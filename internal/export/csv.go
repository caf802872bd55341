// internal/export/csv.go
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

// Header is the column layout of a trajectory CSV.
var Header = []string{
	"timestamp_ms",
	"shoulder_angle",
	"elbow_angle",
	"elbow_x",
	"elbow_y",
	"effector_x",
	"effector_y",
}

var (
	// ErrBadHeader is returned when a CSV does not start with Header.
	ErrBadHeader = errors.New("export: unexpected csv header")
	// ErrUnsorted is returned when frame timestamps go backwards.
	ErrUnsorted = errors.New("export: frame timestamps are not sorted")
)

// WriteCSV writes one row per frame. Floats are written with the shortest
// representation that parses back to the same value.
func WriteCSV(w io.Writer, traj trajectory.MotionTrajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(Header))
	for i, f := range traj.Frames {
		row[0] = formatFloat(f.Timestamp)
		row[1] = formatFloat(f.ShoulderAngle)
		row[2] = formatFloat(f.ElbowAngle)
		row[3] = formatFloat(f.ElbowPosition.X)
		row[4] = formatFloat(f.ElbowPosition.Y)
		row[5] = formatFloat(f.EndEffectorPosition.X)
		row[6] = formatFloat(f.EndEffectorPosition.Y)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses frames written by WriteCSV. The CSV carries no start,
// target or completion, so those are left zero for the caller to fill in.
func ReadCSV(r io.Reader) (trajectory.MotionTrajectory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		return trajectory.MotionTrajectory{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range Header {
		if head[i] != name {
			return trajectory.MotionTrajectory{}, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, head[i], name)
		}
	}

	var frames []trajectory.MotionFrame
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return trajectory.MotionTrajectory{}, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		var vals [7]float64
		for i := range vals {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return trajectory.MotionTrajectory{}, fmt.Errorf("line %d, column %s: %w", line, Header[i], err)
			}
			vals[i] = v
		}

		if n := len(frames); n > 0 && vals[0] < frames[n-1].Timestamp {
			return trajectory.MotionTrajectory{}, fmt.Errorf("%w: line %d", ErrUnsorted, line)
		}
		frames = append(frames, trajectory.MotionFrame{
			Timestamp:           vals[0],
			ShoulderAngle:       vals[1],
			ElbowAngle:          vals[2],
			ElbowPosition:       kinematics.Vector2D{X: vals[3], Y: vals[4]},
			EndEffectorPosition: kinematics.Vector2D{X: vals[5], Y: vals[6]},
		})
	}

	return trajectory.MotionTrajectory{}.WithFrames(frames), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
