// internal/export/export_test.go
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

func testGeometry() kinematics.Geometry {
	return kinematics.Geometry{
		ShoulderPosition: kinematics.Vector2D{X: 400, Y: 300},
		UpperArmLength:   150,
		LowerArmLength:   130,
	}
}

func sampleTrajectory(n int, completed bool) trajectory.MotionTrajectory {
	g := testGeometry()
	frames := make([]trajectory.MotionFrame, n)
	for i := range frames {
		frames[i] = trajectory.NewFrame(float64(i)*16.7, g.WithAngles(0.1*float64(i), math.Pi/3-0.05*float64(i)))
	}
	traj := trajectory.New(kinematics.Vector2D{X: 650, Y: 300}, kinematics.Vector2D{X: 450, Y: 150}).WithFrames(frames)
	traj.Completed = completed
	return traj
}

func TestCSV_PreservesFramesExactly(t *testing.T) {
	traj := sampleTrajectory(25, true)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, traj))

	firstLine, _, _ := strings.Cut(buf.String(), "\n")
	assert.Equal(t, "timestamp_ms,shoulder_angle,elbow_angle,elbow_x,elbow_y,effector_x,effector_y", firstLine)

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(traj.Frames, got.Frames); diff != "" {
		t.Errorf("frames changed through csv (-want +got):\n%s", diff)
	}
	assert.Equal(t, traj.TotalTimeMs, got.TotalTimeMs)
	assert.False(t, got.Completed, "completion is not part of the csv")
}

func TestCSV_EmptyTrajectory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, trajectory.MotionTrajectory{}))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, 0.0, got.TotalTimeMs)
}

func TestReadCSV_Errors(t *testing.T) {
	header := strings.Join(Header, ",") + "\n"

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"WrongHeader", "time,a,b,c,d,e,f\n", ErrBadHeader},
		{"Unsorted", header + "10,0,0,0,0,0,0\n5,0,0,0,0,0,0\n", ErrUnsorted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	t.Run("NotANumber", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(header + "x,0,0,0,0,0,0\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timestamp_ms")
	})

	t.Run("ShortRow", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(header + "1,2,3\n"))
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestBundle_WriteAndRead(t *testing.T) {
	b := NewBundle("p-07", testGeometry())
	_, err := uuid.Parse(b.SessionID)
	require.NoError(t, err)

	b.Add(sampleTrajectory(10, true))
	b.Add(sampleTrajectory(3, false))
	b.Add(trajectory.New(kinematics.Vector2D{X: 1, Y: 2}, kinematics.Vector2D{X: 3, Y: 4}))
	assert.Equal(t, 1, b.Completed())

	var buf bytes.Buffer
	require.NoError(t, WriteBundle(context.Background(), &buf, b))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"attempt_001.csv", "attempt_002.csv", "attempt_003.csv", ManifestName}, names)

	got, err := ReadBundle(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, b.SessionID, got.SessionID)
	assert.Equal(t, "p-07", got.ParticipantID)
	assert.Equal(t, b.Geometry, got.Geometry)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
	if diff := cmp.Diff(b.Attempts, got.Attempts); diff != "" {
		t.Errorf("attempts changed through the bundle (-want +got):\n%s", diff)
	}
}

func TestBundle_AddTakesSnapshot(t *testing.T) {
	b := NewBundle("", testGeometry())
	traj := sampleTrajectory(2, false)
	b.Add(traj)
	traj.Frames[0].ShoulderAngle = 9
	assert.NotEqual(t, 9.0, b.Attempts[0].Frames[0].ShoulderAngle)
}

func TestWriteBundle_CancelledContext(t *testing.T) {
	b := NewBundle("", testGeometry())
	b.Add(sampleTrajectory(4, false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := WriteBundle(ctx, &buf, b)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, buf.Len())
}

func TestReadBundle_Errors(t *testing.T) {
	t.Run("NotAZip", func(t *testing.T) {
		data := []byte("definitely not a zip")
		_, err := ReadBundle(bytes.NewReader(data), int64(len(data)))
		assert.Error(t, err)
	})

	t.Run("NoManifest", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		_, err := zw.Create("attempt_001.csv")
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		_, err = ReadBundle(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		assert.True(t, errors.Is(err, ErrMissingManifest))
	})

	t.Run("MissingAttempt", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		require.NoError(t, writeEntry(zw, ManifestName, time.Now(), []byte(`{"sessionId":"x","attempts":[{"file":"attempt_001.csv","frames":1}]}`)))
		require.NoError(t, zw.Close())

		_, err := ReadBundle(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attempt_001.csv")
	})
}
