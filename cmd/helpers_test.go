// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/armtrace/internal/config"
	"github.com/xkilldash9x/armtrace/internal/export"
	"github.com/xkilldash9x/armtrace/internal/store"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

// newTestConfig returns the default configuration writing into a temp dir.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.SetExportOutputDir(t.TempDir())
	return cfg
}

// sweepTrajectory builds n frames stepMs apart with the shoulder swinging
// steadily upwards.
func sweepTrajectory(cfg config.Interface, n int, stepMs float64) trajectory.MotionTrajectory {
	start, target := taskPoints(cfg)
	g := geometry(cfg)
	frames := make([]trajectory.MotionFrame, n)
	for i := range frames {
		frames[i] = trajectory.NewFrame(float64(i)*stepMs, g.WithAngles(-0.05*float64(i), 0.3))
	}
	return trajectory.New(start, target).WithFrames(frames)
}

func encodeCSV(t *testing.T, traj trajectory.MotionTrajectory) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, traj))
	return buf.Bytes()
}

// memRepository is an in-memory store.Repository.
type memRepository struct {
	bundles map[string]*export.Bundle
	saveErr error
}

func newMemRepository() *memRepository {
	return &memRepository{bundles: make(map[string]*export.Bundle)}
}

func (m *memRepository) SaveBundle(_ context.Context, b *export.Bundle) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.bundles[b.SessionID] = b
	return nil
}

func (m *memRepository) LoadBundle(_ context.Context, sessionID string) (*export.Bundle, error) {
	b, ok := m.bundles[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
	}
	return b, nil
}
