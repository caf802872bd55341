// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/armtrace/internal/export"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "armtrace version "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeRoot(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Record, smooth and replay 2-link arm reaching trajectories.")
	for _, sub := range []string{"record", "smooth", "replay"} {
		assert.Contains(t, out, sub)
	}
}

func TestGetConfigFromContext_Missing(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	require.Error(t, err)
}

func TestRecordCmd_WithConfigFile(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`
logger:
  level: error
task:
  attempts: 4
export:
  output_dir: %q
  filename_prefix: pilot
participant:
  id: p07
`, outDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	out, err := executeRoot(t, "record", "--config", cfgPath, "--attempts", "2", "--seed", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 2 attempts")

	matches, err := filepath.Glob(filepath.Join(outDir, "pilot_*.zip"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	b := readBundleFile(t, matches[0])
	assert.Equal(t, "p07", b.ParticipantID)
	assert.Len(t, b.Attempts, 2)
}

func TestRecordCmd_Errors(t *testing.T) {
	t.Run("MissingConfigFile", func(t *testing.T) {
		_, err := executeRoot(t, "record", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("BadSmoothingMethod", func(t *testing.T) {
		_, err := executeRoot(t, "record", "--output", t.TempDir(), "--method", "median", "--strength", "10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid smoothing flags")
	})

	t.Run("InvalidEnvOverride", func(t *testing.T) {
		t.Setenv("ARMTRACE_ARM_UPPER_ARM_LENGTH", "-5")
		_, err := executeRoot(t, "record", "--output", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load or validate config")
	})
}

func TestSmoothCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestConfig(t)
	in := filepath.Join(dir, "attempt.csv")
	outPath := filepath.Join(dir, "smoothed.csv")
	require.NoError(t, os.WriteFile(in, encodeCSV(t, sweepTrajectory(cfg, 12, 16)), 0o644))

	_, err := executeRoot(t, "smooth", in, "-o", outPath, "--method", "moving_average", "--strength", "40")
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	got, err := export.ReadCSV(f)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Len())
}

func TestReplayCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestConfig(t)
	in := filepath.Join(dir, "attempt.csv")
	require.NoError(t, os.WriteFile(in, encodeCSV(t, sweepTrajectory(cfg, 3, 10)), 0o644))

	out, err := executeRoot(t, "replay", in, "--fps", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "frame 0 t=0.0ms")
	assert.Contains(t, out, "frame 2 t=20.0ms")

	_, err = executeRoot(t, "replay", in, "--fps", "0")
	require.Error(t, err)
}
