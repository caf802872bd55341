// File: cmd/record.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/armtrace/internal/config"
	"github.com/xkilldash9x/armtrace/internal/export"
	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/observability"
	"github.com/xkilldash9x/armtrace/internal/participant"
	"github.com/xkilldash9x/armtrace/internal/scheduler"
	"github.com/xkilldash9x/armtrace/internal/session"
	"github.com/xkilldash9x/armtrace/internal/store"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

// recordEpoch anchors the simulated clock. Frame timestamps are relative to
// the start of each attempt so the absolute value never shows up in output.
var recordEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newRecordCmd() *cobra.Command {
	var (
		attempts int
		seed     int64
		output   string
		method   string
		strength float64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record reaching attempts with a simulated participant.",
		Long: `Drives the arm with a synthetic participant for the configured number of
attempts and writes every attempt, plus a manifest, to a zip bundle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("attempts") {
				cfg.SetTaskAttempts(attempts)
			}
			if cmd.Flags().Changed("seed") {
				cfg.SetParticipantSeed(seed)
			}
			if cmd.Flags().Changed("output") {
				cfg.SetExportOutputDir(output)
			}
			if cmd.Flags().Changed("method") {
				cfg.SetSmoothingMethod(method)
			}
			if cmd.Flags().Changed("strength") {
				cfg.SetSmoothingStrength(strength)
			}
			if cfg.Task().Attempts <= 0 {
				return fmt.Errorf("--attempts must be a positive integer")
			}
			sc := cfg.Smoothing()
			if err := sc.Validate(); err != nil {
				return fmt.Errorf("invalid smoothing flags: %w", err)
			}

			var repo store.Repository
			if cfg.Store().DatabaseURL != "" {
				s, closeStore, err := openStore(ctx, logger, cfg.Store())
				if err != nil {
					return err
				}
				defer closeStore()
				repo = s
			}

			_, err = runRecord(ctx, logger, cfg, repo, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().IntVarP(&attempts, "attempts", "n", 5, "Number of attempts to record")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for the simulated participant")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Directory the bundle is written to")
	cmd.Flags().StringVar(&method, "method", "gaussian", "Smoothing applied to each attempt (gaussian, moving_average)")
	cmd.Flags().Float64Var(&strength, "strength", 0, "Smoothing strength, 0-100 (0 disables smoothing)")
	return cmd
}

// runRecord records every attempt and returns the path of the written bundle.
// The bundle is also saved to repo when one is given.
func runRecord(ctx context.Context, logger *zap.Logger, cfg config.Interface, repo store.Repository, out io.Writer) (string, error) {
	task := cfg.Task()
	start, target := taskPoints(cfg)

	clock := scheduler.NewManualClock(recordEpoch)
	sched := scheduler.NewManualScheduler()
	sess := session.New(sessionOptions(cfg), sched, clock, logger)
	model := participant.New(participantConfig(cfg))

	participantID := cfg.Participant().ID
	if participantID == "" {
		participantID = fmt.Sprintf("synthetic-%d", cfg.Participant().Seed)
	}
	bundle := export.NewBundle(participantID, geometry(cfg))
	log := logger.With(zap.String("session_id", bundle.SessionID))

	for i := 0; i < task.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		traj, err := recordAttempt(sess, sched, clock, model, start, target, task.Timeout)
		if err != nil {
			return "", fmt.Errorf("attempt %d: %w", i+1, err)
		}
		if traj, err = smoothAttempt(sess, cfg.Smoothing(), traj); err != nil {
			return "", fmt.Errorf("attempt %d: %w", i+1, err)
		}

		bundle.Add(traj)
		log.Info("Attempt recorded",
			zap.Int("attempt", i+1),
			zap.Int("frames", traj.Len()),
			zap.Bool("completed", traj.Completed),
			zap.Duration("duration", traj.Duration()),
		)
	}

	path, err := writeBundleFile(ctx, cfg.Export(), bundle)
	if err != nil {
		return "", err
	}
	if repo != nil {
		if err := repo.SaveBundle(ctx, bundle); err != nil {
			return path, fmt.Errorf("bundle written to %s but not persisted: %w", path, err)
		}
	}

	fmt.Fprintf(out, "Recorded %d attempts (%d completed) to %s\n", len(bundle.Attempts), bundle.Completed(), path)
	return path, nil
}

// recordAttempt runs one drag from start towards target. The clock follows
// the sample offsets so frame timestamps match the simulated motion.
func recordAttempt(
	sess *session.Session,
	sched *scheduler.ManualScheduler,
	clock *scheduler.ManualClock,
	model *participant.Model,
	start, target kinematics.Vector2D,
	timeout time.Duration,
) (trajectory.MotionTrajectory, error) {
	sess.StartAttempt(start, target)

	grab := kinematics.ForwardKinematics(sess.Arm()).EndEffector
	if !sess.BeginDrag(grab) {
		return trajectory.MotionTrajectory{}, fmt.Errorf("could not grab the end effector at (%.1f, %.1f)", grab.X, grab.Y)
	}
	sess.SetState(session.StateRecording)
	sched.Step()

	origin := clock.Now()
	for _, sample := range model.Generate(grab, target, nil) {
		if timeout > 0 && sample.At > timeout {
			break
		}
		clock.Set(origin.Add(sample.At))
		sess.DragTo(sample.Point)
		sched.Step()
		if !sess.Dragging() {
			break
		}
	}

	sess.EndDrag()
	sess.SetState(session.StateIdle)
	return sess.Trajectory(), nil
}

func smoothAttempt(sess *session.Session, sc config.SmoothingConfig, traj trajectory.MotionTrajectory) (trajectory.MotionTrajectory, error) {
	if sc.Strength <= 0 {
		return traj, nil
	}
	method, err := trajectory.ParseMethod(sc.Method)
	if err != nil {
		return traj, err
	}
	if !sess.Smooth(method, sc.Strength) {
		return traj, nil
	}
	return sess.Trajectory(), nil
}

func writeBundleFile(ctx context.Context, ec config.ExportConfig, b *export.Bundle) (string, error) {
	dir := ec.OutputDir
	if dir == "" {
		dir = "."
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix := ec.FilenamePrefix
	if prefix == "" {
		prefix = "armtrace"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.zip", prefix, b.SessionID))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create bundle file: %w", err)
	}
	if err := export.WriteBundle(ctx, f, b); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close bundle file: %w", err)
	}
	return path, nil
}
