// File: cmd/replay.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/armtrace/internal/config"
	"github.com/xkilldash9x/armtrace/internal/export"
	"github.com/xkilldash9x/armtrace/internal/observability"
	"github.com/xkilldash9x/armtrace/internal/scheduler"
	"github.com/xkilldash9x/armtrace/internal/session"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

func newReplayCmd() *cobra.Command {
	var (
		fps         int
		interpolate bool
	)

	cmd := &cobra.Command{
		Use:   "replay <trajectory.csv>",
		Short: "Play a recorded trajectory back in real time.",
		Long: `Replays a trajectory CSV at its recorded speed and prints one line per
frame shown. Interrupting the command stops playback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fps") {
				if fps <= 0 {
					return fmt.Errorf("--fps must be a positive integer")
				}
				cfg.SetPlaybackFrameRate(fps)
			}
			if cmd.Flags().Changed("interpolate") {
				cfg.SetPlaybackInterpolate(interpolate)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			traj, err := export.ReadCSV(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to read trajectory: %w", err)
			}

			return runReplay(ctx, logger, cfg, traj, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 60, "Frames per second of the playback loop")
	cmd.Flags().BoolVar(&interpolate, "interpolate", false, "Blend between recorded frames")
	return cmd
}

// runReplay plays traj until the last frame has been shown or ctx is done.
func runReplay(ctx context.Context, logger *zap.Logger, cfg config.Interface, traj trajectory.MotionTrajectory, out io.Writer) error {
	if traj.Len() == 0 {
		return errors.New("trajectory has no frames to replay")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewTickerScheduler(cfg.Playback().FrameRate, logger)
	sess := session.New(sessionOptions(cfg), sched, scheduler.SystemClock{}, logger)
	sess.Load(traj)

	printFrame := func(i int) {
		f := traj.Frames[i]
		fmt.Fprintf(out, "frame %d t=%.1fms shoulder=%.4f elbow=%.4f effector=(%.2f, %.2f)\n",
			i, f.Timestamp, f.ShoulderAngle, f.ElbowAngle, f.EndEffectorPosition.X, f.EndEffectorPosition.Y)
	}

	var finished atomic.Bool
	sess.OnFrame(printFrame)
	sess.OnStateChange(func(st session.State) {
		if st == session.StateIdle {
			finished.Store(true)
			cancel()
		}
	})

	printFrame(0)
	if !sess.SetState(session.StatePlaying) {
		return errors.New("playback could not start")
	}

	err := sched.Run(ctx)
	switch {
	case finished.Load():
		logger.Info("Replay finished", zap.Int("frames", traj.Len()), zap.Duration("duration", traj.Duration()))
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Info("Replay interrupted", zap.Int("frame", sess.CurrentFrame()))
		return nil
	default:
		return err
	}
}
