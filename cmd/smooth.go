// File: cmd/smooth.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/armtrace/internal/config"
	"github.com/xkilldash9x/armtrace/internal/export"
	"github.com/xkilldash9x/armtrace/internal/observability"
	"github.com/xkilldash9x/armtrace/internal/trajectory"
)

func newSmoothCmd() *cobra.Command {
	var (
		output   string
		method   string
		strength float64
	)

	cmd := &cobra.Command{
		Use:   "smooth <trajectory.csv>",
		Short: "Smooth a recorded trajectory CSV.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("method") {
				cfg.SetSmoothingMethod(method)
			}
			if cmd.Flags().Changed("strength") {
				cfg.SetSmoothingStrength(strength)
			}

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return runSmooth(ctx, logger, cfg, in, out)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV path (default stdout)")
	cmd.Flags().StringVar(&method, "method", "gaussian", "Smoothing method (gaussian, moving_average)")
	cmd.Flags().Float64Var(&strength, "strength", 50, "Smoothing strength, 0-100")
	return cmd
}

// runSmooth reads a trajectory CSV from in and writes the smoothed copy to out.
func runSmooth(ctx context.Context, logger *zap.Logger, cfg config.Interface, in io.Reader, out io.Writer) error {
	sc := cfg.Smoothing()
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("invalid smoothing settings: %w", err)
	}
	method, err := trajectory.ParseMethod(sc.Method)
	if err != nil {
		return err
	}

	traj, err := export.ReadCSV(in)
	if err != nil {
		return fmt.Errorf("failed to read trajectory: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if sc.Strength == 0 {
		logger.Warn("Smoothing strength is 0, trajectory is copied unchanged")
	}

	smoothed := trajectory.Smooth(traj, method, sc.Strength, geometry(cfg))
	logger.Info("Trajectory smoothed",
		zap.String("method", string(method)),
		zap.Float64("strength", sc.Strength),
		zap.Int("frames", smoothed.Len()),
	)
	return export.WriteCSV(out, smoothed)
}
