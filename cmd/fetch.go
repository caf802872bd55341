// File: cmd/fetch.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/armtrace/internal/config"
	"github.com/xkilldash9x/armtrace/internal/observability"
	"github.com/xkilldash9x/armtrace/internal/store"
)

// openStore connects to the configured database and applies the schema. The
// returned func closes the pool.
func openStore(ctx context.Context, logger *zap.Logger, sc config.StoreConfig) (*store.Store, func(), error) {
	if sc.DatabaseURL == "" {
		return nil, nil, errors.New("store.database_url is not configured")
	}
	pool, err := pgxpool.New(ctx, sc.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

func newFetchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <session-id>",
		Short: "Export a persisted recording session to a zip bundle.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.SetExportOutputDir(output)
			}

			repo, closeStore, err := openStore(ctx, logger, cfg.Store())
			if err != nil {
				return err
			}
			defer closeStore()

			_, err = runFetch(ctx, logger, cfg, repo, args[0], cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "Directory the bundle is written to")
	return cmd
}

// runFetch loads sessionID from repo and writes it as a bundle file.
func runFetch(ctx context.Context, logger *zap.Logger, cfg config.Interface, repo store.Repository, sessionID string, out io.Writer) (string, error) {
	b, err := repo.LoadBundle(ctx, sessionID)
	if err != nil {
		return "", err
	}
	path, err := writeBundleFile(ctx, cfg.Export(), b)
	if err != nil {
		return "", err
	}
	logger.Info("Session exported", zap.String("session_id", sessionID), zap.String("path", path))
	fmt.Fprintf(out, "Exported %d attempts to %s\n", len(b.Attempts), path)
	return path, nil
}
