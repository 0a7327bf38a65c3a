package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pepperlife/animcore/internal/infrastructure/database"
	"github.com/pepperlife/animcore/internal/playback"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 10

// errHistoryDisabled is returned by history commands when database.enabled is false.
var errHistoryDisabled = errors.New("playback history is disabled (database.enabled: false)")

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "List recent playback runs",
		Long: `List recent playback runs, newest first, or show one run in detail.

Examples:
  animplay history
  animplay history --limit 50
  animplay history 3f6c2a9e-2d1b-4f0a-9c55-0b7e1f9d6a41`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryShow(cmd.Context(), root, args[0], cmd.OutOrStdout())
			}
			return runHistoryList(cmd.Context(), root, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of runs to list (1-100)")
	return cmd
}

// withHistory opens the history database for the duration of fn.
func withHistory(ctx context.Context, root *rootOptions, fn func(*database.DB, playback.Repository) error) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck // Nothing useful to do on exit

	db, repo, err := openHistory(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db == nil {
		return errHistoryDisabled
	}
	defer db.Close() //nolint:errcheck // Read-only use

	return fn(db, repo)
}

func runHistoryList(ctx context.Context, root *rootOptions, limit int, out io.Writer) error {
	return withHistory(ctx, root, func(_ *database.DB, repo playback.Repository) error {
		execs, err := repo.ListExecutions(ctx, limit)
		if err != nil {
			return fmt.Errorf("listing executions: %w", err)
		}
		renderHistory(out, execs)
		return nil
	})
}

func runHistoryShow(ctx context.Context, root *rootOptions, id string, out io.Writer) error {
	return withHistory(ctx, root, func(_ *database.DB, repo playback.Repository) error {
		exec, err := repo.GetExecution(ctx, id)
		if err != nil {
			return fmt.Errorf("execution %s: %w", id, err)
		}
		renderExecution(out, exec)
		return nil
	})
}

func newDBCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the history database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withHistory(ctx, root, func(db *database.DB, _ playback.Repository) error {
				applied, pending, err := db.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				renderMigrations(cmd.OutOrStdout(), db.Path(), applied, pending)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent schema migration",
		Long: "Roll back the most recent schema migration.\n\n" +
			"The next command that opens the history database applies it again.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withHistory(ctx, root, func(db *database.DB, _ playback.Repository) error {
				applied, _, err := db.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					writeLine(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				if err := db.MigrateDown(ctx); err != nil {
					return err
				}
				writeLine(cmd.OutOrStdout(), "rolled back %s", applied[len(applied)-1].Version)
				return nil
			})
		},
	})
	return cmd
}
