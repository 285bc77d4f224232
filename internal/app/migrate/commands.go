// Package migrate implements the schema and seed CLI.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Apurer/go-gin-records-api/internal/platform/migrations"
	platformpostgres "github.com/Apurer/go-gin-records-api/internal/platform/postgres"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DSN     string
	Timeout time.Duration
	Verbose bool
}

// NewRootCommand creates the root command for the migrate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the records database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.DSN) == "" {
				return fmt.Errorf("a postgres DSN is required (--dsn or POSTGRES_DSN)")
			}
			if opts.Timeout <= 0 {
				return fmt.Errorf("invalid timeout %s: must be positive", opts.Timeout)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", os.Getenv("POSTGRES_DSN"), "postgres DSN")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "overall command timeout")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewUpCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// NewUpCommand creates the up command.
func NewUpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create or update the records schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, rootOpts, func(_ context.Context, db *gorm.DB) error {
				if err := migrations.Run(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	seedOpts := migrations.SeedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty records table with generated rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, rootOpts, func(ctx context.Context, db *gorm.DB) error {
				if err := migrations.Run(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				result, err := migrations.Seed(ctx, db, seedOpts)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				if result.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "seed skipped: already applied or table not empty")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records\n", result.Inserted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&seedOpts.Count, "count", migrations.DefaultSeedCount, "number of records to generate")
	cmd.Flags().IntVar(&seedOpts.BatchSize, "batch-size", migrations.DefaultSeedBatchSize, "rows per insert statement")
	return cmd
}

func withDB(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	db, err := platformpostgres.Connect(ctx, opts.DSN, platformpostgres.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(ctx, db)
}
