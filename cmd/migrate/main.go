package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate status

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/spf13/cobra"

	"scalpcare-backend/internal/shared/config"
	"scalpcare-backend/internal/shared/storage/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("migrate: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the customers and assessments schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), db.RunMigrations)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), db.RunMigrations)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), db.MigrationStatus)
			},
		},
	)
	return root
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return fn(ctx, sqlDB)
}
