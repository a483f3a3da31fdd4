package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"badgeissuer/internal/platform/postgres"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := commonRun()
			if cfg.Postgres.DSN == "" {
				return errors.New("postgres.dsn is required")
			}
			db, err := postgres.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(db); err != nil {
				log.Error("migration failed", "error", err)
				os.Exit(1)
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
