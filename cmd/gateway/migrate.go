package main

import (
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/persistence/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := postgres.Connect(cmd.Context(), &cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return postgres.Migrate(cmd.Context(), db)
		},
	}
}
