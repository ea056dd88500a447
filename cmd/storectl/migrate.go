package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dealership/internal/config"
	"dealership/internal/repository/postgres"
)

var errSupabaseMigrate = errors.New("migrate only applies to the postgres backend; apply schema.sql through the Supabase SQL editor")

func migrateCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the cars, car_images and reservations tables",
		Long: `Apply the storefront schema to the configured PostgreSQL database.

The schema is idempotent and can be applied repeatedly.

Examples:
  storectl migrate
  storectl migrate --print`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), postgres.Schema())
				return nil
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreBackend == config.StoreBackendSupabase {
				return errSupabaseMigrate
			}

			b, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := postgres.Migrate(cmd.Context(), b.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("schema applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")

	return cmd
}
