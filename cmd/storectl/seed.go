package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dealership/internal/repository"
	"dealership/internal/repository/postgres"
)

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert vehicles and their images from a YAML fixture",
		Long: `Upsert vehicles from a YAML fixture into the configured store.

Existing vehicles with the same id are overwritten, including their status,
and their gallery is replaced.

Examples:
  storectl seed -f cars.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()

			items, err := parseFixture(f)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := seed(cmd.Context(), b, items, time.Now().UTC()); err != nil {
				return err
			}
			logger.WithField("count", len(items)).Info("vehicles seeded")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "cars.yaml", "fixture file")

	return cmd
}

// seed writes all items. The postgres backend writes them in one transaction.
func seed(ctx context.Context, b *backend, items []seedItem, now time.Time) error {
	if b.db == nil {
		return upsertAll(ctx, b.vehicles, items, now)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	if err := upsertAll(ctx, postgres.NewVehicleRepositoryWithTx(tx), items, now); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertAll(ctx context.Context, repo repository.VehicleRepository, items []seedItem, now time.Time) error {
	for _, item := range items {
		item.Vehicle.CreatedAt = now
		item.Vehicle.UpdatedAt = now
		if err := repo.Upsert(ctx, item.Vehicle, item.Images); err != nil {
			return fmt.Errorf("upsert vehicle %s: %w", item.Vehicle.ID, err)
		}
	}
	return nil
}
