package main

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"dealership/internal/app"
	"dealership/internal/config"
	"dealership/internal/repository"
	"dealership/internal/repository/postgres"
	"dealership/internal/repository/supabase"
)

// backend is the vehicle store selected by STORE_BACKEND.
type backend struct {
	db       *sql.DB // nil for supabase
	vehicles repository.VehicleRepository
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadStore()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, app.NewLogger(cfg.Log), nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger log.FieldLogger) (*backend, error) {
	if cfg.StoreBackend == config.StoreBackendSupabase {
		client := supabase.NewClient(cfg.Supabase, logger)
		return &backend{vehicles: supabase.NewVehicleRepository(client)}, nil
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return nil, err
	}
	return &backend{db: db, vehicles: postgres.NewVehicleRepository(db)}, nil
}
