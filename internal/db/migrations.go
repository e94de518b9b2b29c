package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id                      UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_id                TEXT NOT NULL,
		declared_license_number TEXT NOT NULL,
		verified_license_number TEXT NOT NULL,
		jurisdiction            TEXT,
		photos                  JSONB NOT NULL,
		status                  TEXT NOT NULL DEFAULT 'available',
		model                   TEXT NOT NULL,
		year                    INT NOT NULL,
		mileage                 INT NOT NULL,
		color                   TEXT,
		leather                 BOOLEAN NOT NULL DEFAULT false,
		location                TEXT NOT NULL,
		purpose                 TEXT NOT NULL DEFAULT 'for rent',
		terms                   TEXT NOT NULL,
		payment_interval        TEXT NOT NULL DEFAULT 'weekly',
		remittance              INT NOT NULL DEFAULT 25000,
		contract_duration       TEXT NOT NULL DEFAULT 'not specified',
		created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT vehicles_photos_len CHECK (jsonb_array_length(photos) = 6)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_vehicles_verified_license ON vehicles(verified_license_number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_vehicles_declared_license ON vehicles(declared_license_number);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_owner_id ON vehicles(owner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_status ON vehicles(status);`,
	`CREATE TABLE IF NOT EXISTS vehicle_requests (
		id          UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		vehicle_id  UUID NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		driver_id   TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'open',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_vehicle_requests_driver_vehicle ON vehicle_requests(driver_id, vehicle_id);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_requests_vehicle_id ON vehicle_requests(vehicle_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
