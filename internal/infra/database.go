package infra

import (
	"fmt"

	"qist/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection (pgx driver), migrates the models
// and applies the idempotent SQL patches GORM tags cannot express.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table, then applies schema patches.
// Integration tests call it directly against a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Order{},
		&model.Verification{},
		&model.PurchaserVerification{},
		&model.GrantorVerification{},
		&model.NextOfKin{},
		&model.LocationTracking{},
		&model.VerificationDocument{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs DDL that GORM tags cannot describe. Every
// statement is guarded so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Same-day duplicate suppression backstop: one open order per
		// (contact, product, business day).
		{"partial unique idx_orders_active_daily", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_orders_active_daily') THEN
    CREATE UNIQUE INDEX idx_orders_active_daily
        ON orders (whatsapp_number, product_name, created_on)
        WHERE status NOT IN ('cancelled', 'delivered');
  END IF;
END $$`},
		{"grantor_number range check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_grantor_verifications_number') THEN
    ALTER TABLE grantor_verifications
      ADD CONSTRAINT chk_grantor_verifications_number CHECK (grantor_number IN (1, 2));
  END IF;
END $$`},
		{"orders status check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_orders_status') THEN
    ALTER TABLE orders ADD CONSTRAINT chk_orders_status
      CHECK (status IN ('new', 'assigned', 'in_progress', 'completed', 'delivered', 'cancelled'));
  END IF;
END $$`},
		{"open assignment lookup index", `
CREATE INDEX IF NOT EXISTS idx_orders_open_assignee
    ON orders (assigned_to_user_id)
    WHERE assigned_to_user_id IS NOT NULL AND status NOT IN ('cancelled', 'delivered')`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
