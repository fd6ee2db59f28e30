package infra

import (
	"fmt"

	"gmcore/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and runs
// AutoMigrate to create or update all tables. Partial unique indexes
// (one active alert per item, one active key per kind) are expressed in
// the model tags and created here.
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

// RunMigrations applies the schema. Also used by integration tests
// against a disposable database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Location{},
		&model.StaffAssignment{},
		&model.InventoryItem{},
		&model.StockMovement{},
		&model.StockReservation{},
		&model.LowStockAlert{},
		&model.InventoryAudit{},
		&model.AuditLine{},
		&model.ActivityEntry{},
		&model.LoginSession{},
		&model.UsageBucket{},
		&model.SecretKey{},
		&model.NotificationIntent{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}
