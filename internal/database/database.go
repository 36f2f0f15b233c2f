package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"option-calc-go/internal/config"
	"option-calc-go/internal/models"
)

// NewDatabase opens the fee profile catalog and seeds it from the config.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// In-memory sqlite is per connection; a single connection keeps one catalog.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate drops the catalog, recreates it, and populates it from the config.
// The config file is the source of truth for fee schedules.
func AutoMigrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.Migrator().DropTable(&models.FeeProfile{}); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}

	if err := db.AutoMigrate(&models.FeeProfile{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	for i, p := range cfg.Profiles() {
		profile := models.FeeProfile{
			Name:               p.Name,
			CommissionPerMille: p.CommissionPerMille,
			BSMVPercent:        p.BSMVPercent,
			StopajPercent:      p.StopajPercent,
			IsDefault:          i == 0,
		}
		if err := db.Where(models.FeeProfile{Name: p.Name}).Assign(profile).FirstOrCreate(&profile).Error; err != nil {
			return fmt.Errorf("failed to populate fee profile '%s': %w", p.Name, err)
		}
	}

	return nil
}

// CloseDB releases the underlying connection pool.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
