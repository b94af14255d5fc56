package database

import (
	"fmt"

	"github.com/yashrajoria/flash-sale-service/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectPostgres opens a gorm connection and migrates the flash-sale
// tables. Unique violations are translated to gorm.ErrDuplicatedKey.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Payment{}, &models.Purchase{}, &models.Account{}); err != nil {
		return nil, fmt.Errorf("failed to migrate PostgreSQL schema: %w", err)
	}
	return db, nil
}
