package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/everkeep/backend/internal/model"
)

// Open connects to the primary store and runs schema migration.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Memorial{},
		&model.ContentItem{},
		&model.ActivityStatement{},
		&model.Follow{},
		&model.Like{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
