package database

import (
	"fmt"

	"medqueue-portal/config"
	"medqueue-portal/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresConnection opens the audit trail database and migrates its
// schema. timezone is passed to the server session so stored timestamps
// read back in clinic time.
func NewPostgresConnection(cfg config.DBConfig, timezone string, env string) (*gorm.DB, error) {
	if timezone == "" || timezone == "Local" {
		timezone = "UTC"
	}
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, timezone,
	)

	logLevel := logger.Warn
	if env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Audit writes are small and infrequent
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)

	if err := db.AutoMigrate(&entity.AuditLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit log table: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL database")

	return db, nil
}
