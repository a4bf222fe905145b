package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ananth-NQI/tablepe-backend/internal/config"
	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

// DSN builds the postgres connection string. On Cloud Run the database is
// reached through the Cloud SQL unix socket.
func DSN(cfg *config.Config) string {
	if cfg.InstanceConnectionName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.InstanceConnectionName, cfg.DBUser, cfg.DBPass, cfg.DBName)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
}

// Connect opens the database
func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	if cfg.InstanceConnectionName != "" {
		logger.Info("connecting to Cloud SQL via socket", zap.String("instance", cfg.InstanceConnectionName))
	} else {
		logger.Info("connecting to PostgreSQL", zap.String("host", cfg.DBHost), zap.Int("port", cfg.DBPort))
	}

	level := gormlogger.Warn
	if cfg.IsProduction() {
		level = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("database connected")
	return db, nil
}

// Migrate creates or updates every table the service reads or writes
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ChatSession{},
		&models.Category{},
		&models.Subcategory{},
		&models.MenuItem{},
		&models.OpeningHours{},
		&models.Customer{},
		&models.DiningTable{},
		&models.Reservation{},
		&models.Order{},
		&models.OrderItem{},
		&models.KitchenTicket{},
	)
}
