package db

import (
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-freelance/internal/config"
	"github.com/diewo77/go-freelance/internal/models"
)

// Connect opens the PostgreSQL database with a simple retry loop to give
// the server time to start.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	var db *gorm.DB
	var err error
	for i := 0; i < 5; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. When sqlMigrations is true, versioned SQL
// migrations in ./migrations run via golang-migrate; otherwise AutoMigrate
// keeps the schema in sync (dev convenience).
func Migrate(db *gorm.DB, dbURL string, sqlMigrations bool) error {
	if sqlMigrations {
		m, err := migrate.New("file://migrations", dbURL)
		if err != nil {
			return err
		}
		if err = m.Up(); err != nil && err != migrate.ErrNoChange {
			return err
		}
		return nil
	}
	return AutoMigrate(db)
}

// AutoMigrate runs gorm migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Project{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Contract{},
		&models.Payment{},
		&models.WebhookEvent{},
		&models.OutboxEmail{},
	)
}
