package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/extension-hours-api/internal/models"
)

// Open connects to the store found at location. Plain paths (and sqlite "file:" URIs)
// open the embedded SQLite database; postgres:// DSNs open PostgreSQL.
func Open(location string) (*gorm.DB, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("database location must not be empty")
	}

	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		return ConnectPostgres(location)
	}

	return ConnectSQLite(location)
}

// ConnectSQLite opens the embedded database, creating its directory when needed.
func ConnectSQLite(path string) (*gorm.DB, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// single-process store; serialise writers on one connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema of every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Student{},
		&models.Place{},
		&models.ActivityRecord{},
		&models.User{},
		&models.AuditEntry{},
	)
}
