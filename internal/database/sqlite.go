package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/yarnscape/backend/internal/inventory"
	"github.com/yarnscape/backend/internal/patterns"
	"github.com/yarnscape/backend/internal/settings"
	"github.com/yarnscape/backend/internal/tracking"
	"github.com/yarnscape/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&users.Account{},
		&patterns.Pattern{},
		&patterns.PublishedPattern{},
		&patterns.SaveRecord{},
		&tracking.Project{},
		&inventory.Yarn{},
		&inventory.Tool{},
		&settings.UserSettings{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
