package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// OpenSQLite opens a SQLite database for local runs. path may be ":memory:".
func OpenSQLite(path string, logg *logger.Logger) (*gorm.DB, error) {
	if path == "" {
		path = "file:prepcoach.db?_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %q: %w", path, err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:" databases shared.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if logg != nil {
		logg.Info("Opened SQLite database", "path", path)
	}
	return db, nil
}
