// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations, and a guarded column check
// that verifies the gamification fields exist after migration.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/dtsiaousis/go-learning-tracker/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or extends the schema for all tracked models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Idempotency{},
	)
}

// userColumns are the gamification fields that AddFact and GetStats depend
// on. VerifyUserColumns checks them after migration so a partially migrated
// database fails at startup instead of at the first write.
var userColumns = []string{
	"facts_learned",
	"current_streak",
	"longest_streak",
	"total_facts_count",
	"last_activity_date",
}

// VerifyUserColumns reports an error naming every required users column that
// is missing from the live schema.
func VerifyUserColumns(db *gorm.DB) error {
	m := db.Migrator()
	var missing []string
	for _, col := range userColumns {
		if !m.HasColumn(&domain.User{}, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("users table is missing columns: %v", missing)
	}
	return nil
}
