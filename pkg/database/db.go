package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dittygoops/helpdesk-backend/internal/config"
	"github.com/dittygoops/helpdesk-backend/internal/model"
)

// Connect opens the configured store: postgres when DATABASE_URL is set,
// otherwise a local sqlite file. TranslateError is on so unique-constraint
// violations surface as gorm.ErrDuplicatedKey on both drivers.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		return db, nil
	}
	return ConnectSQLite(cfg.SQLitePath)
}

// ConnectSQLite opens a sqlite database at path. ":memory:" gives a fresh
// in-memory store, which the tests rely on.
func ConnectSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.OneTimePassword{},
		&model.Group{},
		&model.Article{},
		&model.ArticleGroup{},
		&model.GroupPermission{},
	)
}
