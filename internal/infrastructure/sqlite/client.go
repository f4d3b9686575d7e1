// Package sqlite opens the embedded SQLite store and keeps its schema current.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fastygo/todo/assets"
)

// Open creates the database file if needed, applies migrations from dir (or
// the embedded set when dir is empty) and returns a ready handle.
func Open(ctx context.Context, path, dir string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrateUp(db, dir); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}

	logger.Info("opened sqlite store", zap.String("path", path))
	return db, nil
}

func migrateUp(db *sql.DB, dir string) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}

	src, err := assets.MigrationSource("sqlite", dir)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("migrations", src, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
