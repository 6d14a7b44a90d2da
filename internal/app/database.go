package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	dialectPostgres   = "postgres"
	dialectSQLite     = "sqlite"
	defaultSQLiteFile = "reflections.db"
	sqliteBusyPragma  = "_pragma=busy_timeout(5000)"
)

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	dialect, sqlitePath, err := resolveDialect(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch dialect {
	case dialectPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case dialectSQLite:
		db, err = gorm.Open(sqlite.Open(withBusyTimeout(sqlitePath)), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", dialect)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	if dialect == dialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, dialect, nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func resolveDialect(dsn string) (string, string, error) {
	if isPostgresURL(dsn) {
		return dialectPostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = defaultSQLiteFile
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return dialectSQLite, sqlitePath, err
	}
	// Anything else is a plain sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return dialectSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func withBusyTimeout(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?" + sqliteBusyPragma
}
