package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rx-repurpose/config"
)

// Open verbindet sich mit dem konfigurierten Ziel. Für SQLite wird das Verzeichnis bei Bedarf angelegt.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return db, nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.DBDriver)
}

// IsDSN erkennt PostgreSQL-Verbindungsstrings (URL- oder key=value-Form).
func IsDSN(target string) bool {
	t := strings.TrimSpace(target)
	return strings.HasPrefix(t, "postgres://") || strings.HasPrefix(t, "postgresql://") ||
		strings.Contains(t, "host=") || strings.Contains(t, "dbname=")
}

// OpenTarget öffnet einen bestehenden Graphen: DSN -> PostgreSQL, sonst SQLite-Datei.
// Eine fehlende SQLite-Datei ist ein Fehler, damit kein leerer Graph entsteht.
func OpenTarget(target string) (*gorm.DB, error) {
	if IsDSN(target) {
		return Open(&config.Config{DBDriver: config.DriverPostgres, PostgresDSN: target})
	}
	if _, err := os.Stat(target); err != nil {
		return nil, fmt.Errorf("graph database %s: %w", target, err)
	}
	return Open(&config.Config{DBDriver: config.DriverSQLite, SQLitePath: target})
}
