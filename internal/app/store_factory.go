package app

import (
	"fmt"
	"strings"

	"github.com/shrimpsizemoose/campusevents/internal/store"
	"github.com/shrimpsizemoose/campusevents/internal/store/postgres"
	"github.com/shrimpsizemoose/campusevents/internal/store/sqlite"
)

func DatabaseTypeFromDSN(dsn string) store.DatabaseType {
	if strings.HasPrefix(dsn, "postgres") {
		return store.DBTypePostgres
	}
	return store.DBTypeSQLite
}

func NewStore(cfg store.DBConfig) (store.CampusStore, error) {
	if cfg.Type == "" {
		cfg.Type = DatabaseTypeFromDSN(cfg.DSN)
	}

	switch cfg.Type {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(cfg.DSN, cfg.MigrationsDir)
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(cfg.DSN, cfg.MigrationsDir)
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", cfg.DSN)
	}
}
