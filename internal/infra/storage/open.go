package storage

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
)

// Open connects the store selected by cfg.DBDialect.
func Open(ctx context.Context, cfg config.Server) (Store, error) {
	switch cfg.DBDialect {
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN, cfg.DBMaxOpenConns)
	case "sqlite", "":
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.DBDialect)
	}
}
