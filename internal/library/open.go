package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// Open picks a backend from the DSN scheme. "sqlite://" (or a bare file
// path) opens the embedded store; "postgres://" and "postgresql://" open a
// pgx pool.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (Repository, error) {
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		return OpenPostgres(ctx, cfg, logger)
	case strings.HasPrefix(cfg.DSN, "sqlite://"), !strings.Contains(cfg.DSN, "://"):
		return OpenSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported database DSN %q", cfg.DSN)
	}
}
