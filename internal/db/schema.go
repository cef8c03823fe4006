package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id                 BIGSERIAL PRIMARY KEY,
		taken_at           TIMESTAMPTZ NOT NULL,
		day                DATE NOT NULL,
		spot_total_usd     DOUBLE PRECISION NOT NULL,
		pnl_invested       DOUBLE PRECISION NOT NULL,
		pnl_current_value  DOUBLE PRECISION NOT NULL,
		pnl_total          DOUBLE PRECISION NOT NULL,
		pnl_percent        DOUBLE PRECISION NOT NULL,
		assets_tracked     INTEGER NOT NULL,
		futures_unrealized DOUBLE PRECISION,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_taken_at ON portfolio_snapshots(taken_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_day ON portfolio_snapshots(day);`,
}

// EnsureSchema creates the tables the server writes to. It is idempotent.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	for _, stmt := range ddl {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
