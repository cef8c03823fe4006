package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/binance-dash/internal/models"
)

const snapshotColumns = `id, taken_at, day, spot_total_usd, pnl_invested, pnl_current_value,
	pnl_total, pnl_percent, assets_tracked, futures_unrealized, created_at`

type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

func (r *SnapshotRepo) Record(ctx context.Context, s *models.Snapshot) (*models.Snapshot, error) {
	day, err := time.Parse(time.DateOnly, s.Day)
	if err != nil {
		day = s.TakenAt.UTC()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO portfolio_snapshots
			(taken_at, day, spot_total_usd, pnl_invested, pnl_current_value,
			 pnl_total, pnl_percent, assets_tracked, futures_unrealized)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+snapshotColumns,
		s.TakenAt, day, s.SpotTotalUSD, s.PnLInvested, s.PnLCurrentValue,
		s.PnLTotal, s.PnLPercent, s.AssetsTracked, s.FuturesUnrealized,
	)
	return scanSnapshot(row)
}

// GetLatest returns the most recent snapshot, or nil when none exists.
func (r *SnapshotRepo) GetLatest(ctx context.Context) (*models.Snapshot, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots ORDER BY taken_at DESC LIMIT 1`,
	)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// GetHistory returns up to limit snapshots, newest first.
func (r *SnapshotRepo) GetHistory(ctx context.Context, limit int) ([]models.Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots ORDER BY taken_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// DeleteBefore removes snapshots taken before cutoff and returns how many went.
func (r *SnapshotRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM portfolio_snapshots WHERE taken_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*models.Snapshot, error) {
	var s models.Snapshot
	var day time.Time
	err := row.Scan(&s.ID, &s.TakenAt, &day, &s.SpotTotalUSD, &s.PnLInvested, &s.PnLCurrentValue,
		&s.PnLTotal, &s.PnLPercent, &s.AssetsTracked, &s.FuturesUnrealized, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Day = day.Format(time.DateOnly)
	return &s, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectSnapshots(rows rowsIter) ([]models.Snapshot, error) {
	out := []models.Snapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
