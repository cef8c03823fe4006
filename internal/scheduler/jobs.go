package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kjannette/binance-dash/internal/models"
	"github.com/rs/zerolog"
)

const defaultJobTimeout = 2 * time.Minute

// Snapshotter produces a point-in-time valuation and the alerts that
// currently hold.
type Snapshotter interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	CurrentAlerts(ctx context.Context) ([]models.Alert, error)
}

type SnapshotStore interface {
	Record(ctx context.Context, s *models.Snapshot) (*models.Snapshot, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertTracker filters an alert set down to newly raised alerts.
type AlertTracker interface {
	Update(current []models.Alert) []models.Alert
}

type AlertSink interface {
	SendAlerts(alerts []models.Alert)
}

// SnapshotJob records a valuation, prunes rows older than Retention and
// forwards newly raised alerts. Tracker and Sink are optional.
type SnapshotJob struct {
	Source    Snapshotter
	Store     SnapshotStore
	Tracker   AlertTracker
	Sink      AlertSink
	Retention time.Duration
	Timeout   time.Duration
	Log       zerolog.Logger

	now func() time.Time
}

func (j *SnapshotJob) Name() string { return "snapshot" }

func (j *SnapshotJob) Run() error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log := j.Log.With().Str("job", j.Name()).Logger()

	snap, err := j.Source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("take snapshot: %w", err)
	}
	saved, err := j.Store.Record(ctx, &snap)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	log.Info().
		Int64("id", saved.ID).
		Float64("spot_usd", saved.SpotTotalUSD).
		Float64("pnl", saved.PnLTotal).
		Msg("Snapshot recorded")

	if j.Retention > 0 {
		now := time.Now
		if j.now != nil {
			now = j.now
		}
		n, err := j.Store.DeleteBefore(ctx, now().Add(-j.Retention))
		if err != nil {
			log.Warn().Err(err).Msg("Snapshot pruning failed")
		} else if n > 0 {
			log.Info().Int64("deleted", n).Msg("Old snapshots pruned")
		}
	}

	if j.Tracker == nil || j.Sink == nil {
		return nil
	}
	current, err := j.Source.CurrentAlerts(ctx)
	if err != nil {
		return fmt.Errorf("evaluate alerts: %w", err)
	}
	if raised := j.Tracker.Update(current); len(raised) > 0 {
		log.Warn().Int("alerts", len(raised)).Msg("New alerts raised")
		j.Sink.SendAlerts(raised)
	}
	return nil
}

type Purger interface {
	Purge() int
}

// CachePurgeJob drops expired response cache entries.
type CachePurgeJob struct {
	Cache Purger
	Log   zerolog.Logger
}

func (j *CachePurgeJob) Name() string { return "cache_purge" }

func (j *CachePurgeJob) Run() error {
	if n := j.Cache.Purge(); n > 0 {
		j.Log.Debug().Str("job", j.Name()).Int("purged", n).Msg("Expired cache entries removed")
	}
	return nil
}
