package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/binance-dash/internal/api"
	"github.com/kjannette/binance-dash/internal/cache"
	"github.com/kjannette/binance-dash/internal/config"
	"github.com/kjannette/binance-dash/internal/dashboard"
	"github.com/kjannette/binance-dash/internal/db"
	"github.com/kjannette/binance-dash/internal/external"
	"github.com/kjannette/binance-dash/internal/httputil"
	"github.com/kjannette/binance-dash/internal/logging"
	"github.com/kjannette/binance-dash/internal/notifications"
	"github.com/kjannette/binance-dash/internal/portfolio"
	"github.com/kjannette/binance-dash/internal/repository"
	"github.com/kjannette/binance-dash/internal/risk"
	"github.com/kjannette/binance-dash/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║      Binance Dashboard Backend       ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if err := cfg.Validate(log); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cfg.Print(log)

	strategy, err := portfolio.ParseStrategy(cfg.HistoryStrategy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid history strategy")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Exchange
	binance := external.NewBinanceClient(external.BinanceOptions{
		APIKey:     cfg.BinanceAPIKey,
		APISecret:  cfg.BinanceAPISecret,
		BaseURL:    cfg.BinanceBaseURL,
		FuturesURL: cfg.BinanceFuturesURL,
		RecvWindow: cfg.BinanceRecvWindow,
		Retry:      httputil.RetryConfig{MaxAttempts: cfg.BinanceMaxAttempts},
	}, log)

	// Response cache
	store := cache.New(cfg.CacheTTL, cacheTTLs(cfg))

	alerts := risk.NewAlertEvaluator(risk.Limits{
		CriticalLossPercent:  cfg.AlertCriticalLossPercent,
		PriceDropPercent:     cfg.AlertPriceDropPercent,
		ConcentrationPercent: cfg.AlertConcentrationPercent,
		MaxFuturesPositions:  cfg.AlertMaxFuturesPositions,
	})

	dash := dashboard.NewService(binance, store, alerts, dashboard.Options{
		Cutoff:       cfg.CutoffDate,
		Strategy:     strategy,
		Concurrency:  cfg.GatewayConcurrency,
		TradeLimit:   cfg.TradeHistoryLimit,
		DCAMaxAssets: cfg.DCAMaxAssets,
	}, log)

	notify := notifications.NewSender(cfg.WebhookURL, cfg.NotifyName, log)

	sched := scheduler.New(log)
	purge := &scheduler.CachePurgeJob{Cache: store, Log: log}
	if err := sched.AddJob(cfg.CachePurgeSchedule, purge); err != nil {
		log.Fatal().Err(err).Msg("Cache purge job")
	}

	apiOpts := api.Options{
		Port:        cfg.Port,
		APIKey:      cfg.APIKey,
		CORSOrigins: cfg.CORSAllowOrigins,
	}

	// Database, only when snapshots are recorded
	if cfg.SnapshotsEnabled {
		log.Info().Str("host", cfg.DBHost).Int("port", cfg.DBPort).Str("db", cfg.DBName).Msg("Connecting to database")
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer func() {
			pool.Close()
			log.Info().Msg("Database pool closed")
		}()

		if err := db.TestConnection(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("Database test query failed")
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Schema migration failed")
		}

		snapRepo := repository.NewSnapshotRepo(pool)
		apiOpts.Snapshots = snapRepo
		apiOpts.DB = pool

		snapJob := &scheduler.SnapshotJob{
			Source:    dash,
			Store:     snapRepo,
			Tracker:   risk.NewTracker(),
			Sink:      notify,
			Retention: cfg.SnapshotRetention,
			Log:       log,
		}
		if err := sched.AddJob(cfg.SnapshotSchedule, snapJob); err != nil {
			log.Fatal().Err(err).Msg("Snapshot job")
		}
	} else {
		log.Info().Msg("Snapshots disabled, running without database")
	}

	// 1. API server
	srv := api.NewServer(dash, apiOpts, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server error")
		}
	}()

	// 2. Background jobs
	sched.Start()

	log.Info().Msg("All services started successfully")

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API shutdown error")
	}
	log.Info().Msg("Shutdown complete")
}

// cacheTTLs lists the endpoints that outlive CACHE_TTL. Every other view,
// bots and alerts included, uses the default.
func cacheTTLs(cfg *config.Config) map[cache.Endpoint]time.Duration {
	return map[cache.Endpoint]time.Duration{
		cache.EndpointSpotPnL:          cfg.PnLCacheTTL,
		cache.EndpointPortfolioHistory: cfg.HistoryCacheTTL,
	}
}
