package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kjannette/binance-dash/internal/portfolio"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

type Config struct {
	Port int

	// Secrets (from .env)
	BinanceAPIKey    string
	BinanceAPISecret string
	APIKey           string
	WebhookURL       string
	NotifyName       string

	// Exchange
	BinanceBaseURL     string
	BinanceFuturesURL  string
	BinanceRecvWindow  int
	BinanceMaxAttempts int
	TradeHistoryLimit  int
	GatewayConcurrency int

	// Cache
	CacheTTL        time.Duration
	PnLCacheTTL     time.Duration
	HistoryCacheTTL time.Duration

	// Calculations
	CutoffDate      time.Time
	HistoryStrategy string
	DCAMaxAssets    int

	// HTTP
	CORSAllowOrigins []string

	// Logging
	LogLevel  string
	LogPretty bool

	// Snapshots
	SnapshotsEnabled   bool
	SnapshotSchedule   string
	SnapshotRetention  time.Duration
	CachePurgeSchedule string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Alerts
	AlertCriticalLossPercent  float64
	AlertPriceDropPercent     float64
	AlertConcentrationPercent float64
	AlertMaxFuturesPositions  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cutoff, err := time.Parse(dateLayout, envStr("CUTOFF_DATE", "2025-08-01"))
	if err != nil {
		return nil, fmt.Errorf("CUTOFF_DATE: %w", err)
	}

	cfg := &Config{
		Port: envInt("PORT", 3001),

		BinanceAPIKey:    envStr("BINANCE_API_KEY", ""),
		BinanceAPISecret: envStr("BINANCE_API_SECRET", ""),
		APIKey:           envStr("API_KEY", ""),
		WebhookURL:       envStr("WEBHOOK_URL", ""),
		NotifyName:       envStr("NOTIFY_NAME", "BinanceDashboard"),

		BinanceBaseURL:     envStr("BINANCE_BASE_URL", "https://api.binance.com"),
		BinanceFuturesURL:  envStr("BINANCE_FUTURES_URL", "https://fapi.binance.com"),
		BinanceRecvWindow:  envInt("BINANCE_RECV_WINDOW", 5000),
		BinanceMaxAttempts: envInt("BINANCE_MAX_ATTEMPTS", 1),
		TradeHistoryLimit:  envInt("TRADE_HISTORY_LIMIT", 1000),
		GatewayConcurrency: envInt("GATEWAY_CONCURRENCY", 4),

		CacheTTL:        envSeconds("CACHE_TTL", 10),
		PnLCacheTTL:     envSeconds("PNL_CACHE_TTL", 60),
		HistoryCacheTTL: envSeconds("HISTORY_CACHE_TTL", 300),

		CutoffDate:      cutoff,
		HistoryStrategy: strings.ToLower(envStr("HISTORY_STRATEGY", "additive")),
		DCAMaxAssets:    envInt("DCA_MAX_ASSETS", 10),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"}),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogPretty: envBool("LOG_PRETTY", true),

		SnapshotsEnabled:   envBool("SNAPSHOTS_ENABLED", false),
		SnapshotSchedule:   envStr("SNAPSHOT_SCHEDULE", "@every 1h"),
		SnapshotRetention:  time.Duration(envInt("SNAPSHOT_RETENTION_DAYS", 90)) * 24 * time.Hour,
		CachePurgeSchedule: envStr("CACHE_PURGE_SCHEDULE", "@every 5m"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "binance_dashboard"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		AlertCriticalLossPercent:  envFloat("ALERT_CRITICAL_LOSS_PERCENT", 50),
		AlertPriceDropPercent:     envFloat("ALERT_PRICE_DROP_PERCENT", 5),
		AlertConcentrationPercent: envFloat("ALERT_CONCENTRATION_PERCENT", 60),
		AlertMaxFuturesPositions:  envInt("ALERT_MAX_FUTURES_POSITIONS", 3),
	}

	return cfg, nil
}

// Validate returns every hard error at once and logs the soft ones.
func (c *Config) Validate(log zerolog.Logger) error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d is out of range", c.Port))
	}
	if c.BinanceAPIKey == "" || c.BinanceAPISecret == "" {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}
	if c.GatewayConcurrency <= 0 {
		errs = append(errs, "GATEWAY_CONCURRENCY must be positive")
	}
	if c.TradeHistoryLimit <= 0 || c.TradeHistoryLimit > 1000 {
		errs = append(errs, "TRADE_HISTORY_LIMIT must be between 1 and 1000")
	}
	if _, err := portfolio.ParseStrategy(c.HistoryStrategy); err != nil {
		errs = append(errs, fmt.Sprintf("HISTORY_STRATEGY: %v", err))
	}
	if c.SnapshotsEnabled && c.DBUser == "" {
		errs = append(errs, "DB_USER is required when SNAPSHOTS_ENABLED=true")
	}

	if c.APIKey == "" {
		log.Warn().Msg("API_KEY not set, REST API has no authentication")
	}
	if c.BinanceMaxAttempts > 1 {
		log.Warn().Int("attempts", c.BinanceMaxAttempts).Msg("Exchange calls will be retried automatically")
	}
	if c.AlertCriticalLossPercent == 0 && c.AlertPriceDropPercent == 0 &&
		c.AlertConcentrationPercent == 0 && c.AlertMaxFuturesPositions == 0 {
		log.Warn().Msg("All ALERT_* thresholds are 0, no alerts active")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print(log zerolog.Logger) {
	log.Info().
		Int("port", c.Port).
		Str("spot_url", c.BinanceBaseURL).
		Str("futures_url", c.BinanceFuturesURL).
		Str("api_key", boolLabel(c.BinanceAPIKey != "", "configured", "missing")).
		Msg("Exchange configuration")

	log.Info().
		Str("cutoff", c.CutoffDate.Format(dateLayout)).
		Str("history_strategy", c.HistoryStrategy).
		Int("concurrency", c.GatewayConcurrency).
		Int("dca_max_assets", c.DCAMaxAssets).
		Dur("cache_ttl", c.CacheTTL).
		Dur("pnl_cache_ttl", c.PnLCacheTTL).
		Dur("history_cache_ttl", c.HistoryCacheTTL).
		Msg("Calculation configuration")

	log.Info().
		Bool("snapshots", c.SnapshotsEnabled).
		Str("snapshot_schedule", c.SnapshotSchedule).
		Dur("snapshot_retention", c.SnapshotRetention).
		Str("webhook", boolLabel(c.WebhookURL != "", "configured", "not set")).
		Float64("critical_loss_pct", c.AlertCriticalLossPercent).
		Float64("price_drop_pct", c.AlertPriceDropPercent).
		Float64("concentration_pct", c.AlertConcentrationPercent).
		Int("max_futures_positions", c.AlertMaxFuturesPositions).
		Msg("Background configuration")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

// envSeconds reads a plain number of seconds ("60") or a Go duration ("1m").
func envSeconds(key string, fallback int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback) * time.Second
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return time.Duration(fallback) * time.Second
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
