package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kjannette/binance-dash/internal/dashboard"
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/rs/zerolog"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Dashboard serves every cached view. Each call reports whether the value
// came from the response cache.
type Dashboard interface {
	Account(ctx context.Context) (*models.AccountInfo, bool, error)
	Prices(ctx context.Context) (map[string]float64, bool, error)
	Ticker(ctx context.Context, symbol string) (*models.Ticker24h, bool, error)
	SpotBalance(ctx context.Context) (models.SpotBalance, bool, error)
	SpotPnL(ctx context.Context) (models.SpotPnL, bool, error)
	Futures(ctx context.Context) (models.FuturesSummary, bool, error)
	Bots(ctx context.Context) (models.DcaReport, bool, error)
	PortfolioHistory(ctx context.Context, q dashboard.HistoryQuery) (models.PortfolioHistory, bool, error)
	Alerts(ctx context.Context) ([]models.Alert, bool, error)
}

type SnapshotReader interface {
	GetHistory(ctx context.Context, limit int) ([]models.Snapshot, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port        int
	APIKey      string
	CORSOrigins []string

	// Snapshots and DB are nil when persistence is disabled.
	Snapshots SnapshotReader
	DB        Pinger
}

type Server struct {
	dash       Dashboard
	snapshots  SnapshotReader
	db         Pinger
	router     *chi.Mux
	httpServer *http.Server
	apiKey     string
	log        zerolog.Logger
}

func NewServer(dash Dashboard, opts Options, log zerolog.Logger) *Server {
	s := &Server{
		dash:      dash,
		snapshots: opts.Snapshots,
		db:        opts.DB,
		router:    chi.NewRouter(),
		apiKey:    opts.APIKey,
		log:       log.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware(opts.CORSOrigins)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(corsMiddleware(origins))
	s.router.Use(s.authMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/account", s.handleAccount)
		r.Get("/spot/balance", s.handleSpotBalance)
		r.Get("/spot/pnl", s.handleSpotPnL)
		r.Get("/futures/positions", s.handleFutures)
		r.Get("/bots", s.handleBots)

		r.Get("/prices", s.handlePrices)
		r.Get("/ticker/{symbol}", s.handleTicker)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/history", s.handlePortfolioHistory)
			r.Get("/snapshots", s.handleSnapshots)
		})
		r.Get("/alerts", s.handleAlerts)
	})
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Bool("auth", s.apiKey != "").
		Msg("REST API server started")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/api/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header", "")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse(time.DateOnly, date)
	return err == nil
}

// parseDay reads an optional YYYY-MM-DD query parameter as UTC midnight.
// An absent parameter yields the zero time.
func parseDay(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	if !validateDate(v) {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, v)
	}
	return time.Parse(time.DateOnly, v)
}

// endOfDay moves a UTC midnight to the last millisecond of that day.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Millisecond)
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

type envelope struct {
	Data   any  `json:"data"`
	Cached bool `json:"cached"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any, cached bool) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Cached: cached})
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

// fail logs a handler error and answers 500 with the error text as details.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.Error().
		Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg(msg)
	writeError(w, http.StatusInternalServerError, msg, err.Error())
}
