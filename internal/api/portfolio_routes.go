package api

import (
	"net/http"

	"github.com/kjannette/binance-dash/internal/dashboard"
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/kjannette/binance-dash/internal/portfolio"
)

func (s *Server) handleSpotPnL(w http.ResponseWriter, r *http.Request) {
	pnl, cached, err := s.dash.SpotPnL(r.Context())
	if err != nil {
		s.fail(w, r, "failed to compute spot PnL", err)
		return
	}
	writeData(w, pnl, cached)
}

func (s *Server) handleBots(w http.ResponseWriter, r *http.Request) {
	report, cached, err := s.dash.Bots(r.Context())
	if err != nil {
		s.fail(w, r, "failed to detect DCA patterns", err)
		return
	}
	writeData(w, report, cached)
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	start, err := parseDay(r, "startDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate", err.Error())
		return
	}
	end, err := parseDay(r, "endDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate", err.Error())
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		writeError(w, http.StatusBadRequest, "endDate is before startDate", "")
		return
	}
	// an absent strategy falls back to the configured default
	var strategy portfolio.Strategy
	if raw := r.URL.Query().Get("strategy"); raw != "" {
		if strategy, err = portfolio.ParseStrategy(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid strategy", err.Error())
			return
		}
	}

	h, cached, err := s.dash.PortfolioHistory(r.Context(), dashboard.HistoryQuery{
		Start:    start,
		End:      endOfDay(end),
		Strategy: strategy,
	})
	if err != nil {
		s.fail(w, r, "failed to compute portfolio history", err)
		return
	}
	writeData(w, h, cached)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshots are disabled", "set SNAPSHOTS_ENABLED=true")
		return
	}

	snaps, err := s.snapshots.GetHistory(r.Context(), parseLimit(r, 100))
	if err != nil {
		s.fail(w, r, "failed to fetch snapshots", err)
		return
	}
	if snaps == nil {
		snaps = []models.Snapshot{}
	}
	writeData(w, snaps, false)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, cached, err := s.dash.Alerts(r.Context())
	if err != nil {
		s.fail(w, r, "failed to evaluate alerts", err)
		return
	}
	writeData(w, alerts, cached)
}
