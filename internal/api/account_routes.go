package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	info, cached, err := s.dash.Account(r.Context())
	if err != nil {
		s.fail(w, r, "failed to fetch account info", err)
		return
	}
	writeData(w, info, cached)
}

func (s *Server) handleSpotBalance(w http.ResponseWriter, r *http.Request) {
	bal, cached, err := s.dash.SpotBalance(r.Context())
	if err != nil {
		s.fail(w, r, "failed to fetch spot balance", err)
		return
	}
	writeData(w, bal, cached)
}

func (s *Server) handleFutures(w http.ResponseWriter, r *http.Request) {
	fut, cached, err := s.dash.Futures(r.Context())
	if err != nil {
		s.fail(w, r, "failed to fetch futures positions", err)
		return
	}
	writeData(w, fut, cached)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, cached, err := s.dash.Prices(r.Context())
	if err != nil {
		s.fail(w, r, "failed to fetch prices", err)
		return
	}
	writeData(w, prices, cached)
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required", "")
		return
	}

	t, cached, err := s.dash.Ticker(r.Context(), symbol)
	if err != nil {
		s.fail(w, r, "failed to fetch ticker", err)
		return
	}
	writeData(w, t, cached)
}
