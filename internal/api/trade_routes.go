package api

import (
	"fmt"
	"net/http"

	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/repository"
)

// parseCopyStatus extracts the ?status= query parameter.
// Returns a *string: nil means all statuses.
func parseCopyStatus(r *http.Request) (*string, error) {
	v := r.URL.Query().Get("status")
	switch v {
	case "", "all":
		return nil, nil
	case models.CopyExecuted, models.CopySimulated, models.CopyRejected, models.CopyFailed:
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid status %q, expected executed|simulated|rejected|failed|all", v)
	}
}

func (s *Server) handleTradesToday(w http.ResponseWriter, r *http.Request) {
	status, err := parseCopyStatus(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := repository.TradingDayNow()
	trades, err := s.tradeRepo.GetByDay(r.Context(), today, status)
	if err != nil {
		fmt.Printf("Error fetching today's trades: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTradesByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	status, err := parseCopyStatus(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.tradeRepo.GetByDay(r.Context(), date, status)
	if err != nil {
		fmt.Printf("Error fetching trades for %s: %v\n", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleAllTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	status, err := parseCopyStatus(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.tradeRepo.GetAll(r.Context(), limit, status)
	if err != nil {
		fmt.Printf("Error fetching all trades: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tradeRepo.GetStats(r.Context())
	if err != nil {
		fmt.Printf("Error fetching trade stats: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch trade stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
