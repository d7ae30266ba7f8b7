package api

import (
	"fmt"
	"net/http"
)

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	positions, err := s.positionRepo.GetAll(r.Context(), limit)
	if err != nil {
		fmt.Printf("Error fetching positions: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch positions")
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.positionRepo.GetOpen(r.Context())
	if err != nil {
		fmt.Printf("Error fetching open positions: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch open positions")
		return
	}
	writeJSON(w, http.StatusOK, positions)
}
