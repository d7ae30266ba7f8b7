package api

import (
	"fmt"
	"net/http"

	"github.com/solmirror/solmirror-backend/internal/models"
)

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")

	switch state {
	case "", "all":
		wallets, err := s.walletRepo.GetAll(r.Context())
		if err != nil {
			fmt.Printf("Error fetching wallets: %v\n", err)
			writeError(w, http.StatusInternalServerError, "failed to fetch wallets")
			return
		}
		writeJSON(w, http.StatusOK, wallets)

	case string(models.WalletCandidate), string(models.WalletTracked), string(models.WalletSuspended):
		wallets, err := s.walletRepo.GetByState(r.Context(), models.WalletState(state))
		if err != nil {
			fmt.Printf("Error fetching %s wallets: %v\n", state, err)
			writeError(w, http.StatusInternalServerError, "failed to fetch wallets")
			return
		}
		writeJSON(w, http.StatusOK, wallets)

	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid state %q, expected candidate|tracked|suspended|all", state))
	}
}
