package scoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/dex"
	"github.com/solmirror/solmirror-backend/internal/models"
)

// Decision is the outcome of one rescoring pass for a wallet.
type Decision string

const (
	Promote Decision = "promote"
	Demote  Decision = "demote"
	Keep    Decision = "keep"
)

// Outcome is one trade in a wallet's stats window. Entries without a paired
// exit stay unresolved; only resolved outcomes count toward success_rate and
// profit_rate.
type Outcome struct {
	At       time.Time
	Resolved bool
	Return   float64 // realized per-trade return, valid when Resolved
}

// openEntry is a SOL-funded buy awaiting its exit.
type openEntry struct {
	solSpent float64
}

// Scorer owns per-wallet stats windows and the candidate/tracked/suspended
// state machine. Windows slide over the analysis period: outcomes older than
// the period are evicted before every pass.
type Scorer struct {
	mu      sync.Mutex
	windows map[string][]Outcome
	open    map[string]map[string][]openEntry // wallet -> token mint -> FIFO entries

	periodDays     int
	minSOLBalance  float64
	minTradesDay   float64
	minSuccessRate float64
	minProfitTrade float64
	minTrades      int

	now func() time.Time
}

func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{
		windows:        map[string][]Outcome{},
		open:           map[string]map[string][]openEntry{},
		periodDays:     cfg.AnalysisPeriodDays,
		minSOLBalance:  cfg.MinSOLBalance,
		minTradesDay:   cfg.MinTradesDay,
		minSuccessRate: cfg.MinSuccessRate,
		minProfitTrade: cfg.MinProfitTrade,
		minTrades:      cfg.MinTrades,
		now:            time.Now,
	}
}

// Observe feeds a classified trade into the wallet's window. A SOL-funded
// buy opens an entry; a sale back to SOL resolves the oldest open entry for
// that token into a realized return. Trades not touching SOL on either side
// are counted but never resolve.
func (s *Scorer) Observe(event models.TradeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := event.BlockTime
	if at.IsZero() {
		at = s.now()
	}

	switch {
	case event.TokenIn == dex.WrappedSOLMint:
		// buy: SOL in, token out. Opens an entry that resolves at the exit.
		s.windows[event.Wallet] = append(s.windows[event.Wallet], Outcome{At: at})
		if s.open[event.Wallet] == nil {
			s.open[event.Wallet] = map[string][]openEntry{}
		}
		s.open[event.Wallet][event.TokenOut] = append(s.open[event.Wallet][event.TokenOut], openEntry{
			solSpent: event.AmountInUI(),
		})

	case event.TokenOut == dex.WrappedSOLMint:
		// sell: token in, SOL out. Resolves the oldest open entry.
		entries := s.open[event.Wallet][event.TokenIn]
		if len(entries) == 0 {
			// exit with no recorded entry: count the trade, unresolvable
			s.windows[event.Wallet] = append(s.windows[event.Wallet], Outcome{At: at})
			return
		}
		entry := entries[0]
		s.open[event.Wallet][event.TokenIn] = entries[1:]

		ret := 0.0
		if entry.solSpent > 0 {
			ret = event.AmountOutUI()/entry.solSpent - 1
		}
		s.windows[event.Wallet] = append(s.windows[event.Wallet], Outcome{At: at, Resolved: true, Return: ret})

	default:
		s.windows[event.Wallet] = append(s.windows[event.Wallet], Outcome{At: at})
	}
}

// Seed injects precomputed outcomes for a wallet, used when bootstrapping
// from persisted history.
func (s *Scorer) Seed(wallet string, outcomes []Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[wallet] = append(s.windows[wallet], outcomes...)
}

// Rescore evicts stale outcomes, recomputes the wallet's stats from the
// surviving window plus the balance snapshot, and returns the state
// transition the stats call for. Stats are written back onto the wallet.
func (s *Scorer) Rescore(w *models.TrackedWallet, solBalance float64) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	window := s.evict(w.Address, now)

	stats := models.WalletStats{
		ObservedTrades: len(window),
		SOLBalance:     solBalance,
		LastScoredAt:   now,
	}
	if s.periodDays > 0 {
		stats.TradesPerDay = float64(len(window)) / float64(s.periodDays)
	}

	wins, resolved := 0, 0
	var totalReturn float64
	for _, o := range window {
		if !o.Resolved {
			continue
		}
		resolved++
		totalReturn += o.Return
		if o.Return > 0 {
			wins++
		}
	}
	stats.ResolvedTrades = resolved
	if resolved > 0 {
		stats.SuccessRate = float64(wins) / float64(resolved)
		stats.ProfitRate = totalReturn / float64(resolved)
	}
	w.Stats = stats

	if len(window) < s.minTrades {
		// sample too small to act on, in either direction
		return Keep
	}

	passes := solBalance >= s.minSOLBalance &&
		stats.TradesPerDay >= s.minTradesDay &&
		stats.SuccessRate >= s.minSuccessRate &&
		stats.ProfitRate >= s.minProfitTrade

	switch {
	case passes && w.State != models.WalletTracked:
		fmt.Printf("[SCORER] %s promoted to tracked (%.0f trades, success %.2f, profit %.3f, %.1f SOL)\n",
			w.Address, float64(stats.ObservedTrades), stats.SuccessRate, stats.ProfitRate, solBalance)
		return Promote
	case !passes && w.State == models.WalletTracked:
		fmt.Printf("[SCORER] %s demoted to suspended (success %.2f, profit %.3f, %.1f trades/day, %.1f SOL)\n",
			w.Address, stats.SuccessRate, stats.ProfitRate, stats.TradesPerDay, solBalance)
		return Demote
	default:
		return Keep
	}
}

// evict drops outcomes outside the analysis period. Caller holds the lock.
func (s *Scorer) evict(wallet string, now time.Time) []Outcome {
	cutoff := now.Add(-time.Duration(s.periodDays) * 24 * time.Hour)
	window := s.windows[wallet]
	kept := window[:0]
	for _, o := range window {
		if !o.At.Before(cutoff) {
			kept = append(kept, o)
		}
	}
	s.windows[wallet] = kept
	return kept
}

// Apply transitions the wallet per the decision. Suspended wallets are
// reinstated through the same promote path; nothing is ever deleted.
func Apply(w *models.TrackedWallet, d Decision, now time.Time) {
	switch d {
	case Promote:
		w.State = models.WalletTracked
	case Demote:
		w.State = models.WalletSuspended
	}
	w.UpdatedAt = now
}
