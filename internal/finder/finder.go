package finder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/dex"
	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/rpc"
	"github.com/solmirror/solmirror-backend/internal/scoring"
)

// PairSource lists the trending pairs to mine for active traders.
type PairSource interface {
	TrendingPairs(ctx context.Context, limit int) ([]models.TrendingPair, error)
}

// ChainClient is the RPC surface the finder needs.
type ChainClient interface {
	GetSignaturesForAddress(ctx context.Context, address string, limit int, until string) ([]rpc.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*rpc.Transaction, error)
	GetBalance(ctx context.Context, address string) (float64, error)
}

// WalletSink persists discovered candidates. Optional.
type WalletSink interface {
	Upsert(ctx context.Context, w *models.TrackedWallet) error
}

// Finder implements research mode: mine trending pairs for the wallets
// trading them, replay each wallet's recent history through the scorer, and
// report the ones whose stats clear the copy thresholds. Nothing is traded;
// the output is a candidate list for the operator to review and promote
// into tracked-wallets.json.
type Finder struct {
	cfg     *config.Config
	pairs   PairSource
	chain   ChainClient
	scorer  *scoring.Scorer
	wallets WalletSink

	batchSize int
	now       func() time.Time
}

func New(cfg *config.Config, pairs PairSource, chain ChainClient, scorer *scoring.Scorer, wallets WalletSink) *Finder {
	return &Finder{
		cfg:       cfg,
		pairs:     pairs,
		chain:     chain,
		scorer:    scorer,
		wallets:   wallets,
		batchSize: cfg.TransactionBatchSize,
		now:       time.Now,
	}
}

// Research runs one full discovery pass.
func (f *Finder) Research(ctx context.Context) (*models.ResearchReport, error) {
	trending, err := f.pairs.TrendingPairs(ctx, f.cfg.MaxPairsToAnalyze)
	if err != nil {
		return nil, fmt.Errorf("trending pairs: %w", err)
	}
	fmt.Printf("[FINDER] Analyzing %d trending pairs\n", len(trending))

	candidates := f.collectCandidates(ctx, trending)
	fmt.Printf("[FINDER] Found %d candidate wallets\n", len(candidates))

	report := &models.ResearchReport{
		Timestamp:     f.now(),
		TrendingPairs: trending,
		AnalysisParameters: models.AnalysisParameters{
			MinSOLBalance:      f.cfg.MinSOLBalance,
			MinTradesPerDay:    f.cfg.MinTradesDay,
			MinSuccessRate:     f.cfg.MinSuccessRate,
			MinProfitPerTrade:  f.cfg.MinProfitTrade,
			AnalysisPeriodDays: f.cfg.AnalysisPeriodDays,
		},
	}

	for _, address := range candidates {
		w, err := f.analyzeWallet(ctx, address)
		if err != nil {
			fmt.Printf("[FINDER] Analysis of %s failed: %v\n", short(address), err)
			continue
		}

		if f.wallets != nil {
			if err := f.wallets.Upsert(ctx, w); err != nil {
				fmt.Printf("[FINDER] Failed to persist candidate %s: %v\n", short(address), err)
			}
		}

		if w.State == models.WalletTracked {
			report.ProfitableWallets = append(report.ProfitableWallets, models.WalletReport{
				Address:            w.Address,
				State:              w.State,
				Stats:              w.Stats,
				InvolvedInTrending: true,
			})
		}
	}

	sort.Slice(report.ProfitableWallets, func(i, j int) bool {
		return report.ProfitableWallets[i].Stats.ProfitRate > report.ProfitableWallets[j].Stats.ProfitRate
	})
	fmt.Printf("[FINDER] %d wallets clear the copy thresholds\n", len(report.ProfitableWallets))
	return report, nil
}

// collectCandidates pulls recent activity on each trending pair and takes
// the fee payers as candidate traders, deduplicated, capped at the analysis
// budget.
func (f *Finder) collectCandidates(ctx context.Context, trending []models.TrendingPair) []string {
	seen := map[string]bool{}
	var out []string

	for _, pair := range trending {
		if len(out) >= f.cfg.MaxWalletsToAnalyze {
			break
		}

		sigs, err := f.chain.GetSignaturesForAddress(ctx, pair.TokenAddress, f.batchSize, "")
		if err != nil {
			fmt.Printf("[FINDER] Activity scan for %s failed: %v\n", pair.Symbol, err)
			continue
		}

		for _, si := range sigs {
			if len(out) >= f.cfg.MaxWalletsToAnalyze {
				break
			}
			if si.Failed() {
				continue
			}

			tx, err := f.chain.GetTransaction(ctx, si.Signature)
			if err != nil {
				fmt.Printf("[FINDER] Fetch %s failed: %v\n", short(si.Signature), err)
				continue
			}
			if tx == nil || len(tx.Transaction.Message.AccountKeys) == 0 {
				continue
			}

			// the fee payer signed the transaction: that is the trader
			payer := tx.Transaction.Message.AccountKeys[0]
			if !seen[payer] {
				seen[payer] = true
				out = append(out, payer)
			}
		}
	}
	return out
}

// analyzeWallet replays the wallet's recent swaps through the scorer and
// returns it scored. A candidate whose stats clear every threshold comes
// back in the tracked state.
func (f *Finder) analyzeWallet(ctx context.Context, address string) (*models.TrackedWallet, error) {
	sigs, err := f.chain.GetSignaturesForAddress(ctx, address, f.batchSize, "")
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	// oldest first so entries pair with their exits
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Failed() {
			continue
		}
		tx, err := f.chain.GetTransaction(ctx, sigs[i].Signature)
		if err != nil || tx == nil {
			continue
		}
		if event, ok := dex.Classify(address, tx); ok {
			f.scorer.Observe(event)
		}
	}

	balance, err := f.chain.GetBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	w := &models.TrackedWallet{
		Address:            address,
		State:              models.WalletCandidate,
		InvolvedInTrending: true,
	}
	decision := f.scorer.Rescore(w, balance)
	scoring.Apply(w, decision, f.now())
	return w, nil
}

func short(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:6] + ".." + a[len(a)-4:]
}
