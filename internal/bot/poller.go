package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/solmirror/solmirror-backend/internal/dex"
	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/rpc"
	"github.com/solmirror/solmirror-backend/internal/sigstore"
)

// ChainClient is the slice of the Solana RPC surface the bot needs.
type ChainClient interface {
	GetSignaturesForAddress(ctx context.Context, address string, limit int, until string) ([]rpc.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*rpc.Transaction, error)
	GetBalance(ctx context.Context, address string) (float64, error)
}

// Poller walks one wallet's recent signatures and turns the new ones into
// classified trade events. The last fully processed signature per wallet
// bounds the next scan, so each cycle fetches only what is new; the shared
// signature store guards against reprocessing across restarts.
type Poller struct {
	chain     ChainClient
	sigs      sigstore.Store
	batchSize int

	mu       sync.Mutex
	lastSeen map[string]string // wallet -> newest fully processed signature
}

func NewPoller(chain ChainClient, sigs sigstore.Store, batchSize int) *Poller {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Poller{
		chain:     chain,
		sigs:      sigs,
		batchSize: batchSize,
		lastSeen:  map[string]string{},
	}
}

// Poll fetches the wallet's new signatures and emits classified swaps in
// chain order, oldest first. Every signature is recorded in the store
// before its event is emitted, so a crash between the two can only drop an
// event, never double-process it. Returns the number of transactions
// handled this pass.
//
// On a transport error the walk stops where it is: the cursor still points
// at the last processed signature, so the remainder is refetched next cycle.
func (p *Poller) Poll(ctx context.Context, wallet string, emit func(models.TradeEvent)) (int, error) {
	sigs, err := p.chain.GetSignaturesForAddress(ctx, wallet, p.batchSize, p.cursor(wallet))
	if err != nil {
		return 0, fmt.Errorf("signatures for %s: %w", short(wallet), err)
	}
	if len(sigs) == 0 {
		return 0, nil
	}

	processed := 0
	// the node returns newest first; walk backwards for chain order
	for i := len(sigs) - 1; i >= 0; i-- {
		si := sigs[i]

		seen, err := p.sigs.Seen(ctx, si.Signature)
		if err != nil {
			return processed, fmt.Errorf("seen check: %w", err)
		}
		if seen {
			p.advance(wallet, si.Signature)
			continue
		}

		if si.Failed() {
			// errored on-chain, nothing to classify
			if err := p.record(ctx, wallet, si.Signature); err != nil {
				return processed, err
			}
			processed++
			continue
		}

		tx, err := p.chain.GetTransaction(ctx, si.Signature)
		if err != nil {
			return processed, fmt.Errorf("transaction %s: %w", short(si.Signature), err)
		}
		if tx == nil {
			// the node has no record of a finalized signature it just
			// returned; treat as pruned history and move on
			if err := p.record(ctx, wallet, si.Signature); err != nil {
				return processed, err
			}
			processed++
			continue
		}

		if err := p.record(ctx, wallet, si.Signature); err != nil {
			return processed, err
		}
		processed++

		if event, ok := dex.Classify(wallet, tx); ok {
			emit(event)
		}
	}
	return processed, nil
}

func (p *Poller) record(ctx context.Context, wallet, signature string) error {
	if err := p.sigs.Record(ctx, signature, time.Now()); err != nil {
		return fmt.Errorf("record signature: %w", err)
	}
	p.advance(wallet, signature)
	return nil
}

func (p *Poller) cursor(wallet string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen[wallet]
}

func (p *Poller) advance(wallet, signature string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen[wallet] = signature
}

func short(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:6] + ".." + a[len(a)-4:]
}
