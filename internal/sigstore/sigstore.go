package sigstore

import (
	"context"
	"sync"
	"time"
)

// Store tracks transaction signatures that have already been processed so a
// signature is acted on at most once across polling cycles. Entries only
// leave the store through age-based pruning, never because of processing
// outcomes.
type Store interface {
	// Seen reports whether the signature was recorded before.
	Seen(ctx context.Context, signature string) (bool, error)
	// Record marks a signature processed as of observedAt.
	Record(ctx context.Context, signature string, observedAt time.Time) error
	// Prune drops signatures observed before cutoff and returns the count
	// removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	// Len returns the number of recorded signatures.
	Len(ctx context.Context) (int, error)
}

// Memory is the in-process Store used in research mode and tests.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{seen: map[string]time.Time{}}
}

func (m *Memory) Seen(_ context.Context, signature string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[signature]
	return ok, nil
}

func (m *Memory) Record(_ context.Context, signature string, observedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[signature]; ok {
		return nil // keep the original observation time
	}
	m.seen[signature] = observedAt
	return nil
}

func (m *Memory) Prune(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for sig, at := range m.seen {
		if at.Before(cutoff) {
			delete(m.seen, sig)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen), nil
}
