package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/solmirror/solmirror-backend/internal/models"
)

// Service owns the bot's run lifecycle so callers (main, the REST API)
// get a start/stop surface without touching the loop directly.
type Service struct {
	mu     sync.Mutex
	bot    *MirrorBot
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(b *MirrorBot) *Service {
	return &Service{bot: b}
}

// Start restores persisted state and launches the monitor loop in the
// background. Returns an error if the bot is already running or state
// restoration fails.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return errors.New("bot already running")
	}
	if err := s.bot.Init(ctx); err != nil {
		return fmt.Errorf("bot init: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.bot.Run(runCtx)
	}()
	return nil
}

// Stop halts the loop and blocks until the current cycle finishes.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	s.bot.Stop()
	cancel()
	<-done
	fmt.Println("[BOT] Service stopped")
}

func (s *Service) Running() bool {
	return s.bot.IsRunning()
}

func (s *Service) Report() models.MonitoringReport {
	return s.bot.Report()
}
