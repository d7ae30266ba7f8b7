package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/solmirror/solmirror-backend/internal/models"
)

// ReportSource produces the current monitoring snapshot.
type ReportSource interface {
	Report() models.MonitoringReport
}

// MessageSink receives the formatted digest, typically the webhook sender.
type MessageSink interface {
	Send(msg string)
}

type ReportSchedulerConfig struct {
	CronInterval time.Duration // e.g. 1*time.Hour
	OnReport     func(report models.MonitoringReport)
}

// ReportScheduler publishes a periodic digest of the bot's state: wallet
// counts per state, transactions processed, and any wallet transitions
// since the previous snapshot.
type ReportScheduler struct {
	source ReportSource
	sink   MessageSink
	cfg    ReportSchedulerConfig

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	lastStates map[string]models.WalletState
}

func NewReportScheduler(source ReportSource, sink MessageSink, cfg ReportSchedulerConfig) *ReportScheduler {
	if cfg.CronInterval <= 0 {
		cfg.CronInterval = 1 * time.Hour
	}
	return &ReportScheduler{
		source:     source,
		sink:       sink,
		cfg:        cfg,
		lastStates: map[string]models.WalletState{},
	}
}

func (s *ReportScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[REPORTER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	// Initial snapshot on startup (fire-and-forget)
	go s.publish()

	// Recurring ticker
	go func() {
		ticker := time.NewTicker(s.cfg.CronInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.publish()
			}
		}
	}()

	fmt.Printf("[REPORTER] Started (every %s)\n", s.cfg.CronInterval)
}

func (s *ReportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	fmt.Println("[REPORTER] Stopped")
}

func (s *ReportScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ReportNow publishes a snapshot outside the normal schedule and returns it.
func (s *ReportScheduler) ReportNow() models.MonitoringReport {
	fmt.Println("[REPORTER] Manual report triggered")
	return s.publish()
}

func (s *ReportScheduler) publish() models.MonitoringReport {
	report := s.source.Report()

	tracked, candidates, suspended := 0, 0, 0
	for _, w := range report.MonitoredWallets {
		switch w.State {
		case models.WalletTracked:
			tracked++
		case models.WalletCandidate:
			candidates++
		case models.WalletSuspended:
			suspended++
		}
	}

	transitions := s.diffStates(report.MonitoredWallets)

	mode := "monitor"
	if report.TradingEnabled {
		mode = "LIVE"
	}
	msg := fmt.Sprintf("Status (%s): %d tracked / %d candidate / %d suspended wallets, %d transactions processed",
		mode, tracked, candidates, suspended, report.ProcessedTransactions)
	if len(transitions) > 0 {
		msg += " | transitions: " + joinTransitions(transitions)
	}

	if s.sink != nil {
		s.sink.Send(msg)
	} else {
		fmt.Printf("[REPORTER] %s\n", msg)
	}

	if s.cfg.OnReport != nil {
		s.cfg.OnReport(report)
	}
	return report
}

// diffStates compares the snapshot against the previous one and records
// wallet state transitions.
func (s *ReportScheduler) diffStates(wallets []models.WalletReport) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var transitions []string
	for _, w := range wallets {
		prev, seen := s.lastStates[w.Address]
		if seen && prev != w.State {
			transitions = append(transitions, fmt.Sprintf("%s %s -> %s", shortAddr(w.Address), prev, w.State))
		}
		s.lastStates[w.Address] = w.State
	}
	return transitions
}

func joinTransitions(transitions []string) string {
	out := transitions[0]
	for _, t := range transitions[1:] {
		out += ", " + t
	}
	return out
}

func shortAddr(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:6] + ".." + a[len(a)-4:]
}
