package scheduler

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solmirror/solmirror-backend/internal/models"
)

type stubSource struct {
	mu     sync.Mutex
	report models.MonitoringReport
}

func (s *stubSource) Report() models.MonitoringReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *stubSource) set(r models.MonitoringReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
}

type captureSink struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureSink) Send(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureSink) last(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		t.Fatal("no message captured")
	}
	return c.msgs[len(c.msgs)-1]
}

func walletReport(address string, state models.WalletState) models.WalletReport {
	return models.WalletReport{Address: address, State: state}
}

func TestReportNow_PublishesDigest(t *testing.T) {
	source := &stubSource{report: models.MonitoringReport{
		MonitoredWallets: []models.WalletReport{
			walletReport("AAA1111111111111111111111111111111111111111", models.WalletTracked),
			walletReport("BBB1111111111111111111111111111111111111111", models.WalletCandidate),
			walletReport("CCC1111111111111111111111111111111111111111", models.WalletSuspended),
		},
		ProcessedTransactions: 42,
	}}
	sink := &captureSink{}

	var callbackReport *models.MonitoringReport
	s := NewReportScheduler(source, sink, ReportSchedulerConfig{
		OnReport: func(r models.MonitoringReport) { callbackReport = &r },
	})

	got := s.ReportNow()
	if got.ProcessedTransactions != 42 {
		t.Fatalf("snapshot not returned: %+v", got)
	}
	if callbackReport == nil || callbackReport.ProcessedTransactions != 42 {
		t.Fatal("OnReport callback not invoked with the snapshot")
	}

	msg := sink.last(t)
	for _, want := range []string{"1 tracked", "1 candidate", "1 suspended", "42 transactions"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("digest %q missing %q", msg, want)
		}
	}
	if strings.Contains(msg, "transitions") {
		t.Fatalf("first snapshot must not report transitions: %q", msg)
	}
}

func TestReportNow_DetectsStateTransitions(t *testing.T) {
	addr := "AAA1111111111111111111111111111111111111111"
	source := &stubSource{report: models.MonitoringReport{
		MonitoredWallets: []models.WalletReport{walletReport(addr, models.WalletCandidate)},
	}}
	sink := &captureSink{}
	s := NewReportScheduler(source, sink, ReportSchedulerConfig{})

	s.ReportNow()

	source.set(models.MonitoringReport{
		MonitoredWallets: []models.WalletReport{walletReport(addr, models.WalletTracked)},
	})
	s.ReportNow()

	msg := sink.last(t)
	if !strings.Contains(msg, "candidate -> tracked") {
		t.Fatalf("transition not reported: %q", msg)
	}

	// no change means no transition on the next pass
	s.ReportNow()
	if strings.Contains(sink.last(t), "transitions") {
		t.Fatalf("unchanged state reported as transition: %q", sink.last(t))
	}
}

func TestScheduler_StartStop(t *testing.T) {
	source := &stubSource{}
	sink := &captureSink{}
	s := NewReportScheduler(source, sink, ReportSchedulerConfig{CronInterval: time.Hour})

	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should report running after Start")
	}

	// the startup snapshot fires asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.msgs)
		sink.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	sink.mu.Lock()
	n := len(sink.msgs)
	sink.mu.Unlock()
	if n == 0 {
		t.Fatal("startup snapshot never published")
	}

	s.Stop()
	if s.Running() {
		t.Fatal("scheduler still running after Stop")
	}

	// double Stop is a no-op
	s.Stop()
}
