package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/solmirror/solmirror-backend/internal/httputil"
	"github.com/solmirror/solmirror-backend/internal/models"
)

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = "SolMirror"
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("[CHAT ERROR] marshal: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[CHAT ERROR] Failed to send notification after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

// NotifyTradeDetected announces a classified trade from a tracked wallet.
func (s *Sender) NotifyTradeDetected(event models.TradeEvent) {
	s.Send(fmt.Sprintf("Trade detected: %s swapped %.4f -> %.4f via %s (sig %s)",
		shortAddr(event.Wallet), event.AmountInUI(), event.AmountOutUI(), event.Venue, shortAddr(event.Signature)))
}

// NotifyCopyExecuted announces a mirrored (or simulated) copy.
func (s *Sender) NotifyCopyExecuted(trade *models.CopyTrade) {
	s.Send(fmt.Sprintf("Copy %s: %.4f SOL into %s from %s",
		trade.Status, trade.SizeSOL, shortAddr(trade.TokenOut), shortAddr(trade.SourceWallet)))
}

// NotifyRiskRejected announces a risk rejection with its reason.
func (s *Sender) NotifyRiskRejected(wallet string, reason error) {
	s.Send(fmt.Sprintf("Copy rejected for %s: %v", shortAddr(wallet), reason))
}

// NotifyExecutionFailed announces a failed submission after rollback.
func (s *Sender) NotifyExecutionFailed(trade *models.CopyTrade, err error) {
	s.Send(fmt.Sprintf("EXECUTION FAILED for %s (%.4f SOL): %v",
		shortAddr(trade.TokenOut), trade.SizeSOL, err))
}

// NotifyPositionClosed announces a stop/take forced close.
func (s *Sender) NotifyPositionClosed(pos *models.Position) {
	price := 0.0
	if pos.ExitPrice != nil {
		price = *pos.ExitPrice
	}
	s.Send(fmt.Sprintf("Position %s closed as %s at $%.6f (%.2f%%)",
		pos.TokenSymbol, pos.State, price, pos.PnLPercent(price)))
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}

func shortAddr(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:6] + ".." + a[len(a)-4:]
}
