package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultTelegramAPI is the Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// Notifier delivers text messages.
type Notifier interface {
	Send(ctx context.Context, text string) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
	// RetryInterval is the first backoff step of SendWithRetry.
	RetryInterval time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
// An empty apiBase uses DefaultTelegramAPI.
func NewTelegramNotifier(botToken, chatID, apiBase, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  strings.TrimRight(apiBase, "/"),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		RetryInterval: time.Second,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry. Client
// errors such as a bad token or chat id are not retried.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	eb := backoff.NewExponentialBackOff()
	if t.RetryInterval > 0 {
		eb.InitialInterval = t.RetryInterval
	}
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, t.Send(ctx, text)
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("telegram send failed, retrying",
				"attempt", attempt, "max", maxRetries+1, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("telegram send after %d attempts: %w", attempt, err)
	}
	return nil
}
