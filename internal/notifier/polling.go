package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// CommandHandler is called when a user command is received. A non-empty
// reply is sent back to the chat.
type CommandHandler func(ctx context.Context, command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// PollTimeout is the long-poll window requested from getUpdates.
var PollTimeout = 30 * time.Second

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
// Only messages from the configured chat are handled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: PollTimeout + 5*time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			slog.Info("telegram polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("telegram polling stopped")
				return
			}
			slog.Warn("telegram polling failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if fmt.Sprint(update.Message.Chat.ID) != t.ChatID {
				slog.Warn("ignoring command from unknown chat", "chat_id", update.Message.Chat.ID)
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			slog.Info("received command", "command", text)
			if reply := handler(ctx, text); reply != "" {
				if err := t.SendWithRetry(ctx, reply, 2); err != nil {
					slog.Error("send reply failed", "error", err)
				}
			}
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=%d", t.endpoint("getUpdates"), offset, int(PollTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create polling request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}
	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: status %d: %s", resp.StatusCode, result.Description)
	}
	return result.Result, nil
}
