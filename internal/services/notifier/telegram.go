// Package notifier delivers best-effort external alerts.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a Telegram chat. Fire-and-forget: an
// unconfigured channel or a failed call is logged and swallowed, it never
// fails a turn.
type TelegramNotifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

// NewTelegramNotifier creates a notifier. An empty apiBase selects the
// public Telegram API; empty token or chat id disables delivery.
func NewTelegramNotifier(apiBase, botToken, chatID string, logger *zap.Logger) *TelegramNotifier {
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}
	return &TelegramNotifier{
		apiBase:  apiBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Alert sends the message. Errors are absorbed here by contract.
func (n *TelegramNotifier) Alert(ctx context.Context, message string) {
	if n.botToken == "" || n.chatID == "" {
		n.logger.Debug("telegram config missing, skipping alert")
		return
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      message,
		ParseMode: "Markdown",
	})
	if err != nil {
		n.logger.Warn("failed to encode alert", zap.Error(err))
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		n.logger.Warn("failed to build alert request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("failed to deliver alert", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		n.logger.Warn("telegram API rejected alert",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
	}
}
