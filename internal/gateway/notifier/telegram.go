package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"
	telegramAttempts   = 3
)

// Telegram posts Markdown messages to one chat through the Bot API.
type Telegram struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client

	retryDelay time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken:   botToken,
		ChatID:     chatID,
		APIBase:    defaultTelegramAPI,
		Client:     &http.Client{Timeout: 15 * time.Second},
		retryDelay: time.Second,
	}
}

// SendText delivers text with up to three attempts and linear backoff.
// It gives up as soon as ctx is done.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	base := strings.TrimRight(strings.TrimSpace(t.APIBase), "/")
	if base == "" {
		base = defaultTelegramAPI
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)
	body, err := json.Marshal(map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= telegramAttempts; attempt++ {
		if lastErr = t.post(ctx, url, body); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == telegramAttempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * t.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("telegram send aborted: %w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return lastErr
}

func (t *Telegram) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return nil
}
