package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers a message to a user.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	// BaseURL is overridable for tests; defaults to the public API.
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewTelegram(token string) *Telegram {
	return &Telegram{
		BaseURL: "https://api.telegram.org",
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendMessage: http %d", resp.StatusCode)
	}
	return nil
}

// Async wraps a Notifier so sends run in the background. Failures are
// logged and never reach the caller: a committed financial transition
// must not unwind because a chat message did not go out.
type Async struct {
	next Notifier
	log  *slog.Logger

	// timeout bounds each background send independently of the
	// caller's context.
	timeout time.Duration
}

func NewAsync(next Notifier, log *slog.Logger) *Async {
	return &Async{next: next, log: log, timeout: 15 * time.Second}
}

func (a *Async) Send(_ context.Context, chatID int64, text string) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.Send(ctx, chatID, text); err != nil {
			a.log.Warn("notification failed", "chat_id", chatID, "err", err)
		}
	}()
	return nil
}

// Noop discards all messages. Used when no bot token is configured.
type Noop struct{}

func (Noop) Send(context.Context, int64, string) error { return nil }
