package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ChatWebhook posts outbound chat messages (WhatsApp-style) to a gateway
// webhook. The gateway owns session handling and delivery receipts; this
// side only hands over recipient and text.
type ChatWebhook struct {
	url   string
	token string
	http  *http.Client
}

func NewChatWebhook(url string, token string) *ChatWebhook {
	return &ChatWebhook{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *ChatWebhook) Send(ctx context.Context, to string, message string) error {
	if c.url == "" {
		return errors.New("chat webhook url not configured")
	}
	return postJSON(ctx, c.http, c.url, c.token, map[string]string{
		"recipient": to,
		"text":      message,
	})
}

// NoopChat accepts every message without sending it. Used in development.
type NoopChat struct{}

func (NoopChat) Send(_ context.Context, _ string, _ string) error {
	return nil
}
