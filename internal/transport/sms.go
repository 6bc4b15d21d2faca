package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// SMSWebhook posts outbound SMS to a provider-agnostic gateway webhook.
type SMSWebhook struct {
	url   string
	token string
	http  *http.Client
}

func NewSMSWebhook(url string, token string) *SMSWebhook {
	return &SMSWebhook{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *SMSWebhook) Send(ctx context.Context, to string, message string) error {
	if s.url == "" {
		return errors.New("sms webhook url not configured")
	}
	return postJSON(ctx, s.http, s.url, s.token, map[string]string{
		"to":   to,
		"body": message,
	})
}

// NoopSMS accepts every message without sending it. Used in development.
type NoopSMS struct{}

func (NoopSMS) Send(_ context.Context, _ string, _ string) error {
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url, token string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("webhook returned non-2xx")
	}
	return nil
}
