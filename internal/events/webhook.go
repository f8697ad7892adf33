package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

type WebhookConfig struct {
	URL          string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Webhook POSTs events as JSON. With a TokenURL configured, requests carry an
// OAuth2 client-credentials bearer token.
type Webhook struct {
	url  string
	http *http.Client
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	h := http.DefaultClient
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	h = &http.Client{Transport: h.Transport, Timeout: cfg.Timeout}
	return &Webhook{url: cfg.URL, http: h}
}

func (w *Webhook) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", e.Type)
	res, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", e.Type, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("webhook %s: %s", e.Type, res.Status)
	}
	return nil
}
