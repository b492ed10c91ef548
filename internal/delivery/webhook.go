package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/librenews/skywire/internal/model"
)

const (
	defaultWebhookTimeout       = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// WebhookPayload is the JSON body POSTed to webhook channels.
type WebhookPayload struct {
	Event string          `json:"event"`
	Track WebhookTrack    `json:"track"`
	Match json.RawMessage `json:"match"`
}

type WebhookTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewWebhookPayload embeds the match payload verbatim.
func NewWebhookPayload(sub *model.Subscription, match *model.Match) WebhookPayload {
	raw := match.Data
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return WebhookPayload{
		Event: "match_found",
		Track: WebhookTrack{
			ID:   sub.ExternalID,
			Name: sub.Name,
		},
		Match: raw,
	}
}

// Poster sends a JSON body to a URL. Any non-2xx response is an error.
type Poster interface {
	Post(ctx context.Context, url string, body []byte, headers map[string]string) error
}

// HTTPPoster is the net/http Poster.
type HTTPPoster struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

type PosterOption func(*HTTPPoster)

func WithHTTPClient(client *http.Client) PosterOption {
	return func(p *HTTPPoster) {
		if client != nil {
			p.httpClient = client
		}
	}
}

func WithTimeout(d time.Duration) PosterOption {
	return func(p *HTTPPoster) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithUserAgent(ua string) PosterOption {
	return func(p *HTTPPoster) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

func NewHTTPPoster(opts ...PosterOption) *HTTPPoster {
	p := &HTTPPoster{
		httpClient: &http.Client{},
		timeout:    defaultWebhookTimeout,
		userAgent:  "skywire-track",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *HTTPPoster) Post(ctx context.Context, url string, body []byte, headers map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
