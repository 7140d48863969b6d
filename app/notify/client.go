package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/postwatch/postwatch/app/source"
)

// ErrWebhookGone means the destination webhook no longer exists (404).
// The monitor deactivates the channel's accounts when it sees this.
var ErrWebhookGone = errors.New("webhook not found")

// Client delivers posts to webhook destinations as rich embed messages.
// Server errors and timeouts are retried here; every other failure is
// reported to the caller, whose policy decides what happens next.
type Client struct {
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
}

func NewClient(httpClient *http.Client) *Client {
	return &Client{
		httpClient:    httpClient,
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
}

type webhookPayload struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Content   string  `json:"content"`
	Embeds    []embed `json:"embeds"`
}

type embed struct {
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Timestamp   string      `json:"timestamp"`
	Footer      embedFooter `json:"footer"`
	URL         string      `json:"url"`
	Image       *embedImage `json:"image,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedImage struct {
	URL string `json:"url"`
}

func buildPayload(handle string, post source.Post) webhookPayload {
	postURL := fmt.Sprintf("https://twitter.com/%s/status/%s", handle, post.ID)

	e := embed{
		Description: formatPostText(post),
		Color:       1942002,
		Timestamp:   post.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Footer: embedFooter{
			Text: fmt.Sprintf("@%s | %s", handle, formatMetrics(post)),
		},
		URL: postURL,
	}

	if len(post.MediaURLs) > 0 {
		e.Image = &embedImage{URL: post.MediaURLs[0]}
	}

	return webhookPayload{
		Username:  "@" + handle,
		AvatarURL: "https://unavatar.io/twitter/" + handle,
		Content:   fmt.Sprintf("🔗 [View on Twitter](%s)", postURL),
		Embeds:    []embed{e},
	}
}

// Send delivers one post to the webhook. Returns ErrWebhookGone for a 404
// destination and a plain error for any other failure.
func (c *Client) Send(ctx context.Context, webhookURL, handle string, post source.Post) error {
	body, err := json.Marshal(buildPayload(handle, post))
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryDelay); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			slog.Warn("Webhook request failed, retrying", "error", err, "attempt", attempt+1)
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil

		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("webhook returned 404: %w", ErrWebhookGone)

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("webhook server error: %d", resp.StatusCode)
			slog.Warn("Webhook server error, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			continue

		default:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", c.retryAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
