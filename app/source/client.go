package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/postwatch/postwatch/app/cfg"
)

const lastPostsEndpoint = "/twitter/user/last_tweets"

// Client fetches recent posts from the content source API. All requests go
// through a shared rate limiter so the API's global budget is respected no
// matter how many accounts are polled concurrently.
type Client struct {
	httpClient    *http.Client
	limiter       *rate.Limiter
	baseURL       string
	apiKey        string
	userAgent     string
	backoffDelays []time.Duration
	maxRetries    int
	credits       atomic.Int64
}

func NewClient(httpClient *http.Client, limiter *rate.Limiter) *Client {
	cfg := cfg.Get()

	c := &Client{
		httpClient:    httpClient,
		limiter:       limiter,
		baseURL:       cfg.SourceBaseURL,
		apiKey:        cfg.SourceAPIKey,
		userAgent:     cfg.UserAgent,
		backoffDelays: []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
		maxRetries:    3,
	}
	c.credits.Store(-1)

	return c
}

// Credits returns the remaining API credits last reported by the source
// API, or -1 when unknown.
func (c *Client) Credits() int64 {
	return c.credits.Load()
}

// FetchRecent returns up to limit recent posts for the given handle, in
// the order the API reports them (newest first).
func (c *Client) FetchRecent(ctx context.Context, handle string, limit int) ([]Post, error) {
	params := url.Values{}
	params.Set("userName", handle)
	params.Set("max_results", strconv.Itoa(limit))

	data, err := c.request(ctx, lastPostsEndpoint, params)
	if err != nil {
		return nil, err
	}

	return c.parsePosts(data), nil
}

func (c *Client) request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var (
		rateRetries    int
		networkRetries int
	)

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, endpoint, params)
		if err != nil {
			if networkRetries < c.maxRetries {
				networkRetries++
				slog.Warn("Source API network error, retrying", "error", err, "attempt", networkRetries)
				if err := sleepCtx(ctx, time.Second); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("network error after %d retries: %w", c.maxRetries, err)
		}

		switch {
		case status == http.StatusOK:
			return body, nil

		case status == http.StatusUnauthorized:
			return nil, fmt.Errorf("source API returned 401: %w", ErrUnauthorized)

		case status == http.StatusNotFound:
			return nil, fmt.Errorf("source API returned 404: %w", ErrNotFound)

		case status == http.StatusTooManyRequests:
			if rateRetries < len(c.backoffDelays) {
				delay := c.backoffDelays[rateRetries]
				rateRetries++
				slog.Warn("Source API rate limited, backing off", "delay", delay.String(), "attempt", rateRetries)
				if err := sleepCtx(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("still rate limited after %d retries: %w", len(c.backoffDelays), ErrRateLimited)

		default:
			return nil, fmt.Errorf("source API returned unexpected status %d", status)
		}
	}
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	c.trackCredits(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

func (c *Client) trackCredits(resp *http.Response) {
	for _, header := range []string{"X-Credits-Remaining", "X-Ratelimit-Remaining"} {
		if v := resp.Header.Get(header); v != "" {
			if credits, err := strconv.ParseInt(v, 10, 64); err == nil {
				c.credits.Store(credits)
				return
			}
		}
	}
}

func (c *Client) parsePosts(data []byte) []Post {
	var resp lastPostsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("Failed to decode source API response", "error", err)
		return nil
	}

	raw := resp.Data.Tweets
	if len(raw) == 0 {
		raw = resp.Tweets
	}

	posts := make([]Post, 0, len(raw))
	for _, t := range raw {
		post, ok := t.toPost()
		if !ok {
			slog.Debug("Skipping malformed post in API response")
			continue
		}
		posts = append(posts, post)
	}

	return posts
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
