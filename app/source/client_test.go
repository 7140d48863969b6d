package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/postwatch/postwatch/app/cfg"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.SetForTesting(&cfg.Cfg{
		SourceBaseURL: server.URL,
		SourceAPIKey:  "test-key",
		UserAgent:     "PostWatch Test",
	})

	client := NewClient(server.Client(), rate.NewLimiter(rate.Inf, 1))
	client.backoffDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	return client
}

func TestFetchRecentParsesPosts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("Expected api key header, got '%s'", got)
		}
		if got := r.URL.Query().Get("userName"); got != "alpha" {
			t.Errorf("Expected userName 'alpha', got '%s'", got)
		}
		w.Header().Set("X-Credits-Remaining", "4200")
		w.Write([]byte(`{
			"data": {
				"tweets": [
					{
						"id": "1866052975133380609",
						"text": "hello world",
						"created_at": "2024-12-09T12:00:00Z",
						"public_metrics": {"like_count": 1200, "retweet_count": 34, "reply_count": 5},
						"entities": {"media": [{"type": "photo", "url": "https://pic.example.com/1.jpg"}]}
					},
					{
						"id": 1866052975133380610,
						"text": "numeric id",
						"created_at": "2024-12-09T12:05:00Z"
					},
					{
						"id": "",
						"text": "no id, skipped"
					}
				]
			}
		}`))
	}))

	posts, err := client.FetchRecent(context.Background(), "alpha", 20)
	if err != nil {
		t.Fatalf("FetchRecent failed: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "1866052975133380609" {
		t.Errorf("Unexpected id: %s", first.ID)
	}
	if first.Likes != 1200 || first.Reposts != 34 || first.Replies != 5 {
		t.Errorf("Unexpected metrics: %d/%d/%d", first.Likes, first.Reposts, first.Replies)
	}
	if len(first.MediaURLs) != 1 || first.MediaURLs[0] != "https://pic.example.com/1.jpg" {
		t.Errorf("Unexpected media: %v", first.MediaURLs)
	}
	if first.URL != "https://twitter.com/i/web/status/1866052975133380609" {
		t.Errorf("Unexpected post URL: %s", first.URL)
	}

	// Numeric ids must keep their full digits.
	if posts[1].ID != "1866052975133380610" {
		t.Errorf("Numeric id truncated: %s", posts[1].ID)
	}

	if client.Credits() != 4200 {
		t.Errorf("Expected credits 4200, got %d", client.Credits())
	}
}

func TestFetchRecentTopLevelTweets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tweets": [{"id": "100", "text": "flat shape", "created_at": "2024-12-09T12:00:00Z"}]}`))
	}))

	posts, err := client.FetchRecent(context.Background(), "alpha", 20)
	if err != nil {
		t.Fatalf("FetchRecent failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "100" {
		t.Fatalf("Unexpected posts: %v", posts)
	}
}

func TestFetchRecentUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.FetchRecent(context.Background(), "alpha", 20)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestFetchRecentNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchRecent(context.Background(), "gone", 20)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFetchRecentRateLimitExhausted(t *testing.T) {
	var requests int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.FetchRecent(context.Background(), "alpha", 20)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}

	// Initial attempt plus one per backoff delay.
	if requests != 4 {
		t.Errorf("Expected 4 attempts, got %d", requests)
	}
}

func TestFetchRecentRateLimitRecovers(t *testing.T) {
	var requests int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data": {"tweets": [{"id": "1", "text": "ok", "created_at": "2024-12-09T12:00:00Z"}]}}`))
	}))

	posts, err := client.FetchRecent(context.Background(), "alpha", 20)
	if err != nil {
		t.Fatalf("FetchRecent failed after backoff: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post, got %d", len(posts))
	}
	if requests != 2 {
		t.Errorf("Expected 2 attempts, got %d", requests)
	}
}

func TestFetchRecentContextCancelled(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	client.backoffDelays = []time.Duration{time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.FetchRecent(ctx, "alpha", 20)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
