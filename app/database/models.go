package database

import (
	"time"
)

// Channel is a notification destination owning zero or more tracked accounts.
type Channel struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	WebhookURL string    `json:"webhook_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChannelWithCount is a channel together with its active account count.
type ChannelWithCount struct {
	Channel
	AccountCount int `json:"account_count"`
}

// TrackedAccount is a source account being monitored for new posts.
// LastSeenID is nil until the first baseline poll establishes a cursor.
type TrackedAccount struct {
	ID         int64     `json:"id"`
	Handle     string    `json:"handle"`
	ChannelID  int64     `json:"channel_id"`
	LastSeenID *string   `json:"last_seen_id"`
	Active     bool      `json:"active"`
	AddedAt    time.Time `json:"added_at"`
}

// AccountWithChannel joins a tracked account with its delivery channel.
type AccountWithChannel struct {
	TrackedAccount
	ChannelName string `json:"channel"`
	WebhookURL  string `json:"-"`
}

// SentRecord is one row of the append-only delivery ledger.
type SentRecord struct {
	ID        int64      `json:"id"`
	PostID    string     `json:"post_id"`
	ChannelID int64      `json:"channel_id"`
	Handle    string     `json:"handle"`
	Text      string     `json:"text"`
	PostedAt  *time.Time `json:"posted_at"`
	SentAt    time.Time  `json:"sent_at"`
}
