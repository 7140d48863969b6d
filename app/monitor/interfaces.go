package monitor

import (
	"context"

	"github.com/postwatch/postwatch/app/notify"
	"github.com/postwatch/postwatch/app/source"
)

// Fetcher retrieves recent posts for one account from the content source.
type Fetcher interface {
	FetchRecent(ctx context.Context, handle string, limit int) ([]source.Post, error)
}

var _ Fetcher = (*source.Client)(nil)

// Sender delivers one post to a channel's webhook destination.
type Sender interface {
	Send(ctx context.Context, webhookURL, handle string, post source.Post) error
}

var _ Sender = (*notify.Client)(nil)

// CycleRunner runs one full monitoring cycle over all active accounts.
type CycleRunner interface {
	RunCycle(ctx context.Context) Summary
}

var _ CycleRunner = (*Orchestrator)(nil)
