package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/postwatch/postwatch/app/cfg"
	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/notify"
	"github.com/postwatch/postwatch/app/source"
)

// Summary reports the outcome of one monitoring cycle.
type Summary struct {
	Processed    int  `json:"processed"`
	Failed       int  `json:"failed"`
	Sent         int  `json:"sent"`
	SendFailures int  `json:"send_failures"`
	Aborted      bool `json:"aborted"`
}

// Orchestrator drives one monitoring cycle: for every active account it
// fetches recent posts, filters them against the account's cursor, and
// delivers new posts in chronological order. Per-account failures are
// isolated; only a credential failure aborts the cycle, since all accounts
// share one credential.
type Orchestrator struct {
	fetcher       Fetcher
	sender        Sender
	accounts      database.AccountRepository
	ledger        database.LedgerRepository
	fetchLimit    int
	maxConcurrent int
	sendDelay     time.Duration
}

func NewOrchestrator(fetcher Fetcher, sender Sender, accounts database.AccountRepository,
	ledger database.LedgerRepository) *Orchestrator {
	cfg := cfg.Get()

	return &Orchestrator{
		fetcher:       fetcher,
		sender:        sender,
		accounts:      accounts,
		ledger:        ledger,
		fetchLimit:    cfg.MaxPostsPerCheck,
		maxConcurrent: cfg.MaxConcurrent,
		sendDelay:     time.Duration(cfg.SendDelay) * time.Second,
	}
}

// RunCycle processes all active accounts with bounded concurrency and
// returns a summary. It never panics past its boundary and never returns
// an error; failures are logged and counted.
func (o *Orchestrator) RunCycle(ctx context.Context) Summary {
	accounts, err := o.accounts.ListActive()
	if err != nil {
		slog.Error("Failed to list active accounts", "error", err)
		return Summary{}
	}

	if len(accounts) == 0 {
		slog.Debug("No active accounts to monitor")
		return Summary{}
	}

	slog.Info("Starting monitoring cycle", "accounts", len(accounts))

	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
		sem     = make(chan struct{}, o.maxConcurrent)
	)

	for _, acc := range accounts {
		if cycleCtx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(acc database.AccountWithChannel) {
			defer wg.Done()
			defer func() { <-sem }()

			if cycleCtx.Err() != nil {
				return
			}

			sent, sendFailures, err := o.processAccount(cycleCtx, acc)

			mu.Lock()
			defer mu.Unlock()

			summary.Sent += sent
			summary.SendFailures += sendFailures

			switch {
			case err == nil:
				summary.Processed++
			case errors.Is(err, source.ErrUnauthorized):
				summary.Failed++
				summary.Aborted = true
				slog.Error("Source API authentication failed, aborting cycle", "account", acc.Handle)
				cancel()
			default:
				summary.Failed++
				slog.Error("Failed to process account", "account", acc.Handle, "error", err)
			}
		}(acc)
	}

	wg.Wait()

	slog.Info("Monitoring cycle completed",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"sent", summary.Sent,
		"send_failures", summary.SendFailures,
		"aborted", summary.Aborted)

	return summary
}

func (o *Orchestrator) processAccount(ctx context.Context, acc database.AccountWithChannel) (int, int, error) {
	slog.Debug("Processing account", "account", acc.Handle)

	posts, err := o.fetcher.FetchRecent(ctx, acc.Handle, o.fetchLimit)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			// Permanent condition, no point retrying next cycle.
			slog.Warn("Account no longer exists, deactivating", "account", acc.Handle)
			if err := o.accounts.SetActive(acc.Handle, false); err != nil {
				slog.Error("Failed to deactivate account", "account", acc.Handle, "error", err)
			}
			return 0, 0, nil
		}
		return 0, 0, err
	}

	if len(posts) == 0 {
		slog.Debug("No posts found", "account", acc.Handle)
		return 0, 0, nil
	}

	if acc.LastSeenID == nil {
		return 0, 0, o.establishBaseline(acc, posts)
	}

	return o.deliverNew(ctx, acc, posts)
}

// establishBaseline records the newest post id as the account's cursor
// without sending anything, so adding an account does not flood the
// channel with its history.
func (o *Orchestrator) establishBaseline(acc database.AccountWithChannel, posts []source.Post) error {
	newest := posts[0].ID
	for _, p := range posts[1:] {
		if ComparePostIDs(p.ID, newest) > 0 {
			newest = p.ID
		}
	}

	if err := o.accounts.UpdateCursor(acc.Handle, newest); err != nil {
		return err
	}

	slog.Info("Established baseline cursor", "account", acc.Handle, "cursor", newest)
	return nil
}

func (o *Orchestrator) deliverNew(ctx context.Context, acc database.AccountWithChannel,
	posts []source.Post) (int, int, error) {
	cursor := *acc.LastSeenID

	var retained []source.Post
	for _, p := range posts {
		if ComparePostIDs(p.ID, cursor) > 0 {
			retained = append(retained, p)
		}
	}

	if len(retained) == 0 {
		slog.Debug("No new posts", "account", acc.Handle)
		return 0, 0, nil
	}

	// Deliver oldest first so the channel reads as a timeline regardless
	// of the order the API returned.
	sort.Slice(retained, func(i, j int) bool {
		if retained[i].CreatedAt.Equal(retained[j].CreatedAt) {
			return ComparePostIDs(retained[i].ID, retained[j].ID) < 0
		}
		return retained[i].CreatedAt.Before(retained[j].CreatedAt)
	})

	slog.Info("Found new posts", "account", acc.Handle, "count", len(retained))

	// The cursor advances over the whole batch even when individual sends
	// fail: delivery is best effort, and a permanently failing post must
	// not be reprocessed forever.
	newest := cursor
	for _, p := range retained {
		if ComparePostIDs(p.ID, newest) > 0 {
			newest = p.ID
		}
	}

	sent := 0
	sendFailures := 0

	for _, post := range retained {
		alreadySent, err := o.ledger.IsSent(post.ID, acc.ChannelID)
		if err != nil {
			slog.Error("Ledger lookup failed", "post", post.ID, "error", err)
			sendFailures++
			continue
		}
		if alreadySent {
			slog.Debug("Post already delivered, skipping", "post", post.ID, "channel", acc.ChannelName)
			continue
		}

		if err := o.sender.Send(ctx, acc.WebhookURL, acc.Handle, post); err != nil {
			sendFailures++
			if errors.Is(err, notify.ErrWebhookGone) {
				slog.Error("Webhook gone, deactivating channel accounts",
					"channel", acc.ChannelName, "account", acc.Handle)
				if derr := o.accounts.DeactivateChannelAccounts(acc.ChannelID); derr != nil {
					slog.Error("Failed to deactivate channel accounts", "channel", acc.ChannelName, "error", derr)
				}
				break
			}
			slog.Error("Failed to deliver post", "post", post.ID, "account", acc.Handle, "error", err)
			continue
		}

		if err := o.ledger.Record(database.SentRecord{
			PostID:    post.ID,
			ChannelID: acc.ChannelID,
			Handle:    acc.Handle,
			Text:      post.Text,
			PostedAt:  &post.CreatedAt,
		}); err != nil {
			slog.Error("Failed to record delivery", "post", post.ID, "error", err)
		}

		sent++
		slog.Info("Delivered post", "post", post.ID, "account", acc.Handle, "channel", acc.ChannelName)

		// Outbound rate limit protection between sends to one destination.
		if err := sleepCtx(ctx, o.sendDelay); err != nil {
			break
		}
	}

	if ComparePostIDs(newest, cursor) > 0 {
		if err := o.accounts.UpdateCursor(acc.Handle, newest); err != nil {
			return sent, sendFailures, err
		}
		slog.Debug("Advanced cursor", "account", acc.Handle, "cursor", newest)
	}

	return sent, sendFailures, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
