package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/source"
)

type mockFetcher struct {
	mu    sync.Mutex
	posts map[string][]source.Post
	errs  map[string]error
	calls []string
}

func (m *mockFetcher) FetchRecent(ctx context.Context, handle string, limit int) ([]source.Post, error) {
	m.mu.Lock()
	m.calls = append(m.calls, handle)
	m.mu.Unlock()

	if err, ok := m.errs[handle]; ok {
		return nil, err
	}
	return m.posts[handle], nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type sentCall struct {
	webhookURL string
	handle     string
	postID     string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentCall
	errs map[string]error // keyed by post id
}

func (m *mockSender) Send(ctx context.Context, webhookURL, handle string, post source.Post) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentCall{webhookURL, handle, post.ID})
	m.mu.Unlock()

	if err, ok := m.errs[post.ID]; ok {
		return err
	}
	return nil
}

func (m *mockSender) sentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		ids = append(ids, s.postID)
	}
	return ids
}

type mockAccountRepo struct {
	mu                  sync.Mutex
	accounts            []database.AccountWithChannel
	cursors             map[string]string
	deactivated         []string
	deactivatedChannels []int64
}

var _ database.AccountRepository = (*mockAccountRepo)(nil)

func newMockAccountRepo(accounts ...database.AccountWithChannel) *mockAccountRepo {
	repo := &mockAccountRepo{accounts: accounts, cursors: make(map[string]string)}
	for _, acc := range accounts {
		if acc.LastSeenID != nil {
			repo.cursors[acc.Handle] = *acc.LastSeenID
		}
	}
	return repo
}

func (m *mockAccountRepo) Upsert(handle string, channelID int64, lastSeenID *string) error {
	return nil
}

func (m *mockAccountRepo) Get(handle string) (*database.TrackedAccount, error) {
	return nil, nil
}

func (m *mockAccountRepo) List(channelName string) ([]database.AccountWithChannel, error) {
	return m.accounts, nil
}

func (m *mockAccountRepo) ListActive() ([]database.AccountWithChannel, error) {
	return m.accounts, nil
}

func (m *mockAccountRepo) Delete(handle string) (bool, error) {
	return false, nil
}

func (m *mockAccountRepo) UpdateCursor(handle, lastSeenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[handle] = lastSeenID
	return nil
}

func (m *mockAccountRepo) SetActive(handle string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !active {
		m.deactivated = append(m.deactivated, handle)
	}
	return nil
}

func (m *mockAccountRepo) DeactivateChannelAccounts(channelID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivatedChannels = append(m.deactivatedChannels, channelID)
	return nil
}

func (m *mockAccountRepo) GetAccountCount() (int, error) {
	return len(m.accounts), nil
}

func (m *mockAccountRepo) cursor(handle string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[handle]
}

type mockLedger struct {
	mu       sync.Mutex
	sent     map[string]bool
	recorded []database.SentRecord
}

var _ database.LedgerRepository = (*mockLedger)(nil)

func newMockLedger() *mockLedger {
	return &mockLedger{sent: make(map[string]bool)}
}

func ledgerKey(postID string, channelID int64) string {
	return fmt.Sprintf("%s:%d", postID, channelID)
}

func (m *mockLedger) IsSent(postID string, channelID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[ledgerKey(postID, channelID)], nil
}

func (m *mockLedger) Record(rec database.SentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[ledgerKey(rec.PostID, rec.ChannelID)] = true
	m.recorded = append(m.recorded, rec)
	return nil
}

type mockCycleRunner struct {
	mu      sync.Mutex
	calls   int
	summary Summary
	ran     chan struct{}
}

func (m *mockCycleRunner) RunCycle(ctx context.Context) Summary {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ran != nil {
		select {
		case m.ran <- struct{}{}:
		default:
		}
	}
	return m.summary
}

func (m *mockCycleRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
