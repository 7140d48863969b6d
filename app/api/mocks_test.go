package api

import (
	"context"
	"time"

	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/monitor"
	"github.com/postwatch/postwatch/app/source"
)

type mockChannelRepo struct {
	channels map[string]*database.Channel
	nextID   int64
	err      error
	deleted  []string
}

var _ database.ChannelRepository = (*mockChannelRepo)(nil)

func newMockChannelRepo() *mockChannelRepo {
	return &mockChannelRepo{channels: make(map[string]*database.Channel), nextID: 1}
}

func (m *mockChannelRepo) Create(name, webhookURL string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	id := m.nextID
	m.nextID++
	m.channels[name] = &database.Channel{ID: id, Name: name, WebhookURL: webhookURL}
	return id, nil
}

func (m *mockChannelRepo) GetByName(name string) (*database.Channel, error) {
	return m.channels[name], nil
}

func (m *mockChannelRepo) List() ([]database.ChannelWithCount, error) {
	var list []database.ChannelWithCount
	for _, ch := range m.channels {
		list = append(list, database.ChannelWithCount{Channel: *ch})
	}
	return list, nil
}

func (m *mockChannelRepo) Delete(name string) (bool, error) {
	if _, ok := m.channels[name]; !ok {
		return false, nil
	}
	delete(m.channels, name)
	m.deleted = append(m.deleted, name)
	return true, nil
}

func (m *mockChannelRepo) GetChannelCount() (int, error) {
	return len(m.channels), nil
}

type mockAccountRepo struct {
	accounts map[string]*database.TrackedAccount
	upserted []string
	cursors  map[string]*string
}

var _ database.AccountRepository = (*mockAccountRepo)(nil)

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accounts: make(map[string]*database.TrackedAccount),
		cursors:  make(map[string]*string),
	}
}

func (m *mockAccountRepo) Upsert(handle string, channelID int64, lastSeenID *string) error {
	m.accounts[handle] = &database.TrackedAccount{Handle: handle, ChannelID: channelID, LastSeenID: lastSeenID, Active: true}
	m.upserted = append(m.upserted, handle)
	m.cursors[handle] = lastSeenID
	return nil
}

func (m *mockAccountRepo) Get(handle string) (*database.TrackedAccount, error) {
	return m.accounts[handle], nil
}

func (m *mockAccountRepo) List(channelName string) ([]database.AccountWithChannel, error) {
	var list []database.AccountWithChannel
	for _, acc := range m.accounts {
		list = append(list, database.AccountWithChannel{TrackedAccount: *acc})
	}
	return list, nil
}

func (m *mockAccountRepo) ListActive() ([]database.AccountWithChannel, error) {
	return m.List("")
}

func (m *mockAccountRepo) Delete(handle string) (bool, error) {
	if _, ok := m.accounts[handle]; !ok {
		return false, nil
	}
	delete(m.accounts, handle)
	return true, nil
}

func (m *mockAccountRepo) UpdateCursor(handle, lastSeenID string) error {
	m.cursors[handle] = &lastSeenID
	return nil
}

func (m *mockAccountRepo) SetActive(handle string, active bool) error {
	return nil
}

func (m *mockAccountRepo) DeactivateChannelAccounts(channelID int64) error {
	return nil
}

func (m *mockAccountRepo) GetAccountCount() (int, error) {
	return len(m.accounts), nil
}

type mockSource struct {
	posts   []source.Post
	err     error
	credits int64
	calls   []string
}

func (m *mockSource) FetchRecent(ctx context.Context, handle string, limit int) ([]source.Post, error) {
	m.calls = append(m.calls, handle)
	if m.err != nil {
		return nil, m.err
	}
	return m.posts, nil
}

func (m *mockSource) Credits() int64 {
	return m.credits
}

type mockMonitor struct {
	running  bool
	interval time.Duration
	summary  *monitor.Summary
	runOnce  int
}

func (m *mockMonitor) Start() bool {
	if m.running {
		return false
	}
	m.running = true
	return true
}

func (m *mockMonitor) Stop() bool {
	if !m.running {
		return false
	}
	m.running = false
	return true
}

func (m *mockMonitor) RunOnce() {
	m.runOnce++
}

func (m *mockMonitor) IsRunning() bool {
	return m.running
}

func (m *mockMonitor) Interval() time.Duration {
	return m.interval
}

func (m *mockMonitor) LastSummary() *monitor.Summary {
	return m.summary
}
