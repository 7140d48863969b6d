package database

// ChannelRepository handles database operations for channels.
type ChannelRepository interface {
	Create(name, webhookURL string) (int64, error)
	GetByName(name string) (*Channel, error)
	List() ([]ChannelWithCount, error)
	Delete(name string) (bool, error)
	GetChannelCount() (int, error)
}

// AccountRepository handles database operations for tracked accounts.
type AccountRepository interface {
	Upsert(handle string, channelID int64, lastSeenID *string) error
	Get(handle string) (*TrackedAccount, error)
	List(channelName string) ([]AccountWithChannel, error)
	ListActive() ([]AccountWithChannel, error)
	Delete(handle string) (bool, error)
	UpdateCursor(handle, lastSeenID string) error
	SetActive(handle string, active bool) error
	DeactivateChannelAccounts(channelID int64) error
	GetAccountCount() (int, error)
}

// LedgerRepository handles the append-only ledger of delivered posts.
// A (post_id, channel_id) pair is recorded at most once; the unique index
// is the authoritative guard against duplicate delivery.
type LedgerRepository interface {
	IsSent(postID string, channelID int64) (bool, error)
	Record(rec SentRecord) error
}
