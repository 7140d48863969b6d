package database

import (
	"database/sql"
	"fmt"
)

var _ LedgerRepository = (*ledgerRepository)(nil)

type ledgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) IsSent(postID string, channelID int64) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM sent_posts WHERE post_id = ? AND channel_id = ?
	`, postID, channelID).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sent post: %w", err)
	}

	return true, nil
}

// Record appends a delivery to the ledger. A concurrent duplicate insert is
// swallowed by the unique index; the ledger stays append-only either way.
func (r *ledgerRepository) Record(rec SentRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO sent_posts (post_id, channel_id, handle, text, posted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(post_id, channel_id) DO NOTHING
	`, rec.PostID, rec.ChannelID, rec.Handle, rec.Text, rec.PostedAt)

	if err != nil {
		return fmt.Errorf("failed to record sent post: %w", err)
	}

	return nil
}
