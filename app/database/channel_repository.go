package database

import (
	"database/sql"
	"fmt"
	"strings"
)

var _ ChannelRepository = (*channelRepository)(nil)

type channelRepository struct {
	db *DB
}

func NewChannelRepository(db *DB) ChannelRepository {
	return &channelRepository{db: db}
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *channelRepository) Create(name, webhookURL string) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO channels (name, webhook_url)
		VALUES (?, ?)
	`, name, webhookURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create channel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get channel id: %w", err)
	}

	return id, nil
}

func (r *channelRepository) GetByName(name string) (*Channel, error) {
	var ch Channel
	err := r.db.QueryRow(`
		SELECT id, name, webhook_url, created_at
		FROM channels
		WHERE name = ?
	`, name).Scan(&ch.ID, &ch.Name, &ch.WebhookURL, &ch.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel by name: %w", err)
	}

	return &ch, nil
}

func (r *channelRepository) List() ([]ChannelWithCount, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.name, c.webhook_url, c.created_at,
		       COUNT(a.id) AS account_count
		FROM channels c
		LEFT JOIN tracked_accounts a ON c.id = a.channel_id AND a.active = 1
		GROUP BY c.id
		ORDER BY c.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []ChannelWithCount
	for rows.Next() {
		var ch ChannelWithCount
		err := rows.Scan(&ch.ID, &ch.Name, &ch.WebhookURL, &ch.CreatedAt, &ch.AccountCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

// Delete removes a channel; accounts and ledger rows cascade with it.
func (r *channelRepository) Delete(name string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM channels WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete channel: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *channelRepository) GetChannelCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM channels`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel count: %w", err)
	}
	return count, nil
}
