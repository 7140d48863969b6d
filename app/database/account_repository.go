package database

import (
	"database/sql"
	"fmt"
)

var _ AccountRepository = (*accountRepository)(nil)

type accountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) AccountRepository {
	return &accountRepository{db: db}
}

// Upsert inserts a tracked account or, if the handle already exists,
// re-points it at the given channel and reactivates it. An existing cursor
// is kept unless a new one is provided.
func (r *accountRepository) Upsert(handle string, channelID int64, lastSeenID *string) error {
	_, err := r.db.Exec(`
		INSERT INTO tracked_accounts (handle, channel_id, last_seen_id, active)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(handle) DO UPDATE SET
			channel_id = excluded.channel_id,
			active = 1,
			last_seen_id = COALESCE(excluded.last_seen_id, tracked_accounts.last_seen_id)
	`, handle, channelID, lastSeenID)

	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	return nil
}

func (r *accountRepository) Get(handle string) (*TrackedAccount, error) {
	var acc TrackedAccount
	err := r.db.QueryRow(`
		SELECT id, handle, channel_id, last_seen_id, active, added_at
		FROM tracked_accounts
		WHERE handle = ?
	`, handle).Scan(&acc.ID, &acc.Handle, &acc.ChannelID, &acc.LastSeenID, &acc.Active, &acc.AddedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// List returns all accounts, or only those of one channel when channelName
// is non-empty.
func (r *accountRepository) List(channelName string) ([]AccountWithChannel, error) {
	query := `
		SELECT a.id, a.handle, a.channel_id, a.last_seen_id, a.active, a.added_at,
		       c.name, c.webhook_url
		FROM tracked_accounts a
		JOIN channels c ON a.channel_id = c.id`
	args := []interface{}{}

	if channelName != "" {
		query += ` WHERE c.name = ?`
		args = append(args, channelName)
	}
	query += ` ORDER BY c.name, a.added_at`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	return scanAccountRows(rows)
}

// ListActive returns active accounts joined with their channel webhook,
// the working set of one monitoring cycle.
func (r *accountRepository) ListActive() ([]AccountWithChannel, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.handle, a.channel_id, a.last_seen_id, a.active, a.added_at,
		       c.name, c.webhook_url
		FROM tracked_accounts a
		JOIN channels c ON a.channel_id = c.id
		WHERE a.active = 1
		ORDER BY a.added_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	defer rows.Close()

	return scanAccountRows(rows)
}

func scanAccountRows(rows *sql.Rows) ([]AccountWithChannel, error) {
	var accounts []AccountWithChannel
	for rows.Next() {
		var acc AccountWithChannel
		err := rows.Scan(
			&acc.ID, &acc.Handle, &acc.ChannelID, &acc.LastSeenID, &acc.Active,
			&acc.AddedAt, &acc.ChannelName, &acc.WebhookURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) Delete(handle string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM tracked_accounts WHERE handle = ?`, handle)
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *accountRepository) UpdateCursor(handle, lastSeenID string) error {
	_, err := r.db.Exec(`
		UPDATE tracked_accounts SET last_seen_id = ? WHERE handle = ?
	`, lastSeenID, handle)

	if err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}

	return nil
}

func (r *accountRepository) SetActive(handle string, active bool) error {
	_, err := r.db.Exec(`
		UPDATE tracked_accounts SET active = ? WHERE handle = ?
	`, active, handle)

	if err != nil {
		return fmt.Errorf("failed to set account active status: %w", err)
	}

	return nil
}

// DeactivateChannelAccounts soft-disables every account of a channel,
// used when the channel's webhook is gone.
func (r *accountRepository) DeactivateChannelAccounts(channelID int64) error {
	_, err := r.db.Exec(`
		UPDATE tracked_accounts SET active = 0 WHERE channel_id = ?
	`, channelID)

	if err != nil {
		return fmt.Errorf("failed to deactivate channel accounts: %w", err)
	}

	return nil
}

func (r *accountRepository) GetAccountCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM tracked_accounts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get account count: %w", err)
	}
	return count, nil
}
