package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
)

// SnapshotRepository stores the last confirmed preference snapshot per account.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the stored snapshot for account.
func (r *SnapshotRepository) Save(account string, snapshot models.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshots WHERE account = ?", account); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	now := time.Now().UTC()
	for _, id := range snapshot.IDs() {
		_, err := tx.Exec(
			"INSERT INTO snapshots (account, email_type_id, frequency, updated_at) VALUES (?, ?, ?, ?)",
			account, id, string(snapshot[id]), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot entry %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored snapshot for account and when it was saved.
//
// Returns [shared.ErrRecordNotFound] when nothing was saved for account.
func (r *SnapshotRepository) Load(account string) (models.Snapshot, time.Time, error) {
	rows, err := r.db.Query("SELECT email_type_id, frequency, updated_at FROM snapshots WHERE account = ?", account)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := models.Snapshot{}
	var updatedAt time.Time
	for rows.Next() {
		var (
			id, freq string
			at       time.Time
		)
		if err := rows.Scan(&id, &freq, &at); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan snapshot entry: %w", err)
		}

		f, err := models.ParseFrequency(freq)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("corrupt snapshot entry %s: %w", id, err)
		}
		snapshot[id] = f
		if at.After(updatedAt) {
			updatedAt = at
		}
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("row iteration error: %w", err)
	}

	if len(snapshot) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: snapshot for %s", shared.ErrRecordNotFound, account)
	}
	return snapshot, updatedAt, nil
}
