package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
)

// ChangeRepository implements [models.Repository] for [models.ChangeRecord] persistence.
type ChangeRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.ChangeRecord] = (*ChangeRepository)(nil)

// NewChangeRepository creates a new [ChangeRepository] with the given database connection
func NewChangeRepository(db *sql.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// Create inserts a change record, assigning its sequence and an ID when missing.
func (r *ChangeRepository) Create(change *models.ChangeRecord) error {
	if change.RecordID == "" {
		change.RecordID = shared.GenerateID()
	}
	if change.Created.IsZero() {
		change.Created = time.Now().UTC()
	}

	if err := change.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "preference_changes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	change.Sequence = int64(sequence)

	query := `
		INSERT INTO preference_changes (id, sequence, account, email_type_id, previous, next, source, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, change.RecordID, change.Sequence, change.Account, change.EmailTypeID,
		string(change.Previous), string(change.Next), string(change.Source), string(change.Status), change.Created)
	if err != nil {
		return fmt.Errorf("failed to insert change: %w", err)
	}

	return nil
}

// Get retrieves a change record by ID
func (r *ChangeRepository) Get(id string) (*models.ChangeRecord, error) {
	query := `
		SELECT id, sequence, account, email_type_id, previous, next, source, status, created_at
		FROM preference_changes
		WHERE id = ?
	`

	change, err := scanChange(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: change %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query change: %w", err)
	}

	return change, nil
}

// Update rewrites the status of an existing record. Other columns are immutable.
func (r *ChangeRepository) Update(change *models.ChangeRecord) error {
	if err := change.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.Exec("UPDATE preference_changes SET status = ? WHERE id = ?", string(change.Status), change.RecordID)
	if err != nil {
		return fmt.Errorf("failed to update change: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: change %s", shared.ErrRecordNotFound, change.RecordID)
	}

	return nil
}

// Delete removes a change record by ID
func (r *ChangeRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM preference_changes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete change: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: change %s", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves change records matching criteria, newest first.
//
// Supported criteria: "account" (string), "email_type_id" (string), "limit" (int).
func (r *ChangeRepository) List(criteria map[string]any) ([]*models.ChangeRecord, error) {
	query := `
		SELECT id, sequence, account, email_type_id, previous, next, source, status, created_at
		FROM preference_changes
		WHERE 1 = 1
	`

	args := []any{}

	if account, ok := criteria["account"].(string); ok && account != "" {
		query += " AND account = ?"
		args = append(args, account)
	}
	if id, ok := criteria["email_type_id"].(string); ok && id != "" {
		query += " AND email_type_id = ?"
		args = append(args, id)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var changes []*models.ChangeRecord
	for rows.Next() {
		change, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return changes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChange(s scanner) (*models.ChangeRecord, error) {
	var (
		c                              models.ChangeRecord
		previous, next, source, status string
	)

	err := s.Scan(&c.RecordID, &c.Sequence, &c.Account, &c.EmailTypeID, &previous, &next, &source, &status, &c.Created)
	if err != nil {
		return nil, err
	}

	c.Previous = models.Frequency(previous)
	c.Next = models.Frequency(next)
	c.Source = models.ChangeSource(source)
	c.Status = models.ChangeStatus(status)
	return &c, nil
}
