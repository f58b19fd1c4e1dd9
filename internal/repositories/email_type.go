package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meetingbaas/settings/internal/models"
)

// EmailTypeRepository stores the cached email type catalog.
type EmailTypeRepository struct {
	db *sql.DB
}

// NewEmailTypeRepository creates a new [EmailTypeRepository] with the given database connection
func NewEmailTypeRepository(db *sql.DB) *EmailTypeRepository {
	return &EmailTypeRepository{db: db}
}

// ReplaceAll swaps the stored catalog for catalog in one transaction, preserving order.
func (r *EmailTypeRepository) ReplaceAll(catalog models.Catalog) error {
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM email_types"); err != nil {
		return fmt.Errorf("failed to clear email types: %w", err)
	}

	query := `
		INSERT INTO email_types (id, position, name, description, domain, frequencies, required, can_resend, supports_batch, deprecated, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()

	for i, e := range catalog {
		freqs, err := json.Marshal(e.Frequencies)
		if err != nil {
			return fmt.Errorf("failed to encode frequencies for %s: %w", e.ID, err)
		}

		var meta models.Metadata
		if e.Metadata != nil {
			meta = *e.Metadata
		}

		_, err = tx.Exec(query, e.ID, i, e.Name, e.Description, string(e.Domain), string(freqs),
			e.Required, meta.CanResend, meta.SupportsBatch, meta.Deprecated, now)
		if err != nil {
			return fmt.Errorf("failed to insert email type %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// List returns the stored catalog and when it was cached. An empty table returns a nil catalog and zero time.
func (r *EmailTypeRepository) List() (models.Catalog, time.Time, error) {
	query := `
		SELECT id, name, description, domain, frequencies, required, can_resend, supports_batch, deprecated, cached_at
		FROM email_types
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query email types: %w", err)
	}
	defer rows.Close()

	var (
		catalog  models.Catalog
		cachedAt time.Time
	)
	for rows.Next() {
		var (
			e        models.EmailType
			domain   string
			freqs    string
			meta     models.Metadata
			rowCache time.Time
		)

		err := rows.Scan(&e.ID, &e.Name, &e.Description, &domain, &freqs, &e.Required,
			&meta.CanResend, &meta.SupportsBatch, &meta.Deprecated, &rowCache)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan email type: %w", err)
		}

		e.Domain = models.Domain(domain)
		if err := json.Unmarshal([]byte(freqs), &e.Frequencies); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to decode frequencies for %s: %w", e.ID, err)
		}
		if meta != (models.Metadata{}) {
			e.Metadata = &meta
		}
		if cachedAt.IsZero() || rowCache.Before(cachedAt) {
			cachedAt = rowCache
		}

		catalog = append(catalog, e)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("row iteration error: %w", err)
	}

	return catalog, cachedAt, nil
}

// Clear removes every cached email type.
func (r *EmailTypeRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM email_types"); err != nil {
		return fmt.Errorf("failed to clear email types: %w", err)
	}
	return nil
}
