// package models defines the data model for email preference management
package models

import (
	"fmt"
	"time"

	"github.com/meetingbaas/settings/internal/shared"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// ChangeSource names the operation that produced a change.
type ChangeSource string

const (
	SourceItem    ChangeSource = "item"    // single email type update
	SourceService ChangeSource = "service" // domain-wide update
	SourceToken   ChangeSource = "token"   // unsubscribe link from an email
	SourceBatch   ChangeSource = "batch"   // batch endpoint
)

// ChangeStatus records whether an optimistic change stuck.
type ChangeStatus string

const (
	StatusApplied    ChangeStatus = "applied"
	StatusRolledBack ChangeStatus = "rolled_back"
)

// ChangeRecord is one row of the local preference audit log.
type ChangeRecord struct {
	RecordID    string       `json:"id"`
	Sequence    int64        `json:"sequence"`
	Account     string       `json:"account"`
	EmailTypeID string       `json:"email_type_id"`
	Previous    Frequency    `json:"previous"`
	Next        Frequency    `json:"next"`
	Source      ChangeSource `json:"source"`
	Status      ChangeStatus `json:"status"`
	Created     time.Time    `json:"created_at"`
}

func (c *ChangeRecord) ID() string           { return c.RecordID }
func (c *ChangeRecord) CreatedAt() time.Time { return c.Created }
func (c *ChangeRecord) UpdatedAt() time.Time { return c.Created }

// Validate checks required fields and enum values.
func (c *ChangeRecord) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("%w: change record requires an account", shared.ErrInvalidInput)
	}
	if c.EmailTypeID == "" {
		return fmt.Errorf("%w: change record requires an email type id", shared.ErrInvalidInput)
	}
	if !c.Previous.Valid() || !c.Next.Valid() {
		return fmt.Errorf("%w: %q -> %q", shared.ErrInvalidFrequency, c.Previous, c.Next)
	}
	switch c.Source {
	case SourceItem, SourceService, SourceToken, SourceBatch:
	default:
		return fmt.Errorf("%w: unknown change source %q", shared.ErrInvalidInput, c.Source)
	}
	switch c.Status {
	case StatusApplied, StatusRolledBack:
	default:
		return fmt.Errorf("%w: unknown change status %q", shared.ErrInvalidInput, c.Status)
	}
	return nil
}

// NewChangeRecords builds applied audit rows for a set of changes.
func NewChangeRecords(account string, source ChangeSource, changes []Change) []*ChangeRecord {
	now := time.Now().UTC()
	records := make([]*ChangeRecord, 0, len(changes))
	for _, c := range changes {
		records = append(records, &ChangeRecord{
			RecordID:    shared.GenerateID(),
			Account:     account,
			EmailTypeID: c.ID,
			Previous:    c.From,
			Next:        c.To,
			Source:      source,
			Status:      StatusApplied,
			Created:     now,
		})
	}
	return records
}
