package models

import (
	"fmt"
	"slices"

	"github.com/meetingbaas/settings/internal/shared"
)

// Metadata carries optional per-type capabilities reported by the backend.
type Metadata struct {
	CanResend     bool `json:"canResend,omitempty"`
	SupportsBatch bool `json:"supportsBatch,omitempty"`
	Deprecated    bool `json:"deprecated,omitempty"`
}

// EmailType is one subscribable email.
//
// Frequencies is non-empty, ordered, and never contains [FrequencyNone].
type EmailType struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Domain      Domain      `json:"domain"`
	Frequencies []Frequency `json:"frequencies"`
	Required    bool        `json:"required"`
	Metadata    *Metadata   `json:"metadata,omitempty"`
}

// Validate checks the catalog invariants for a single type.
func (e EmailType) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: email type id is empty", shared.ErrInvalidEmailType)
	}
	if !e.Domain.Valid() {
		return fmt.Errorf("%w: %s has domain %q", shared.ErrInvalidEmailType, e.ID, e.Domain)
	}
	if len(e.Frequencies) == 0 {
		return fmt.Errorf("%w: %s supports no frequencies", shared.ErrInvalidEmailType, e.ID)
	}

	seen := make(map[Frequency]bool, len(e.Frequencies))
	for _, f := range e.Frequencies {
		if f.Rank() < 0 {
			return fmt.Errorf("%w: %s lists frequency %q", shared.ErrInvalidEmailType, e.ID, f)
		}
		if seen[f] {
			return fmt.Errorf("%w: %s lists %q twice", shared.ErrInvalidEmailType, e.ID, f)
		}
		seen[f] = true
	}
	return nil
}

// Supports reports whether f is one of the type's concrete frequencies.
func (e EmailType) Supports(f Frequency) bool {
	return slices.Contains(e.Frequencies, f)
}

// CanResend reports whether the backend allows resending the latest issue.
func (e EmailType) CanResend() bool {
	return e.Metadata != nil && e.Metadata.CanResend
}

// Catalog is the ordered list of email types.
type Catalog []EmailType

// Validate checks every type and that ids are unique.
func (c Catalog) Validate() error {
	ids := make(map[string]bool, len(c))
	for _, e := range c {
		if err := e.Validate(); err != nil {
			return err
		}
		if ids[e.ID] {
			return fmt.Errorf("%w: duplicate id %s", shared.ErrInvalidEmailType, e.ID)
		}
		ids[e.ID] = true
	}
	return nil
}

// Find returns the type with the given id.
func (c Catalog) Find(id string) (EmailType, bool) {
	for _, e := range c {
		if e.ID == id {
			return e, true
		}
	}
	return EmailType{}, false
}

// ByDomain returns the types in d, preserving catalog order.
func (c Catalog) ByDomain(d Domain) []EmailType {
	var out []EmailType
	for _, e := range c {
		if e.Domain == d {
			out = append(out, e)
		}
	}
	return out
}

// Optional returns the non-required types in d.
func (c Catalog) Optional(d Domain) []EmailType {
	var out []EmailType
	for _, e := range c {
		if e.Domain == d && !e.Required {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, e := range c {
		e.Frequencies = slices.Clone(e.Frequencies)
		if e.Metadata != nil {
			m := *e.Metadata
			e.Metadata = &m
		}
		out[i] = e
	}
	return out
}
