package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meetingbaas/settings/internal/shared"
)

// Frequency is how often an email is delivered.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyNone    Frequency = "none" // unsubscribed
)

// DeliveryOrder lists the concrete frequencies from most to least frequent.
var DeliveryOrder = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

// ParseFrequency normalises s to a [Frequency].
//
// Capitalised spellings and "never" are accepted as aliases.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "none", "never":
		return FrequencyNone, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidFrequency, s)
	}
}

// Valid reports whether f is one of the four known values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyNone:
		return true
	}
	return false
}

// Rank returns the position of f in [DeliveryOrder], or -1 for none and unknown values.
func (f Frequency) Rank() int {
	for i, v := range DeliveryOrder {
		if v == f {
			return i
		}
	}
	return -1
}

// Label returns the capitalised display form ("Never" for none).
func (f Frequency) Label() string {
	switch f {
	case FrequencyDaily:
		return "Daily"
	case FrequencyWeekly:
		return "Weekly"
	case FrequencyMonthly:
		return "Monthly"
	case FrequencyNone:
		return "Never"
	}
	return string(f)
}

func (f Frequency) String() string { return string(f) }

func (f *Frequency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFrequency, err)
	}
	parsed, err := ParseFrequency(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
