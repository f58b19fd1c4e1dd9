package tasks

import (
	"fmt"

	"github.com/meetingbaas/settings/internal/models"
)

// ProgressUpdate represents a progress event during a preference operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchCatalog Phase = iota
	FetchPreferences
	ApplyLocal
	PersistRemote
	Confirm
	Rollback
	Resend
)

func (p Phase) String() string {
	switch p {
	case FetchCatalog:
		return "fetch_catalog"
	case FetchPreferences:
		return "fetch_preferences"
	case ApplyLocal:
		return "apply_local"
	case PersistRemote:
		return "persist_remote"
	case Confirm:
		return "confirm"
	case Rollback:
		return "rollback"
	case Resend:
		return "resend"
	default:
		return ""
	}
}

func fetchCatalogUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchCatalog, Step: 1, Total: 2, Message: "Fetching email types..."}
}

func fetchPreferencesUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchPreferences, Step: 2, Total: 2, Message: "Fetching preferences..."}
}

func applyLocalUpdate(changes []models.Change) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyLocal,
		Step:    1,
		Total:   3,
		Message: fmt.Sprintf("Applying %d change(s)...", len(changes)),
		Data:    changes,
	}
}

func persistUpdate(label string) ProgressUpdate {
	return ProgressUpdate{Phase: PersistRemote, Step: 2, Total: 3, Message: fmt.Sprintf("Saving %s...", label)}
}

func outcomeUpdate(label string, outcome Outcome, err error) ProgressUpdate {
	switch outcome {
	case Confirmed:
		return ProgressUpdate{Phase: Confirm, Step: 3, Total: 3, Message: fmt.Sprintf("Saved %s", label)}
	case RolledBack:
		return ProgressUpdate{Phase: Rollback, Step: 3, Total: 3, Message: fmt.Sprintf("Could not save %s, reverted: %v", label, err), Data: err}
	default:
		return ProgressUpdate{Phase: Confirm, Step: 3, Total: 3, Message: fmt.Sprintf("%s: %s", label, outcome), Data: err}
	}
}

func resendUpdate(step, total int, id string, err error) ProgressUpdate {
	msg := fmt.Sprintf("Resent latest %s", id)
	if err != nil {
		msg = fmt.Sprintf("Resend %s failed: %v", id, err)
	}
	return ProgressUpdate{Phase: Resend, Step: step, Total: total, Message: msg, Data: err}
}
