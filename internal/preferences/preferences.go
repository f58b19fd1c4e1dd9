package preferences

import (
	"fmt"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
)

// DomainFrequency returns the combined frequency of the optional items in domain.
//
// A nil snapshot, an unknown domain, or a domain without optional items yields none.
func DomainFrequency(domain models.Domain, snapshot models.Snapshot, catalog models.Catalog) models.Aggregate {
	none := models.AggregateOf(models.FrequencyNone)
	if snapshot == nil || !domain.Valid() {
		return none
	}

	items := catalog.Optional(domain)
	if len(items) == 0 {
		return none
	}

	first, ok := snapshot[items[0].ID]
	if !ok {
		return none
	}

	for _, item := range items[1:] {
		if f, ok := snapshot[item.ID]; !ok || f != first {
			return models.AggregateMixed
		}
	}
	return models.AggregateOf(first)
}

// UpdatedDomainFrequency returns a snapshot with every item in domain moved to frequency.
//
// Required items keep their value when frequency is none. Items that do not support frequency get [Fallback].
// A domain with no items returns an equal copy of snapshot.
func UpdatedDomainFrequency(domain models.Domain, frequency models.Frequency, snapshot models.Snapshot, catalog models.Catalog) models.Snapshot {
	next := snapshot.Clone()
	for _, item := range catalog.ByDomain(domain) {
		if v, ok := domainValue(item, frequency); ok {
			next[item.ID] = v
		}
	}
	return next
}

// UpdatedDomainIDs lists the ids a bulk update of domain to frequency writes.
func UpdatedDomainIDs(domain models.Domain, frequency models.Frequency, catalog models.Catalog) []string {
	var ids []string
	for _, item := range catalog.ByDomain(domain) {
		if _, ok := domainValue(item, frequency); ok {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func domainValue(item models.EmailType, frequency models.Frequency) (models.Frequency, bool) {
	switch {
	case frequency == models.FrequencyNone && item.Required:
		return "", false
	case frequency == models.FrequencyNone:
		return models.FrequencyNone, true
	case item.Supports(frequency):
		return frequency, true
	default:
		return Fallback(item, frequency), true
	}
}

// Fallback picks the supported frequency nearest to requested.
//
// The search walks [models.DeliveryOrder] from requested toward less frequent, then back toward more frequent,
// and finally settles on the item's last listed frequency.
func Fallback(item models.EmailType, requested models.Frequency) models.Frequency {
	start := requested.Rank()
	if start >= 0 {
		for i := start; i < len(models.DeliveryOrder); i++ {
			if item.Supports(models.DeliveryOrder[i]) {
				return models.DeliveryOrder[i]
			}
		}
		for i := start - 1; i >= 0; i-- {
			if item.Supports(models.DeliveryOrder[i]) {
				return models.DeliveryOrder[i]
			}
		}
	}

	if len(item.Frequencies) == 0 {
		return models.FrequencyNone
	}
	return item.Frequencies[len(item.Frequencies)-1]
}

// UpdatePreference returns a snapshot with id set to frequency.
//
// Unknown ids and unchanged values return snapshot as is. Setting a required item to none fails with
// [shared.ErrRequiredFrequencyViolation]; a concrete frequency the item does not list fails with [shared.ErrUnsupportedFrequency].
func UpdatePreference(id string, frequency models.Frequency, snapshot models.Snapshot, catalog models.Catalog) (models.Snapshot, error) {
	item, ok := catalog.Find(id)
	if !ok {
		return snapshot, nil
	}

	if item.Required && frequency == models.FrequencyNone {
		return snapshot, fmt.Errorf("%w: %s cannot be unsubscribed", shared.ErrRequiredFrequencyViolation, item.Name)
	}

	if current, ok := snapshot[id]; ok && current == frequency {
		return snapshot, nil
	}

	if frequency != models.FrequencyNone && !item.Supports(frequency) {
		return snapshot, fmt.Errorf("%w: %s does not support %s", shared.ErrUnsupportedFrequency, item.Name, frequency)
	}

	return snapshot.With(id, frequency), nil
}

// ShowBulkControl reports whether domain warrants a service-wide control.
//
// One optional item is edited directly, so the control appears only with two or more.
func ShowBulkControl(domain models.Domain, catalog models.Catalog) bool {
	return len(catalog.Optional(domain)) > 1
}

// Diff lists ids whose value differs between before and after, in id order.
// Ids missing from before read as none.
func Diff(before, after models.Snapshot) []models.Change {
	var changes []models.Change
	for _, id := range after.IDs() {
		from, _ := before.Get(id)
		if to := after[id]; from != to {
			changes = append(changes, models.Change{ID: id, From: from, To: to})
		}
	}
	return changes
}

// Revert undoes the changes from prev to next in current, keeping any id that has moved on since.
func Revert(prev, next, current models.Snapshot) models.Snapshot {
	out := current.Clone()
	for _, c := range Diff(prev, next) {
		if f, _ := out.Get(c.ID); f != c.To {
			continue
		}
		if from, ok := prev[c.ID]; ok {
			out[c.ID] = from
		} else {
			delete(out, c.ID)
		}
	}
	return out
}
