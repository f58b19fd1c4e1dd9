package models

import (
	"maps"
	"slices"
)

// Snapshot maps email type ids to the user's chosen frequency.
//
// Snapshots are treated as immutable; use [Snapshot.With] or [Snapshot.Clone] to derive new ones.
type Snapshot map[string]Frequency

// Get returns the frequency for id. Missing ids read as [FrequencyNone].
func (s Snapshot) Get(id string) (Frequency, bool) {
	f, ok := s[id]
	if !ok {
		return FrequencyNone, false
	}
	return f, true
}

// Clone returns a copy. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	maps.Copy(out, s)
	return out
}

// With returns a copy with id set to f.
func (s Snapshot) With(id string, f Frequency) Snapshot {
	out := s.Clone()
	out[id] = f
	return out
}

// Equal reports whether both snapshots hold the same entries.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s, other)
}

// IDs returns the snapshot keys sorted.
func (s Snapshot) IDs() []string {
	return slices.Sorted(maps.Keys(s))
}

// Aggregate is a domain's combined frequency: a concrete [Frequency] or [AggregateMixed].
type Aggregate string

// AggregateMixed means the domain's optional items disagree.
const AggregateMixed Aggregate = "mixed"

// AggregateOf lifts a frequency into an aggregate.
func AggregateOf(f Frequency) Aggregate { return Aggregate(f) }

// IsMixed reports whether the items disagree.
func (a Aggregate) IsMixed() bool { return a == AggregateMixed }

// Frequency returns the shared frequency, or false when mixed.
func (a Aggregate) Frequency() (Frequency, bool) {
	if a.IsMixed() {
		return "", false
	}
	return Frequency(a), true
}

// Label returns the display form.
func (a Aggregate) Label() string {
	if a.IsMixed() {
		return "Mixed"
	}
	return Frequency(a).Label()
}

func (a Aggregate) String() string { return string(a) }

// Change is one id moving between frequencies.
type Change struct {
	ID   string    `json:"id"`
	From Frequency `json:"from"`
	To   Frequency `json:"frequency"`
}
