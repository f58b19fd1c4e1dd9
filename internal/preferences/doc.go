// Package preferences computes email preference snapshots.
//
// Every function here is pure: it reads a snapshot and a catalog and returns a new snapshot (or a derived value) without mutating its inputs.
// Callers persist results through [tasks.Optimistic] or [tasks.Pessimistic].
//
// Domain aggregation ([DomainFrequency]) folds only optional items; required items are reported individually.
// Bulk updates ([UpdatedDomainFrequency]) degrade each item to the nearest supported frequency, searching toward less frequent delivery first.
package preferences
