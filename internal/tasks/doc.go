// Package tasks applies email preference changes with optimistic local state and real-time progress reporting.
//
// # Snapshot Store
//
// [Store] holds the latest value with a version and an epoch. Two helpers enforce the write discipline once:
//
//  1. [Optimistic] : write locally, persist, roll back on failure
//     - Rolls back only when no later write happened
//     - Leaves the store alone when it was replaced or the context was cancelled
//
//  2. [Pessimistic] : persist first, then apply to the latest value
//     - Used for unsubscribe links, where the token must be accepted before anything changes locally
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [PreferenceEngine] binds a store to:
//   - [services.PreferencesAPI] : the backend email preferences API
//   - [CatalogSource] : cached email types (cache.CatalogCache)
//   - [ChangeLog] and [SnapshotCache] : optional persistence (repositories)
//
// Audit and snapshot writes are best effort; failures are logged and never fail the user's change.
package tasks
