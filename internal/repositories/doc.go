// Package repositories persists local state in SQLite.
//
//   - [EmailTypeRepository] : the cached catalog, one row per email type with frequencies stored as JSON
//   - [SnapshotRepository] : the last confirmed preference snapshot per account
//   - [ChangeRepository] : audit log of changes, implementing models.Repository[*models.ChangeRecord]
//
// Schemas live in the embedded migrations of the shared package.
package repositories
