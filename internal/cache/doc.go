// Package cache keeps the email type catalog close at hand.
//
// [CatalogCache] sits in front of the backend's catalog endpoint and
// reloads it through a [Loader] once the stored copy is older than the TTL.
// Where the copy lives is up to the [Store]:
//
//   - [MemoryStore] : process-local, lost on exit
//   - [SQLiteStore] : the local database via repositories.EmailTypeRepository
//   - [RedisStore] : shared between several `baas serve` instances
package cache
