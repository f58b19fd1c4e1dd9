// Package models defines the email preference data model shared by the engine, the API client, and persistence.
//
// The package contains three groups of types:
//
// 1. Catalog types describing what can be subscribed to
//   - [Frequency] : delivery cadence, with [FrequencyNone] as the unsubscribed sentinel
//   - [Domain] : the closed set of email service domains
//   - [EmailType] : one subscribable email with its supported frequencies
//   - [Catalog] : the ordered list of email types
//
// 2. Preference state
//   - [Snapshot] : the user's chosen frequency per email type id
//   - [Aggregate] : a domain's combined frequency or [AggregateMixed]
//   - [Change] : a single id moving from one frequency to another
//
// 3. Persistent entities
//   - [ChangeRecord] : audit log row for an applied or rolled back change
//
// Persistent entities implement the Model interface. The Repository[T] interface defines standard CRUD operations for database access.
package models
