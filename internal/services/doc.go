// Package services implements HTTP clients for the Meeting BaaS backend.
//
// # Preferences API
//
// [PreferencesAPI] is the contract the preference engine depends on. [PreferencesClient] implements it against:
//
//	GET  /email/types                      catalog, wrapped in {"data": [...]}
//	GET  /email/preferences                snapshot, wrapped in {"preferences": {...}}
//	POST /email/preferences/{id}           {"frequency"}
//	POST /email/preferences/service/{dom}  {"frequency", "domain"} -> {"updatedEmails"}
//	POST /email/preferences/batch          {"preferences": [{"id", "frequency"}]}
//	POST /email/preferences/unsubscribe    {"email_type", "token"}
//	POST /email/{domain}/{id}              {"frequency"} resend latest
//
// Requests are throttled client side with a [rate.Limiter] and never retried.
//
// # Authentication
//
// [NewHTTPClient] wraps a base client with an [oauth2] static token source so every request carries the bearer token.
//
// # Raw Access
//
// [APIService] performs raw GET/POST calls for the "baas api" debugging commands.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrRateLimited] : 429 or a resend refused with nextAvailableAt, as [*RateLimitedError]
//   - [shared.ErrInvalidOrExpiredToken] : unsubscribe token rejected
//   - [shared.ErrNotAuthenticated] : bearer token missing or rejected
//   - [shared.ErrServiceUnavailable] : 502/503
//   - [shared.ErrAPIRequest] : any other failure
package services
