// Package server exposes the email preference pages over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [LoggingMiddleware] and [RecoveryMiddleware] are registered by `baas serve`.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Unsubscribe Links
//
// Emails carry links of the form
//
//	/email-preferences/{domain}?unsubscribe={id}&token={token}
//
// [UnsubscribeHandler] turns such a request into a pending confirmation on an
// unsubscribe.Machine and renders a page with confirm and cancel buttons.
// The buttons post the request id back so a stale page cannot confirm a newer request:
//
//	POST /email-preferences/unsubscribe/confirm
//	POST /email-preferences/unsubscribe/cancel
//
// Without the query parameters the page lists the domain's current preferences.
// Every confirmation outcome is also published on [UnsubscribeHandler.Results].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
