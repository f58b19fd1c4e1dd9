// package services defines the HTTP clients for the Meeting BaaS backend
package services

import (
	"context"
	"net/http"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"golang.org/x/oauth2"
)

// PreferencesAPI is the backend contract for email preferences.
type PreferencesAPI interface {
	// EmailTypes fetches the catalog of subscribable email types.
	EmailTypes(ctx context.Context) (models.Catalog, error)

	// Preferences fetches the authenticated user's snapshot.
	Preferences(ctx context.Context) (models.Snapshot, error)

	// UpdatePreference persists a single email type's frequency.
	UpdatePreference(ctx context.Context, id string, f models.Frequency) error

	// UpdateService persists a domain-wide frequency and returns the ids the backend changed.
	UpdateService(ctx context.Context, domain models.Domain, f models.Frequency) ([]string, error)

	// BatchUpdate persists several changes in one request.
	BatchUpdate(ctx context.Context, changes []models.Change) error

	// UnsubscribeWithToken unsubscribes id using the token from an email link.
	UnsubscribeWithToken(ctx context.Context, id, token string) error

	// ResendLatest asks the backend to send the latest issue of id again.
	ResendLatest(ctx context.Context, domain models.Domain, id string, f models.Frequency) error
}

// NewHTTPClient returns a client that attaches token as a bearer credential.
//
// base supplies the transport; nil uses [http.DefaultClient]. An empty token returns an unauthenticated client.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}

	if token == "" {
		return &http.Client{Transport: base.Transport, Timeout: timeout}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	client.Timeout = timeout
	return client
}
