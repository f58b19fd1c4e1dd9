package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
	tu "github.com/meetingbaas/settings/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*PreferencesClient, *[]recorded) {
	t.Helper()
	var calls []recorded

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	httpClient := NewHTTPClient(context.Background(), "secret-token", 5*time.Second, nil)
	client := NewPreferencesClient(ClientOpts{BaseURL: server.URL, HTTPClient: httpClient})
	return client, &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestPreferencesClient(t *testing.T) {
	ctx := context.Background()

	t.Run("EmailTypes decodes data envelope", func(t *testing.T) {
		client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"data": tu.Catalog()})
		})

		catalog, err := client.EmailTypes(ctx)
		require.NoError(t, err)
		assert.Len(t, catalog, 8)
		assert.Equal(t, "Bearer secret-token", (*calls)[0].auth)
		assert.Equal(t, "/email/types", (*calls)[0].path)
	})

	t.Run("EmailTypes rejects invalid catalog", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":"x","domain":"reports","frequencies":[]}]}`))
		})

		_, err := client.EmailTypes(ctx)
		assert.ErrorIs(t, err, shared.ErrInvalidEmailType)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("Preferences normalises legacy casing", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"preferences":{"usage-reports":"Weekly","company-news":"Never"}}`))
		})

		snap, err := client.Preferences(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Snapshot{"usage-reports": models.FrequencyWeekly, "company-news": models.FrequencyNone}, snap)
	})

	t.Run("Preferences without body is empty", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})

		snap, err := client.Preferences(ctx)
		require.NoError(t, err)
		assert.NotNil(t, snap)
		assert.Empty(t, snap)
	})

	t.Run("UpdatePreference", func(t *testing.T) {
		client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})

		require.NoError(t, client.UpdatePreference(ctx, "usage-reports", models.FrequencyDaily))
		assert.Equal(t, http.MethodPost, (*calls)[0].method)
		assert.Equal(t, "/email/preferences/usage-reports", (*calls)[0].path)
		assert.Equal(t, "daily", (*calls)[0].body["frequency"])
	})

	t.Run("UpdatePreference success false", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "locked"})
		})

		err := client.UpdatePreference(ctx, "usage-reports", models.FrequencyDaily)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.Contains(t, err.Error(), "locked")
	})

	t.Run("UpdateService returns updated ids", func(t *testing.T) {
		client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "updatedEmails": []string{"api-changes", "developer-resources"}})
		})

		ids, err := client.UpdateService(ctx, models.DomainDevelopers, models.FrequencyNone)
		require.NoError(t, err)
		assert.Equal(t, []string{"api-changes", "developer-resources"}, ids)
		assert.Equal(t, "/email/preferences/service/developers", (*calls)[0].path)
		assert.Equal(t, "none", (*calls)[0].body["frequency"])
	})

	t.Run("BatchUpdate", func(t *testing.T) {
		client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})

		require.NoError(t, client.BatchUpdate(ctx, nil))
		assert.Empty(t, *calls, "empty batch sends nothing")

		err := client.BatchUpdate(ctx, []models.Change{{ID: "a", From: models.FrequencyDaily, To: models.FrequencyWeekly}})
		require.NoError(t, err)
		prefs := (*calls)[0].body["preferences"].([]any)
		assert.Equal(t, map[string]any{"id": "a", "frequency": "weekly"}, prefs[0])
	})

	t.Run("UnsubscribeWithToken", func(t *testing.T) {
		client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})

		require.NoError(t, client.UnsubscribeWithToken(ctx, "api-changes", "tok"))
		assert.Equal(t, "/email/preferences/unsubscribe", (*calls)[0].path)
		assert.Equal(t, "api-changes", (*calls)[0].body["email_type"])
		assert.Equal(t, "tok", (*calls)[0].body["token"])
	})

	t.Run("UnsubscribeWithToken rejected token", func(t *testing.T) {
		for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusGone} {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, status, map[string]any{"error": "token expired"})
			})

			err := client.UnsubscribeWithToken(ctx, "api-changes", "old")
			assert.ErrorIs(t, err, shared.ErrInvalidOrExpiredToken, "status %d", status)
		}
	})

	t.Run("ResendLatest", func(t *testing.T) {
		client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "queued"})
		})

		require.NoError(t, client.ResendLatest(ctx, models.DomainReports, "usage-reports", models.FrequencyMonthly))
		assert.Equal(t, "/email/reports/usage-reports", (*calls)[0].path)
		assert.Equal(t, "monthly", (*calls)[0].body["frequency"])
	})

	t.Run("ResendLatest rate limited with nextAvailableAt", func(t *testing.T) {
		next := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "slow down", "nextAvailableAt": next.Format(time.RFC3339)})
		})

		err := client.ResendLatest(ctx, models.DomainReports, "usage-reports", models.FrequencyMonthly)
		require.ErrorIs(t, err, shared.ErrRateLimited)

		var rl *RateLimitedError
		require.True(t, errors.As(err, &rl))
		assert.True(t, rl.RetryAfter.Equal(next))
		assert.Contains(t, err.Error(), "2030-01-02T03:04:05Z")
	})

	t.Run("ResendLatest success false with nextAvailableAt", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "already sent", "nextAvailableAt": "2030-01-01T00:00:00Z"})
		})

		err := client.ResendLatest(ctx, models.DomainReports, "usage-reports", models.FrequencyMonthly)
		assert.ErrorIs(t, err, shared.ErrRateLimited)
	})

	t.Run("Retry-After header in seconds", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		before := time.Now()
		err := client.UpdatePreference(ctx, "usage-reports", models.FrequencyDaily)

		var rl *RateLimitedError
		require.True(t, errors.As(err, &rl))
		assert.WithinDuration(t, before.Add(120*time.Second), rl.RetryAfter, 5*time.Second)
	})

	t.Run("status mapping", func(t *testing.T) {
		tc := []struct {
			status int
			want   error
		}{
			{status: http.StatusUnauthorized, want: shared.ErrNotAuthenticated},
			{status: http.StatusServiceUnavailable, want: shared.ErrServiceUnavailable},
			{status: http.StatusInternalServerError, want: shared.ErrAPIRequest},
		}

		for _, tt := range tc {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{"detail": "nope"})
			})

			_, err := client.Preferences(ctx)
			assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
			assert.Contains(t, err.Error(), "nope")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		client := NewPreferencesClient(ClientOpts{
			BaseURL:    "http://example.com",
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
		})

		_, err := client.Preferences(ctx)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("malformed body", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"preferences":{"a":"hourly"}}`))
		})

		_, err := client.Preferences(ctx)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("throttled requests honour context", func(t *testing.T) {
		client := NewPreferencesClient(ClientOpts{BaseURL: "http://example.com", RequestsPerSecond: 0.001, Burst: 1})
		client.limiter.Allow()

		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := client.Preferences(cctx)
		assert.Error(t, err)
	})
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("without token sends no authorization", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); auth != "" {
				t.Errorf("expected no authorization header, got %s", auth)
			}
		}))
		defer server.Close()

		client := NewHTTPClient(context.Background(), "", time.Second, nil)
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, time.Second, client.Timeout)
	})
}
