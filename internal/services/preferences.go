package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API.
const DefaultBaseURL = "https://api.meetingbaas.com"

// PreferencesClient implements [PreferencesAPI] over HTTP.
type PreferencesClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOpts configures a [PreferencesClient].
type ClientOpts struct {
	BaseURL           string
	HTTPClient        *http.Client // usually from [NewHTTPClient]
	RequestsPerSecond float64      // <= 0 disables throttling
	Burst             int
}

// NewPreferencesClient creates a client for the email preferences endpoints.
func NewPreferencesClient(opts ClientOpts) *PreferencesClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		if opts.Burst <= 0 {
			opts.Burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}

	return &PreferencesClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
	}
}

type frequencyBody struct {
	Frequency models.Frequency `json:"frequency"`
}

type serviceBody struct {
	Frequency models.Frequency `json:"frequency"`
	Domain    models.Domain    `json:"domain"`
}

type batchItem struct {
	ID        string           `json:"id"`
	Frequency models.Frequency `json:"frequency"`
}

type batchBody struct {
	Preferences []batchItem `json:"preferences"`
}

type tokenBody struct {
	EmailType string `json:"email_type"`
	Token     string `json:"token"`
}

type statusResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// EmailTypes fetches GET /email/types.
func (c *PreferencesClient) EmailTypes(ctx context.Context) (models.Catalog, error) {
	var resp struct {
		Data models.Catalog `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/email/types", nil, &resp, false); err != nil {
		return nil, err
	}
	if err := resp.Data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: email types: %w", shared.ErrAPIRequest, err)
	}
	return resp.Data, nil
}

// Preferences fetches GET /email/preferences.
func (c *PreferencesClient) Preferences(ctx context.Context) (models.Snapshot, error) {
	var resp struct {
		Preferences models.Snapshot `json:"preferences"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/email/preferences", nil, &resp, false); err != nil {
		return nil, err
	}
	if resp.Preferences == nil {
		resp.Preferences = models.Snapshot{}
	}
	return resp.Preferences, nil
}

// UpdatePreference posts to /email/preferences/{id}.
func (c *PreferencesClient) UpdatePreference(ctx context.Context, id string, f models.Frequency) error {
	var resp statusResponse
	path := "/email/preferences/" + url.PathEscape(id)
	if err := c.doRequest(ctx, http.MethodPost, path, frequencyBody{Frequency: f}, &resp, false); err != nil {
		return err
	}
	return resp.check("update preference")
}

// UpdateService posts to /email/preferences/service/{domain}.
func (c *PreferencesClient) UpdateService(ctx context.Context, domain models.Domain, f models.Frequency) ([]string, error) {
	var resp struct {
		statusResponse
		UpdatedEmails []string `json:"updatedEmails"`
	}
	path := "/email/preferences/service/" + url.PathEscape(strings.ToLower(string(domain)))
	if err := c.doRequest(ctx, http.MethodPost, path, serviceBody{Frequency: f, Domain: domain}, &resp, false); err != nil {
		return nil, err
	}
	if err := resp.check("update service"); err != nil {
		return nil, err
	}
	return resp.UpdatedEmails, nil
}

// BatchUpdate posts to /email/preferences/batch. An empty change set sends nothing.
func (c *PreferencesClient) BatchUpdate(ctx context.Context, changes []models.Change) error {
	if len(changes) == 0 {
		return nil
	}

	body := batchBody{Preferences: make([]batchItem, 0, len(changes))}
	for _, ch := range changes {
		body.Preferences = append(body.Preferences, batchItem{ID: ch.ID, Frequency: ch.To})
	}

	var resp statusResponse
	if err := c.doRequest(ctx, http.MethodPost, "/email/preferences/batch", body, &resp, false); err != nil {
		return err
	}
	return resp.check("batch update")
}

// UnsubscribeWithToken posts to /email/preferences/unsubscribe.
func (c *PreferencesClient) UnsubscribeWithToken(ctx context.Context, id, token string) error {
	var resp statusResponse
	body := tokenBody{EmailType: id, Token: token}
	if err := c.doRequest(ctx, http.MethodPost, "/email/preferences/unsubscribe", body, &resp, true); err != nil {
		return err
	}
	if resp.Success != nil && !*resp.Success {
		return fmt.Errorf("%w: %s", shared.ErrInvalidOrExpiredToken, resp.text())
	}
	return nil
}

// ResendLatest posts to /email/{domain}/{id}.
func (c *PreferencesClient) ResendLatest(ctx context.Context, domain models.Domain, id string, f models.Frequency) error {
	var resp struct {
		statusResponse
		NextAvailableAt string `json:"nextAvailableAt"`
	}
	path := fmt.Sprintf("/email/%s/%s", url.PathEscape(strings.ToLower(string(domain))), url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodPost, path, frequencyBody{Frequency: f}, &resp, false); err != nil {
		return err
	}
	if resp.NextAvailableAt != "" && resp.Success != nil && !*resp.Success {
		b := errorBody{Message: resp.text(), NextAvailableAt: resp.NextAvailableAt}
		return &RateLimitedError{RetryAfter: retryAfter(b, http.Header{}, time.Now()), Message: b.Message}
	}
	return resp.check("resend")
}

func (r statusResponse) text() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

func (r statusResponse) check(op string) error {
	if r.Success != nil && !*r.Success {
		return fmt.Errorf("%w: %s: %s", shared.ErrAPIRequest, op, r.text())
	}
	return nil
}

// doRequest performs a throttled JSON request and decodes a 2xx body into result.
func (c *PreferencesClient) doRequest(ctx context.Context, method, endpoint string, body, result any, tokenAuth bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method+" "+endpoint, resp.StatusCode, resp.Header, data, tokenAuth)
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}
	return nil
}
