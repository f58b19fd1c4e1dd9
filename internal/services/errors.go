package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/meetingbaas/settings/internal/shared"
)

// RateLimitedError is returned when the backend refuses a request until RetryAfter.
type RateLimitedError struct {
	RetryAfter time.Time
	Message    string
}

func (e *RateLimitedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "too many requests"
	}
	if e.RetryAfter.IsZero() {
		return fmt.Sprintf("%v: %s", shared.ErrRateLimited, msg)
	}
	return fmt.Sprintf("%v: %s (next available at %s)", shared.ErrRateLimited, msg, e.RetryAfter.Format(time.RFC3339))
}

// Unwrap lets errors.Is match [shared.ErrRateLimited].
func (e *RateLimitedError) Unwrap() error { return shared.ErrRateLimited }

// errorBody covers the error shapes the backend returns.
type errorBody struct {
	Success         *bool  `json:"success"`
	Error           string `json:"error"`
	Message         string `json:"message"`
	Detail          string `json:"detail"`
	NextAvailableAt string `json:"nextAvailableAt"`
}

func (b errorBody) text() string {
	switch {
	case b.Error != "":
		return b.Error
	case b.Message != "":
		return b.Message
	default:
		return b.Detail
	}
}

func parseErrorBody(body []byte) errorBody {
	var b errorBody
	_ = json.Unmarshal(body, &b)
	return b
}

// retryAfter reads nextAvailableAt from the body, falling back to the Retry-After header.
func retryAfter(b errorBody, h http.Header, now time.Time) time.Time {
	if b.NextAvailableAt != "" {
		if t, err := time.Parse(time.RFC3339, b.NextAvailableAt); err == nil {
			return t
		}
	}

	v := h.Get("Retry-After")
	if v == "" {
		return time.Time{}
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return now.Add(time.Duration(secs) * time.Second)
	}
	if t, err := http.ParseTime(v); err == nil {
		return t
	}
	return time.Time{}
}

// statusError maps a non-2xx response to a typed error.
func statusError(op string, status int, header http.Header, body []byte, tokenAuth bool) error {
	b := parseErrorBody(body)
	msg := b.text()
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: retryAfter(b, header, time.Now()), Message: msg}
	case tokenAuth && (status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusGone):
		return fmt.Errorf("%w: %s", shared.ErrInvalidOrExpiredToken, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %s", shared.ErrNotAuthenticated, op, msg)
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		return fmt.Errorf("%w: %s: %s", shared.ErrServiceUnavailable, op, msg)
	default:
		return fmt.Errorf("%w: %s: status %d: %s", shared.ErrAPIRequest, op, status, msg)
	}
}
