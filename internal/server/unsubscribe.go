package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/preferences"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/meetingbaas/settings/internal/unsubscribe"
)

const (
	preferencesPrefix = "/email-preferences/"
	confirmPath       = "/email-preferences/unsubscribe/confirm"
	cancelPath        = "/email-preferences/unsubscribe/cancel"
)

// PreferenceSource is the read side of the preference engine.
type PreferenceSource interface {
	Catalog() models.Catalog
	Snapshot() models.Snapshot
}

// UnsubscribeResult is the outcome of one confirmed or cancelled request.
type UnsubscribeResult struct {
	Target    unsubscribe.Target
	Cancelled bool
	Err       error
}

// UnsubscribeHandler serves unsubscribe links and the domain preference pages.
// Implements the Handler interface for registration with a Router.
type UnsubscribeHandler struct {
	machine *unsubscribe.Machine
	source  PreferenceSource
	logger  *log.Logger
	timeout time.Duration

	results chan UnsubscribeResult
	once    sync.Once
	mu      sync.Mutex
	closed  bool
}

// NewUnsubscribeHandler creates a handler driving machine. Results are buffered; when the buffer is full they are dropped.
func NewUnsubscribeHandler(machine *unsubscribe.Machine, source PreferenceSource, logger *log.Logger) *UnsubscribeHandler {
	return &UnsubscribeHandler{
		machine: machine,
		source:  source,
		logger:  logger,
		timeout: 30 * time.Second,
		results: make(chan UnsubscribeResult, 16),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *UnsubscribeHandler) Routes() []string {
	return []string{preferencesPrefix, confirmPath, cancelPath}
}

// ServeHTTP dispatches on path and method.
func (h *UnsubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case confirmPath:
		h.requirePost(w, r, h.confirm)
	case cancelPath:
		h.requirePost(w, r, h.cancel)
	default:
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.show(w, r)
	}
}

// Results returns the channel of confirmation outcomes.
func (h *UnsubscribeHandler) Results() <-chan UnsubscribeResult {
	return h.results
}

// Close closes the results channel. Later outcomes are discarded.
func (h *UnsubscribeHandler) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		close(h.results)
	})
}

func (h *UnsubscribeHandler) send(result UnsubscribeResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.results <- result:
	default:
		h.logger.Warn("unsubscribe result dropped", "request_id", result.Target.RequestID)
	}
}

func (h *UnsubscribeHandler) requirePost(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next(w, r)
}

func (h *UnsubscribeHandler) show(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, preferencesPrefix), "/")
	domain, err := models.ParseDomain(name)
	if err != nil {
		h.render(w, http.StatusNotFound, page{Title: "Email preferences", Error: "Invalid email preferences category"})
		return
	}

	q := r.URL.Query()
	id, token := q.Get("unsubscribe"), q.Get("token")
	// Account emails are never unsubscribed from a link, so the account page ignores one.
	if id == "" || token == "" || domain == models.DomainAccount {
		h.render(w, http.StatusOK, h.domainPage(domain))
		return
	}

	target, err := h.machine.RequestToken(id, token)
	switch {
	case err == nil:
		h.logger.Info("unsubscribe requested", "request_id", target.RequestID, "id", target.ID)
		h.render(w, http.StatusOK, page{Title: "Unsubscribe", Domain: target.Domain.Config(), Target: &target})
	case errors.Is(err, shared.ErrUnknownEmailType), errors.Is(err, shared.ErrRequiredFrequencyViolation):
		h.logger.Warn("unsubscribe link rejected", "id", id, "error", err)
		p := h.domainPage(domain)
		p.Error = errorMessage(err)
		h.render(w, http.StatusOK, p)
	default:
		h.fail(w, err)
	}
}

func (h *UnsubscribeHandler) confirm(w http.ResponseWriter, r *http.Request) {
	if !h.matchesPending(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	target, err := h.machine.Confirm(ctx)
	h.send(UnsubscribeResult{Target: target, Err: err})

	if err != nil {
		h.logger.Error("unsubscribe failed", "request_id", target.RequestID, "id", target.ID, "error", err)
		p := h.domainPage(target.Domain)
		p.Error = errorMessage(err)
		h.render(w, statusFor(err), p)
		return
	}

	h.logger.Info("unsubscribed", "request_id", target.RequestID, "id", target.ID)
	p := h.domainPage(target.Domain)
	p.Notice = "You have been unsubscribed from " + target.Label + "."
	h.render(w, http.StatusOK, p)
}

func (h *UnsubscribeHandler) cancel(w http.ResponseWriter, r *http.Request) {
	if !h.matchesPending(w, r) {
		return
	}

	target, _ := h.machine.Pending()
	h.machine.Cancel()
	h.send(UnsubscribeResult{Target: target, Cancelled: true})

	h.render(w, http.StatusOK, h.domainPage(target.Domain))
}

// matchesPending writes a 409 when the posted request id is not the pending one.
func (h *UnsubscribeHandler) matchesPending(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return false
	}

	pending, ok := h.machine.Pending()
	if !ok || pending.RequestID != r.PostForm.Get("request_id") {
		h.render(w, http.StatusConflict, page{Title: "Unsubscribe", Error: "This unsubscribe request is no longer pending."})
		return false
	}
	return true
}

func (h *UnsubscribeHandler) domainPage(domain models.Domain) page {
	p := page{Title: "Email preferences", Domain: domain.Config()}
	if !domain.Valid() {
		return p
	}

	catalog, snapshot := h.source.Catalog(), h.source.Snapshot()
	if preferences.ShowBulkControl(domain, catalog) {
		p.Aggregate = preferences.DomainFrequency(domain, snapshot, catalog).Label()
	}
	for _, item := range catalog.ByDomain(domain) {
		f, _ := snapshot.Get(item.ID)
		p.Items = append(p.Items, pageItem{Name: item.Name, Description: item.Description, Frequency: f.Label(), Required: item.Required})
	}
	return p
}

func (h *UnsubscribeHandler) render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

func (h *UnsubscribeHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "error", err)
	h.render(w, statusFor(err), page{Title: "Email preferences", Error: errorMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidOrExpiredToken):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrUnknownEmailType), errors.Is(err, shared.ErrInvalidDomain):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrRequiredFrequencyViolation):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidOrExpiredToken):
		return "This unsubscribe link is invalid or has expired."
	case errors.Is(err, shared.ErrRateLimited):
		return "Too many requests. Please try again later."
	case errors.Is(err, shared.ErrRequiredFrequencyViolation):
		return "This email is required and cannot be unsubscribed."
	case errors.Is(err, shared.ErrUnknownEmailType):
		return "This unsubscribe link refers to an email we no longer send."
	default:
		return "We could not update your preferences. Please try again."
	}
}
