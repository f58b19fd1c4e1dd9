// package tasks applies email preference changes against the backend with optimistic local state.
//
// The core abstraction is PreferenceEngine, which owns the user's preference snapshot and persists every change through the API.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/preferences"
	"github.com/meetingbaas/settings/internal/services"
	"github.com/meetingbaas/settings/internal/shared"
)

// CatalogSource supplies the email type catalog, typically a cache in front of the API.
type CatalogSource interface {
	Get(ctx context.Context) (models.Catalog, error)
	Invalidate(ctx context.Context) error
}

// ChangeLog records applied and rolled back changes.
type ChangeLog interface {
	Create(record *models.ChangeRecord) error
}

// SnapshotCache keeps the last confirmed snapshot for offline reads.
type SnapshotCache interface {
	Save(account string, snapshot models.Snapshot) error
}

// EngineOpts configures optional collaborators of a [PreferenceEngine].
type EngineOpts struct {
	Account   string
	Changes   ChangeLog
	Snapshots SnapshotCache
	Logger    *log.Logger
	Progress  chan<- ProgressUpdate
}

// PreferenceEngine owns the preference snapshot for one account.
//
// It implements unsubscribe.Applier.
type PreferenceEngine struct {
	api     services.PreferencesAPI
	catalog CatalogSource
	store   *Store[models.Snapshot]
	opts    EngineOpts

	mu    sync.RWMutex
	types models.Catalog
}

// NewPreferenceEngine creates an engine with an empty snapshot. Call [PreferenceEngine.Load] before use.
func NewPreferenceEngine(api services.PreferencesAPI, catalog CatalogSource, opts EngineOpts) *PreferenceEngine {
	if opts.Account == "" {
		opts.Account = "default"
	}
	return &PreferenceEngine{
		api:     api,
		catalog: catalog,
		store:   NewStore(models.Snapshot{}, models.Snapshot.Clone).WithRevert(preferences.Revert),
		opts:    opts,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PreferenceEngine) sendProgress(update ProgressUpdate) {
	if e.opts.Progress == nil {
		return
	}
	select {
	case e.opts.Progress <- update:
	default:
	}
}

// Load fetches the catalog and the current preferences and replaces the local snapshot.
func (e *PreferenceEngine) Load(ctx context.Context) error {
	e.sendProgress(fetchCatalogUpdate())
	catalog, err := e.catalog.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load email types: %w", err)
	}

	e.sendProgress(fetchPreferencesUpdate())
	snapshot, err := e.api.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	e.mu.Lock()
	e.types = catalog
	e.mu.Unlock()

	e.store.Replace(snapshot)
	e.saveSnapshot(snapshot)
	return nil
}

// Refresh drops the cached catalog and reloads everything.
func (e *PreferenceEngine) Refresh(ctx context.Context) error {
	if err := e.catalog.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to invalidate catalog: %w", err)
	}
	return e.Load(ctx)
}

// Catalog returns the loaded email types.
func (e *PreferenceEngine) Catalog() models.Catalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.types
}

// Snapshot returns a copy of the current preferences.
func (e *PreferenceEngine) Snapshot() models.Snapshot {
	return e.store.Get()
}

// DomainFrequency returns the aggregate frequency of domain in the current snapshot.
func (e *PreferenceEngine) DomainFrequency(domain models.Domain) models.Aggregate {
	return preferences.DomainFrequency(domain, e.store.Get(), e.Catalog())
}

// SetFrequency changes one email type and persists it.
func (e *PreferenceEngine) SetFrequency(ctx context.Context, id string, f models.Frequency) error {
	catalog := e.Catalog()
	if _, ok := catalog.Find(id); !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownEmailType, id)
	}

	transform := func(s models.Snapshot) (models.Snapshot, error) {
		return preferences.UpdatePreference(id, f, s, catalog)
	}
	persist := func(ctx context.Context, _, _ models.Snapshot) error {
		return e.api.UpdatePreference(ctx, id, f)
	}
	return e.apply(ctx, id, models.SourceItem, false, transform, persist)
}

// SetServiceFrequency moves every item in domain to f, with per-item fallback.
func (e *PreferenceEngine) SetServiceFrequency(ctx context.Context, domain models.Domain, f models.Frequency) error {
	if !domain.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidDomain, domain)
	}
	catalog := e.Catalog()

	transform := func(s models.Snapshot) (models.Snapshot, error) {
		return preferences.UpdatedDomainFrequency(domain, f, s, catalog), nil
	}
	persist := func(ctx context.Context, _, _ models.Snapshot) error {
		ids, err := e.api.UpdateService(ctx, domain, f)
		if err == nil && e.opts.Logger != nil {
			e.opts.Logger.Debug("service update confirmed", "domain", domain, "frequency", f, "updated", ids)
		}
		return err
	}
	return e.apply(ctx, domain.Config().Name, models.SourceService, true, transform, persist)
}

// ApplySnapshot moves the current preferences toward desired through the batch endpoint.
//
// Each entry is validated like a single update, so unknown ids are skipped and required items cannot be unsubscribed.
func (e *PreferenceEngine) ApplySnapshot(ctx context.Context, desired models.Snapshot) error {
	catalog := e.Catalog()

	transform := func(s models.Snapshot) (models.Snapshot, error) {
		next := s
		for _, id := range desired.IDs() {
			var err error
			if next, err = preferences.UpdatePreference(id, desired[id], next, catalog); err != nil {
				return s, err
			}
		}
		return next, nil
	}
	persist := func(ctx context.Context, prev, next models.Snapshot) error {
		return e.api.BatchUpdate(ctx, preferences.Diff(prev, next))
	}
	return e.apply(ctx, "preferences", models.SourceBatch, false, transform, persist)
}

// UnsubscribeWithToken unsubscribes id using a token from an email link.
//
// The local snapshot changes only after the backend accepts the token.
func (e *PreferenceEngine) UnsubscribeWithToken(ctx context.Context, id, token string) error {
	catalog := e.Catalog()
	transform := func(s models.Snapshot) (models.Snapshot, error) {
		return preferences.UpdatePreference(id, models.FrequencyNone, s, catalog)
	}
	persist := func(ctx context.Context, _, _ models.Snapshot) error {
		return e.api.UnsubscribeWithToken(ctx, id, token)
	}

	before := e.store.Get()
	e.sendProgress(persistUpdate(id))
	after, outcome, err := Pessimistic(ctx, e.store, transform, persist)
	e.sendProgress(outcomeUpdate(id, outcome, err))
	if err != nil {
		return err
	}

	if outcome == Confirmed {
		e.record(models.SourceToken, models.StatusApplied, preferences.Diff(before, after))
		e.saveSnapshot(after)
	}
	return nil
}

// Resend asks the backend to send the latest issue of id again at its current frequency.
func (e *PreferenceEngine) Resend(ctx context.Context, id string) error {
	item, ok := e.Catalog().Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownEmailType, id)
	}

	f, _ := e.store.Get().Get(id)
	if f == models.FrequencyNone {
		return fmt.Errorf("%w: not subscribed to %s", shared.ErrInvalidInput, item.Name)
	}

	err := e.api.ResendLatest(ctx, item.Domain, id, f)
	e.sendProgress(resendUpdate(1, 1, id, err))
	return err
}

// apply runs an optimistic write. With alwaysPersist the backend is called even when nothing changes locally,
// because a service-level write is owned by the backend.
func (e *PreferenceEngine) apply(
	ctx context.Context,
	label string,
	source models.ChangeSource,
	alwaysPersist bool,
	transform Transform[models.Snapshot],
	persist Persist[models.Snapshot],
) error {
	var changes []models.Change

	wrapped := func(ctx context.Context, prev, next models.Snapshot) error {
		changes = preferences.Diff(prev, next)
		if len(changes) == 0 && !alwaysPersist {
			return nil
		}
		if len(changes) > 0 {
			e.sendProgress(applyLocalUpdate(changes))
		}
		e.sendProgress(persistUpdate(label))
		return persist(ctx, prev, next)
	}

	after, outcome, err := Optimistic(ctx, e.store, transform, wrapped)
	if outcome != Unchanged && (len(changes) > 0 || alwaysPersist) {
		e.sendProgress(outcomeUpdate(label, outcome, err))
	}

	switch outcome {
	case Confirmed:
		if len(changes) > 0 {
			e.record(source, models.StatusApplied, changes)
			e.saveSnapshot(after)
		}
	case RolledBack, Superseded:
		e.record(source, models.StatusRolledBack, changes)
	}

	if err != nil && e.opts.Logger != nil && outcome != Unchanged {
		e.opts.Logger.Warn("preference update failed", "target", label, "outcome", outcome, "error", err)
	}
	return err
}

func (e *PreferenceEngine) record(source models.ChangeSource, status models.ChangeStatus, changes []models.Change) {
	if e.opts.Changes == nil {
		return
	}
	for _, r := range models.NewChangeRecords(e.opts.Account, source, changes) {
		r.Status = status
		if err := e.opts.Changes.Create(r); err != nil && e.opts.Logger != nil {
			e.opts.Logger.Warn("failed to record change", "id", r.EmailTypeID, "error", err)
		}
	}
}

func (e *PreferenceEngine) saveSnapshot(s models.Snapshot) {
	if e.opts.Snapshots == nil {
		return
	}
	if err := e.opts.Snapshots.Save(e.opts.Account, s); err != nil && e.opts.Logger != nil {
		e.opts.Logger.Warn("failed to cache snapshot", "account", e.opts.Account, "error", err)
	}
}
