package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/meetingbaas/settings/internal/models"
)

// MockPreferencesAPI is an in-memory stand-in for the backend preferences API.
//
// Writes update Snapshot unless the matching Fail field is set.
// When Gate is non-nil every write blocks until Gate is closed or ctx ends.
type MockPreferencesAPI struct {
	mu sync.Mutex

	Catalog  models.Catalog
	Snapshot models.Snapshot

	FailFetch  error
	FailUpdate error
	FailToken  error
	FailResend error
	Gate       chan struct{}

	Calls []string
}

// NewMockPreferencesAPI returns a mock seeded with [Catalog] and [Snapshot].
func NewMockPreferencesAPI() *MockPreferencesAPI {
	return &MockPreferencesAPI{Catalog: Catalog(), Snapshot: Snapshot()}
}

func (m *MockPreferencesAPI) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallsSnapshot returns a copy of the recorded calls.
func (m *MockPreferencesAPI) CallsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// Current returns a copy of the stored preferences.
func (m *MockPreferencesAPI) Current() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Snapshot.Clone()
}

func (m *MockPreferencesAPI) wait(ctx context.Context) error {
	if m.Gate == nil {
		return nil
	}
	select {
	case <-m.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockPreferencesAPI) EmailTypes(ctx context.Context) (models.Catalog, error) {
	m.record("EmailTypes")
	if m.FailFetch != nil {
		return nil, m.FailFetch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Catalog.Clone(), nil
}

func (m *MockPreferencesAPI) Preferences(ctx context.Context) (models.Snapshot, error) {
	m.record("Preferences")
	if m.FailFetch != nil {
		return nil, m.FailFetch
	}
	return m.Current(), nil
}

func (m *MockPreferencesAPI) UpdatePreference(ctx context.Context, id string, f models.Frequency) error {
	m.record(fmt.Sprintf("UpdatePreference %s %s", id, f))
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshot[id] = f
	return nil
}

func (m *MockPreferencesAPI) UpdateService(ctx context.Context, domain models.Domain, f models.Frequency) ([]string, error) {
	m.record(fmt.Sprintf("UpdateService %s %s", domain, f))
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.FailUpdate != nil {
		return nil, m.FailUpdate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, item := range m.Catalog.ByDomain(domain) {
		if item.Required && f == models.FrequencyNone {
			continue
		}
		m.Snapshot[item.ID] = f
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (m *MockPreferencesAPI) BatchUpdate(ctx context.Context, changes []models.Change) error {
	m.record(fmt.Sprintf("BatchUpdate %d", len(changes)))
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		m.Snapshot[c.ID] = c.To
	}
	return nil
}

func (m *MockPreferencesAPI) UnsubscribeWithToken(ctx context.Context, id, token string) error {
	m.record(fmt.Sprintf("UnsubscribeWithToken %s %s", id, token))
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.FailToken != nil {
		return m.FailToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshot[id] = models.FrequencyNone
	return nil
}

func (m *MockPreferencesAPI) ResendLatest(ctx context.Context, domain models.Domain, id string, f models.Frequency) error {
	m.record(fmt.Sprintf("ResendLatest %s %s %s", domain, id, f))
	return m.FailResend
}
