package unsubscribe

import (
	"context"
	"fmt"
	"sync"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
)

// State is the machine's current phase.
type State int

const (
	Idle State = iota
	Confirming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Confirming:
		return "confirming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Target is the pending unsubscribe.
//
// ID is empty for service level targets. Token is set only for deep link requests.
type Target struct {
	RequestID    string
	ID           string
	Label        string
	Domain       models.Domain
	ServiceLevel bool
	Token        string
}

// Applier performs confirmed unsubscribes.
type Applier interface {
	Catalog() models.Catalog
	SetFrequency(ctx context.Context, id string, f models.Frequency) error
	SetServiceFrequency(ctx context.Context, domain models.Domain, f models.Frequency) error
	UnsubscribeWithToken(ctx context.Context, id, token string) error
}

// Machine is the confirmation state machine. It is safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	applier Applier
	state   State
	pending Target
}

// NewMachine creates an idle machine that applies confirmed targets through applier.
func NewMachine(applier Applier) *Machine {
	return &Machine{applier: applier}
}

// State returns the current phase.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the target awaiting confirmation.
func (m *Machine) Pending() (Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, m.state == Confirming
}

// RequestItem asks to unsubscribe a single email type.
func (m *Machine) RequestItem(id string) (Target, error) {
	item, err := m.lookup(id)
	if err != nil {
		return Target{}, err
	}
	if item.Required {
		return Target{}, requiredErr(item)
	}

	return m.enter(Target{ID: item.ID, Label: item.Name, Domain: item.Domain}), nil
}

// RequestService asks to unsubscribe every optional email type in domain.
func (m *Machine) RequestService(domain models.Domain) (Target, error) {
	if !domain.Valid() {
		return Target{}, fmt.Errorf("%w: %q", shared.ErrInvalidDomain, domain)
	}
	if len(m.applier.Catalog().Optional(domain)) == 0 {
		return Target{}, fmt.Errorf("%w: every %s email is required", shared.ErrRequiredFrequencyViolation, domain)
	}

	return m.enter(Target{Label: domain.Config().Name, Domain: domain, ServiceLevel: true}), nil
}

// RequestToken enters confirmation from an unsubscribe link carried in an email.
//
// Account emails and required types cannot be unsubscribed this way.
func (m *Machine) RequestToken(id, token string) (Target, error) {
	if token == "" {
		return Target{}, fmt.Errorf("%w: unsubscribe token", shared.ErrMissingArgument)
	}

	item, err := m.lookup(id)
	if err != nil {
		return Target{}, err
	}
	if item.Required || item.Domain == models.DomainAccount {
		return Target{}, requiredErr(item)
	}

	return m.enter(Target{ID: item.ID, Label: item.Name, Domain: item.Domain, Token: token}), nil
}

// Confirm applies the pending target and returns to [Idle].
//
// The machine is idle again whether or not the apply succeeds.
func (m *Machine) Confirm(ctx context.Context) (Target, error) {
	m.mu.Lock()
	if m.state != Confirming {
		m.mu.Unlock()
		return Target{}, shared.ErrNothingPending
	}
	target := m.pending
	m.state, m.pending = Idle, Target{}
	m.mu.Unlock()

	var err error
	switch {
	case target.Token != "":
		err = m.applier.UnsubscribeWithToken(ctx, target.ID, target.Token)
	case target.ServiceLevel:
		err = m.applier.SetServiceFrequency(ctx, target.Domain, models.FrequencyNone)
	default:
		err = m.applier.SetFrequency(ctx, target.ID, models.FrequencyNone)
	}
	return target, err
}

// Cancel discards the pending target.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.pending = Idle, Target{}
}

func (m *Machine) enter(t Target) Target {
	t.RequestID = shared.GenerateID()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state, m.pending = Confirming, t
	return t
}

func (m *Machine) lookup(id string) (models.EmailType, error) {
	item, ok := m.applier.Catalog().Find(id)
	if !ok {
		return models.EmailType{}, fmt.Errorf("%w: %s", shared.ErrUnknownEmailType, id)
	}
	return item, nil
}

func requiredErr(item models.EmailType) error {
	return fmt.Errorf("%w: %s cannot be unsubscribed", shared.ErrRequiredFrequencyViolation, item.Name)
}
