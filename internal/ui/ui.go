package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/preferences"
	"github.com/meetingbaas/settings/internal/services"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/meetingbaas/settings/internal/tasks"
	"github.com/meetingbaas/settings/internal/unsubscribe"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DomainListView ViewState = iota
	ItemListView
	FrequencyView
	ConfirmView
)

// Engine is the part of tasks.PreferenceEngine the TUI drives.
type Engine interface {
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	Catalog() models.Catalog
	Snapshot() models.Snapshot
	DomainFrequency(domain models.Domain) models.Aggregate
	SetFrequency(ctx context.Context, id string, f models.Frequency) error
	SetServiceFrequency(ctx context.Context, domain models.Domain, f models.Frequency) error
	Resend(ctx context.Context, id string) error
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusOK
	statusWarn
	statusError
)

type status struct {
	level statusLevel
	text  string
}

// Options configures optional collaborators of a [Model].
type Options struct {
	Logger   *log.Logger
	Progress <-chan tasks.ProgressUpdate
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   Engine
	machine  *unsubscribe.Machine
	logger   *log.Logger
	progress <-chan tasks.ProgressUpdate

	width  int
	height int

	domainList list.Model
	itemList   list.Model
	freqList   list.Model

	domain   models.Domain
	selected emailItem
	loaded   bool
	busy     bool
	status   status

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. The machine must apply through engine.
func NewModel(ctx context.Context, engine Engine, machine *unsubscribe.Machine, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Model{
		ctx:        ctx,
		view:       DomainListView,
		engine:     engine,
		machine:    machine,
		logger:     logger,
		progress:   opts.Progress,
		domainList: newList("Email preferences"),
		itemList:   newList(""),
		freqList:   newList(""),
		status:     status{text: "Loading preferences..."},
		busy:       true,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

// Init loads the catalog and preferences.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(false), m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.domainList, &m.itemList, &m.freqList} {
			l.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && m.view != ConfirmView {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch m.view {
		case DomainListView:
			return m.handleDomainKeys(msg)
		case ItemListView:
			return m.handleItemKeys(msg)
		case FrequencyView:
			return m.handleFrequencyKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoaded:
		o := msg.data.(outcome)
		m.busy = false
		if o.err != nil {
			m.fail("Failed to load preferences", o.err)
			return m, nil
		}
		m.loaded = true
		m.setStatus(statusInfo, "Preferences loaded")
		m.rebuild()
		return m, nil

	case MsgApplied:
		o := msg.data.(outcome)
		m.busy = false
		m.view = ItemListView
		if o.err != nil {
			m.fail("Could not update "+o.label, o.err)
		} else {
			m.setStatus(statusOK, "Updated "+o.label)
		}
		m.rebuild()
		return m, nil

	case MsgResent:
		o := msg.data.(outcome)
		m.busy = false
		var rl *services.RateLimitedError
		switch {
		case errors.As(o.err, &rl) && time.Until(rl.RetryAfter) > 0:
			m.setStatus(statusWarn, fmt.Sprintf("Resend of %s rate limited, try again in %s", o.label, time.Until(rl.RetryAfter).Round(time.Second)))
		case o.err != nil:
			m.fail("Could not resend "+o.label, o.err)
		default:
			m.setStatus(statusOK, "Sent the latest "+o.label)
		}
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if m.busy && update.Message != "" {
			m.setStatus(statusInfo, update.Message)
		}
		return m, m.waitForProgress()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case DomainListView:
		body = m.renderList(m.domainList, m.keys.enter, m.keys.refresh, m.keys.quit)
	case ItemListView:
		body = m.renderList(m.itemList, m.keys.enter, m.keys.resend, m.keys.back, m.keys.quit)
	case FrequencyView:
		body = m.renderList(m.freqList, m.keys.enter, m.keys.back, m.keys.quit)
	case ConfirmView:
		body = m.renderConfirm()
	}
	return fmt.Sprintf("%s\n%s", body, styles.Status(m.status))
}

func (m *Model) handleDomainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.refresh):
		m.busy = true
		m.setStatus(statusInfo, "Refreshing...")
		return m, m.load(true)
	case key.Matches(msg, m.keys.enter):
		if !m.loaded {
			return m, nil
		}
		if item, ok := m.domainList.SelectedItem().(domainItem); ok {
			m.domain = item.domain
			m.rebuildItems()
			m.itemList.Select(0)
			m.view = ItemListView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.domainList, cmd = m.domainList.Update(msg)
	return m, cmd
}

func (m *Model) handleItemKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = DomainListView
		m.rebuild()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.itemList.SelectedItem().(emailItem); ok {
			m.selected = item
			m.rebuildFrequencies()
			m.view = FrequencyView
		}
		return m, nil
	case key.Matches(msg, m.keys.resend):
		item, ok := m.itemList.SelectedItem().(emailItem)
		if !ok || item.service {
			return m, nil
		}
		if !item.emailType.CanResend() {
			m.setStatus(statusWarn, item.emailType.Name+" cannot be resent")
			return m, nil
		}
		m.busy = true
		m.setStatus(statusInfo, "Resending "+item.emailType.Name+"...")
		return m, m.resend(item.emailType)
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleFrequencyKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = ItemListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		choice, ok := m.freqList.SelectedItem().(frequencyItem)
		if !ok {
			return m, nil
		}
		if choice.frequency == models.FrequencyNone {
			return m.requestUnsubscribe()
		}
		m.busy = true
		m.setStatus(statusInfo, "Saving...")
		return m, m.apply(m.selected, choice.frequency)
	}

	var cmd tea.Cmd
	m.freqList, cmd = m.freqList.Update(msg)
	return m, cmd
}

func (m *Model) requestUnsubscribe() (tea.Model, tea.Cmd) {
	var err error
	if m.selected.service {
		_, err = m.machine.RequestService(m.selected.domain)
	} else {
		_, err = m.machine.RequestItem(m.selected.emailType.ID)
	}
	if err != nil {
		m.fail("Cannot unsubscribe", err)
		m.view = ItemListView
		return m, nil
	}

	m.view = ConfirmView
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		target, ok := m.machine.Pending()
		if !ok {
			m.view = ItemListView
			return m, nil
		}
		m.busy = true
		m.setStatus(statusInfo, "Unsubscribing...")
		return m, m.confirm(target.Label)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.machine.Cancel()
		m.setStatus(statusInfo, "Cancelled")
		m.view = ItemListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case DomainListView:
		m.domainList, cmd = m.domainList.Update(msg)
	case ItemListView:
		m.itemList, cmd = m.itemList.Update(msg)
	case FrequencyView:
		m.freqList, cmd = m.freqList.Update(msg)
	}
	return m, cmd
}

func (m *Model) load(refresh bool) tea.Cmd {
	return func() tea.Msg {
		if refresh {
			return loadedMsg(m.engine.Refresh(m.ctx))
		}
		return loadedMsg(m.engine.Load(m.ctx))
	}
}

func (m *Model) apply(item emailItem, f models.Frequency) tea.Cmd {
	return func() tea.Msg {
		if item.service {
			return appliedMsg(item.Title(), m.engine.SetServiceFrequency(m.ctx, item.domain, f))
		}
		return appliedMsg(item.emailType.Name, m.engine.SetFrequency(m.ctx, item.emailType.ID, f))
	}
}

func (m *Model) confirm(label string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.machine.Confirm(m.ctx)
		return appliedMsg(label, err)
	}
}

func (m *Model) resend(item models.EmailType) tea.Cmd {
	return func() tea.Msg {
		return resentMsg(item.Name, m.engine.Resend(m.ctx, item.ID))
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-m.progress
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) setStatus(level statusLevel, text string) {
	m.status = status{level: level, text: text}
}

func (m *Model) fail(prefix string, err error) {
	m.logger.Error(prefix, "error", err)
	m.setStatus(statusError, fmt.Sprintf("%s: %s", prefix, describe(err)))
}

// describe turns engine errors into a line for the status bar.
func describe(err error) string {
	switch {
	case errors.Is(err, shared.ErrRequiredFrequencyViolation):
		return "this email is required and cannot be turned off"
	case errors.Is(err, shared.ErrUnsupportedFrequency):
		return "that frequency is not available for this email"
	case errors.Is(err, shared.ErrRateLimited):
		return "rate limited, try again later"
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "not signed in, run `baas setup auth`"
	case errors.Is(err, shared.ErrPersistenceFailure):
		return "the server rejected the change and it was reverted"
	}
	return err.Error()
}

func (m *Model) rebuild() {
	catalog := m.engine.Catalog()
	items := make([]list.Item, 0, len(models.Domains()))
	for _, d := range models.Domains() {
		count := len(catalog.ByDomain(d))
		if count == 0 {
			continue
		}
		items = append(items, domainItem{
			domain:    d,
			aggregate: m.engine.DomainFrequency(d),
			count:     count,
			bulk:      preferences.ShowBulkControl(d, catalog),
		})
	}
	m.domainList.SetItems(items)
	if m.domain != "" {
		m.rebuildItems()
	}
}

func (m *Model) rebuildItems() {
	catalog, snapshot := m.engine.Catalog(), m.engine.Snapshot()

	var items []list.Item
	if preferences.ShowBulkControl(m.domain, catalog) {
		items = append(items, emailItem{
			service:      true,
			domain:       m.domain,
			serviceLabel: m.engine.DomainFrequency(m.domain).Label(),
		})
	}
	for _, e := range catalog.ByDomain(m.domain) {
		f, _ := snapshot.Get(e.ID)
		items = append(items, emailItem{emailType: e, frequency: f, domain: m.domain})
	}

	m.itemList.Title = m.domain.Config().Name
	m.itemList.SetItems(items)
}

func (m *Model) rebuildFrequencies() {
	var (
		choices []models.Frequency
		current models.Frequency
	)
	if m.selected.service {
		choices = append(choices, models.DeliveryOrder...)
		if agg, ok := m.engine.DomainFrequency(m.domain).Frequency(); ok {
			current = agg
		}
	} else {
		choices = append(choices, m.selected.emailType.Frequencies...)
		current = m.selected.frequency
	}
	choices = append(choices, models.FrequencyNone)

	items := make([]list.Item, len(choices))
	selected := 0
	for i, f := range choices {
		items[i] = frequencyItem{frequency: f, current: f == current}
		if f == current {
			selected = i
		}
	}

	m.freqList.Title = m.selected.Title()
	m.freqList.SetItems(items)
	m.freqList.Select(selected)
}

func (m *Model) renderList(l list.Model, keys ...key.Binding) string {
	return fmt.Sprintf("%s\n\n%s", l.View(), m.help.ShortHelpView(keys))
}

func (m *Model) renderConfirm() string {
	target, ok := m.machine.Pending()
	if !ok {
		return ""
	}

	title := styles.title.Render(fmt.Sprintf("Unsubscribe from %s?", target.Label))
	info := "\nYou will no longer receive these emails."
	if target.ServiceLevel {
		info = fmt.Sprintf("\nEvery optional %s email will be turned off. Required emails are not affected.", target.Domain.Config().Name)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
