package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/meetingbaas/settings/internal/models"
)

var (
	_ list.Item = domainItem{}
	_ list.Item = emailItem{}
	_ list.Item = frequencyItem{}
)

// domainItem wraps a [models.Domain] and its combined frequency to implement [list.Item].
type domainItem struct {
	domain    models.Domain
	aggregate models.Aggregate
	count     int
	bulk      bool
}

func (i domainItem) FilterValue() string { return i.domain.Config().Name }
func (i domainItem) Title() string       { return i.domain.Config().Name }
func (i domainItem) Description() string {
	desc := fmt.Sprintf("%d emails", i.count)
	if i.bulk {
		desc = fmt.Sprintf("%s • %s", desc, i.aggregate.Label())
	}
	return desc
}

// emailItem wraps [models.EmailType] to implement [list.Item].
//
// A service level item stands for every optional type in the domain.
type emailItem struct {
	emailType    models.EmailType
	frequency    models.Frequency
	service      bool
	domain       models.Domain
	serviceLabel string
}

func (i emailItem) FilterValue() string { return i.Title() }
func (i emailItem) Title() string {
	if i.service {
		return fmt.Sprintf("All %s emails", strings.ToLower(i.domain.Config().Name))
	}
	return i.emailType.Name
}
func (i emailItem) Description() string {
	if i.service {
		return i.serviceLabel
	}
	desc := i.frequency.Label()
	if i.emailType.Required {
		desc += " • required"
	}
	if i.emailType.CanResend() {
		desc += " • resend available"
	}
	return desc
}

// frequencyItem is one choice in the frequency picker.
type frequencyItem struct {
	frequency models.Frequency
	current   bool
}

func (i frequencyItem) FilterValue() string { return i.frequency.Label() }
func (i frequencyItem) Title() string {
	if i.current {
		return i.frequency.Label() + " (current)"
	}
	return i.frequency.Label()
}
func (i frequencyItem) Description() string {
	if i.frequency == models.FrequencyNone {
		return "Unsubscribe"
	}
	return ""
}
