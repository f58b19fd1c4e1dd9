package models

import (
	"fmt"
	"strings"

	"github.com/meetingbaas/settings/internal/shared"
)

// Domain groups related email types.
type Domain string

const (
	DomainReports       Domain = "reports"
	DomainAnnouncements Domain = "announcements"
	DomainDevelopers    Domain = "developers"
	DomainAccount       Domain = "account"
)

// DomainConfig is the display metadata for a domain.
type DomainConfig struct {
	Domain      Domain `json:"domain"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MailHost    string `json:"mail_host"`
}

var domainConfigs = []DomainConfig{
	{DomainReports, "Reports", "Reports and metrics about your Meeting BaaS usage.", "reports.meetingbaas.com"},
	{DomainAnnouncements, "Announcements", "Product updates and important announcements.", "announcements.meetingbaas.com"},
	{DomainDevelopers, "Developer Updates", "API updates and developer resources.", "developers.meetingbaas.com"},
	{DomainAccount, "Account", "Required notifications related to your account.", "account.meetingbaas.com"},
}

// Domains returns every domain in display order.
func Domains() []Domain {
	out := make([]Domain, len(domainConfigs))
	for i, c := range domainConfigs {
		out[i] = c.Domain
	}
	return out
}

// ParseDomain validates s as a [Domain].
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidDomain, s)
	}
	return d, nil
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	for _, c := range domainConfigs {
		if c.Domain == d {
			return true
		}
	}
	return false
}

// Config returns the display metadata for d; unknown domains get their own name as the title.
func (d Domain) Config() DomainConfig {
	for _, c := range domainConfigs {
		if c.Domain == d {
			return c
		}
	}
	return DomainConfig{Domain: d, Name: string(d)}
}

func (d Domain) String() string { return string(d) }
