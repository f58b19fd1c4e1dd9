package testing

import "github.com/meetingbaas/settings/internal/models"

var (
	all     = []models.Frequency{models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly}
	daily   = []models.Frequency{models.FrequencyDaily}
	monthly = []models.Frequency{models.FrequencyMonthly}
)

// Catalog returns the eight email types the dashboard ships with.
func Catalog() models.Catalog {
	return models.Catalog{
		{ID: "usage-reports", Name: "Usage Reports", Description: "Daily, weekly, or monthly reports of your API usage and meeting statistics", Domain: models.DomainReports, Frequencies: all, Metadata: &models.Metadata{CanResend: true}},
		{ID: "product-updates", Name: "Product Updates", Description: "Announcements about new features and improvements", Domain: models.DomainAnnouncements, Frequencies: []models.Frequency{models.FrequencyWeekly, models.FrequencyMonthly}},
		{ID: "maintenance-notifications", Name: "Maintenance Notifications", Description: "Scheduled maintenance and service interruptions", Domain: models.DomainAnnouncements, Frequencies: daily},
		{ID: "company-news", Name: "Company News", Description: "News about Meeting BaaS and the team", Domain: models.DomainAnnouncements, Frequencies: monthly},
		{ID: "api-changes", Name: "API Changes", Description: "Changes to the API, including deprecations and new endpoints", Domain: models.DomainDevelopers, Frequencies: all},
		{ID: "developer-resources", Name: "Developer Resources", Description: "Tutorials, guides, and best practices", Domain: models.DomainDevelopers, Frequencies: all, Metadata: &models.Metadata{CanResend: true}},
		{ID: "security-alerts", Name: "Security Alerts", Description: "Important security notifications about your account", Domain: models.DomainAccount, Frequencies: daily, Required: true},
		{ID: "billing-notifications", Name: "Billing Notifications", Description: "Invoices, payment confirmations, and billing updates", Domain: models.DomainAccount, Frequencies: all, Required: true},
	}.Clone()
}

// Snapshot returns the default preferences for [Catalog].
func Snapshot() models.Snapshot {
	return models.Snapshot{
		"usage-reports":             models.FrequencyMonthly,
		"product-updates":           models.FrequencyWeekly,
		"maintenance-notifications": models.FrequencyDaily,
		"company-news":              models.FrequencyMonthly,
		"api-changes":               models.FrequencyWeekly,
		"developer-resources":       models.FrequencyMonthly,
		"security-alerts":           models.FrequencyDaily,
		"billing-notifications":     models.FrequencyMonthly,
	}
}
