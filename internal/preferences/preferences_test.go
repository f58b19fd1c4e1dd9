package preferences

import (
	"math/rand"
	"testing"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
	tu "github.com/meetingbaas/settings/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freqs(f ...models.Frequency) []models.Frequency { return f }

func TestDomainFrequency(t *testing.T) {
	catalog := tu.Catalog()

	t.Run("uniform domain returns shared value", func(t *testing.T) {
		snap := tu.Snapshot()
		snap["api-changes"] = models.FrequencyDaily
		snap["developer-resources"] = models.FrequencyDaily

		assert.Equal(t, models.AggregateOf(models.FrequencyDaily), DomainFrequency(models.DomainDevelopers, snap, catalog))
	})

	t.Run("announcements at weekly and monthly are mixed", func(t *testing.T) {
		c := models.Catalog{
			{ID: "a", Domain: models.DomainAnnouncements, Frequencies: freqs(models.FrequencyWeekly, models.FrequencyMonthly)},
			{ID: "b", Domain: models.DomainAnnouncements, Frequencies: freqs(models.FrequencyWeekly, models.FrequencyMonthly)},
		}
		snap := models.Snapshot{"a": models.FrequencyWeekly, "b": models.FrequencyMonthly}

		assert.Equal(t, models.AggregateMixed, DomainFrequency(models.DomainAnnouncements, snap, c))
	})

	t.Run("all required domain is none", func(t *testing.T) {
		snap := tu.Snapshot()
		snap["security-alerts"] = models.FrequencyDaily
		snap["billing-notifications"] = models.FrequencyWeekly

		assert.Equal(t, models.AggregateOf(models.FrequencyNone), DomainFrequency(models.DomainAccount, snap, catalog))
	})

	t.Run("nil snapshot is none", func(t *testing.T) {
		assert.Equal(t, models.AggregateOf(models.FrequencyNone), DomainFrequency(models.DomainReports, nil, catalog))
	})

	t.Run("invalid domain is none", func(t *testing.T) {
		assert.Equal(t, models.AggregateOf(models.FrequencyNone), DomainFrequency("marketing", tu.Snapshot(), catalog))
	})

	t.Run("first item missing is none", func(t *testing.T) {
		snap := tu.Snapshot()
		delete(snap, "api-changes")

		assert.Equal(t, models.AggregateOf(models.FrequencyNone), DomainFrequency(models.DomainDevelopers, snap, catalog))
	})

	t.Run("later item missing is mixed", func(t *testing.T) {
		snap := tu.Snapshot()
		snap["api-changes"] = models.FrequencyMonthly
		delete(snap, "developer-resources")

		assert.Equal(t, models.AggregateMixed, DomainFrequency(models.DomainDevelopers, snap, catalog))
	})

	t.Run("deterministic", func(t *testing.T) {
		snap := tu.Snapshot()
		for _, d := range models.Domains() {
			assert.Equal(t, DomainFrequency(d, snap, catalog), DomainFrequency(d, snap.Clone(), catalog.Clone()))
		}
	})
}

func TestFallback(t *testing.T) {
	tc := []struct {
		name      string
		supported []models.Frequency
		requested models.Frequency
		want      models.Frequency
	}{
		{name: "weekly monthly item asked for daily", supported: freqs(models.FrequencyWeekly, models.FrequencyMonthly), requested: models.FrequencyDaily, want: models.FrequencyWeekly},
		{name: "daily only item asked for monthly", supported: freqs(models.FrequencyDaily), requested: models.FrequencyMonthly, want: models.FrequencyDaily},
		{name: "daily monthly item asked for weekly", supported: freqs(models.FrequencyDaily, models.FrequencyMonthly), requested: models.FrequencyWeekly, want: models.FrequencyMonthly},
		{name: "daily weekly item asked for monthly", supported: freqs(models.FrequencyDaily, models.FrequencyWeekly), requested: models.FrequencyMonthly, want: models.FrequencyWeekly},
		{name: "monthly only item asked for daily", supported: freqs(models.FrequencyMonthly), requested: models.FrequencyDaily, want: models.FrequencyMonthly},
		{name: "supported value is itself", supported: freqs(models.FrequencyWeekly), requested: models.FrequencyWeekly, want: models.FrequencyWeekly},
		{name: "unranked request takes last listed", supported: freqs(models.FrequencyDaily, models.FrequencyWeekly), requested: models.FrequencyNone, want: models.FrequencyWeekly},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			item := models.EmailType{ID: "x", Domain: models.DomainReports, Frequencies: tt.supported}
			assert.Equal(t, tt.want, Fallback(item, tt.requested))
		})
	}
}

func TestUpdatedDomainFrequency(t *testing.T) {
	catalog := tu.Catalog()

	t.Run("bulk daily falls back per item", func(t *testing.T) {
		got := UpdatedDomainFrequency(models.DomainAnnouncements, models.FrequencyDaily, tu.Snapshot(), catalog)

		assert.Equal(t, models.FrequencyWeekly, got["product-updates"])
		assert.Equal(t, models.FrequencyDaily, got["maintenance-notifications"])
		assert.Equal(t, models.FrequencyMonthly, got["company-news"])
	})

	t.Run("bulk monthly on daily only item keeps daily", func(t *testing.T) {
		got := UpdatedDomainFrequency(models.DomainAnnouncements, models.FrequencyMonthly, tu.Snapshot(), catalog)

		assert.Equal(t, models.FrequencyDaily, got["maintenance-notifications"])
		assert.Equal(t, models.FrequencyMonthly, got["product-updates"])
	})

	t.Run("bulk none skips required items", func(t *testing.T) {
		before := tu.Snapshot()
		got := UpdatedDomainFrequency(models.DomainAccount, models.FrequencyNone, before, catalog)

		assert.True(t, got.Equal(before))
	})

	t.Run("bulk none unsubscribes optional items", func(t *testing.T) {
		got := UpdatedDomainFrequency(models.DomainDevelopers, models.FrequencyNone, tu.Snapshot(), catalog)

		assert.Equal(t, models.FrequencyNone, got["api-changes"])
		assert.Equal(t, models.FrequencyNone, got["developer-resources"])
		assert.Equal(t, models.FrequencyMonthly, got["usage-reports"], "other domains untouched")
	})

	t.Run("domain without items is a no-op", func(t *testing.T) {
		c := models.Catalog{{ID: "usage-reports", Domain: models.DomainReports, Frequencies: freqs(models.FrequencyDaily)}}
		before := models.Snapshot{"usage-reports": models.FrequencyDaily}

		got := UpdatedDomainFrequency(models.DomainDevelopers, models.FrequencyNone, before, c)
		assert.Equal(t, before, got)
	})

	t.Run("missing items are added", func(t *testing.T) {
		got := UpdatedDomainFrequency(models.DomainReports, models.FrequencyWeekly, models.Snapshot{}, catalog)
		assert.Equal(t, models.Snapshot{"usage-reports": models.FrequencyWeekly}, got)
	})

	t.Run("input snapshot is not mutated", func(t *testing.T) {
		before := tu.Snapshot()
		_ = UpdatedDomainFrequency(models.DomainDevelopers, models.FrequencyDaily, before, catalog)
		assert.Equal(t, tu.Snapshot(), before)
	})

	t.Run("UpdatedDomainIDs matches written ids", func(t *testing.T) {
		assert.Equal(t, []string{"api-changes", "developer-resources"}, UpdatedDomainIDs(models.DomainDevelopers, models.FrequencyNone, catalog))
		assert.Empty(t, UpdatedDomainIDs(models.DomainAccount, models.FrequencyNone, catalog))
		assert.Len(t, UpdatedDomainIDs(models.DomainAccount, models.FrequencyWeekly, catalog), 2)
	})
}

func TestUpdatePreference(t *testing.T) {
	catalog := tu.Catalog()

	t.Run("sets the value", func(t *testing.T) {
		got, err := UpdatePreference("usage-reports", models.FrequencyDaily, tu.Snapshot(), catalog)
		require.NoError(t, err)
		assert.Equal(t, models.FrequencyDaily, got["usage-reports"])
	})

	t.Run("required item cannot be none", func(t *testing.T) {
		before := tu.Snapshot()
		got, err := UpdatePreference("security-alerts", models.FrequencyNone, before, catalog)

		require.ErrorIs(t, err, shared.ErrRequiredFrequencyViolation)
		assert.Contains(t, err.Error(), "Security Alerts")
		assert.Equal(t, before, got)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		before := tu.Snapshot()
		got, err := UpdatePreference("nope", models.FrequencyDaily, before, catalog)

		require.NoError(t, err)
		assert.Equal(t, before, got)
	})

	t.Run("same value is a no-op", func(t *testing.T) {
		before := tu.Snapshot()
		got, err := UpdatePreference("usage-reports", models.FrequencyMonthly, before, catalog)

		require.NoError(t, err)
		assert.Equal(t, before, got)
	})

	t.Run("unsupported frequency is rejected", func(t *testing.T) {
		_, err := UpdatePreference("company-news", models.FrequencyDaily, tu.Snapshot(), catalog)
		assert.ErrorIs(t, err, shared.ErrUnsupportedFrequency)
	})

	t.Run("idempotent", func(t *testing.T) {
		once, err := UpdatePreference("api-changes", models.FrequencyNone, tu.Snapshot(), catalog)
		require.NoError(t, err)
		twice, err := UpdatePreference("api-changes", models.FrequencyNone, once, catalog)
		require.NoError(t, err)

		assert.True(t, once.Equal(twice))
	})
}

func TestRequiredInvariance(t *testing.T) {
	catalog := tu.Catalog()
	rng := rand.New(rand.NewSource(42))
	all := append([]models.Frequency{models.FrequencyNone}, models.DeliveryOrder...)
	domains := models.Domains()

	snap := tu.Snapshot()
	for range 500 {
		f := all[rng.Intn(len(all))]
		if rng.Intn(2) == 0 {
			snap = UpdatedDomainFrequency(domains[rng.Intn(len(domains))], f, snap, catalog)
		} else {
			item := catalog[rng.Intn(len(catalog))]
			if next, err := UpdatePreference(item.ID, f, snap, catalog); err == nil {
				snap = next
			}
		}

		for _, item := range catalog {
			if item.Required {
				require.NotEqual(t, models.FrequencyNone, snap[item.ID], "required item %s reached none", item.ID)
			}
		}
	}
}

func TestShowBulkControl(t *testing.T) {
	catalog := tu.Catalog()

	assert.False(t, ShowBulkControl(models.DomainReports, catalog), "single optional item")
	assert.True(t, ShowBulkControl(models.DomainAnnouncements, catalog))
	assert.True(t, ShowBulkControl(models.DomainDevelopers, catalog))
	assert.False(t, ShowBulkControl(models.DomainAccount, catalog), "required only")
}

func TestDiff(t *testing.T) {
	before := models.Snapshot{"a": models.FrequencyDaily, "b": models.FrequencyWeekly}
	after := models.Snapshot{"a": models.FrequencyDaily, "b": models.FrequencyNone, "c": models.FrequencyMonthly}

	assert.Equal(t, []models.Change{
		{ID: "b", From: models.FrequencyWeekly, To: models.FrequencyNone},
		{ID: "c", From: models.FrequencyNone, To: models.FrequencyMonthly},
	}, Diff(before, after))

	assert.Empty(t, Diff(before, before.Clone()))
}

func TestRevert(t *testing.T) {
	prev := models.Snapshot{"a": models.FrequencyDaily, "b": models.FrequencyDaily}
	next := models.Snapshot{"a": models.FrequencyNone, "b": models.FrequencyDaily, "c": models.FrequencyWeekly}

	t.Run("undoes only the failed write", func(t *testing.T) {
		current := models.Snapshot{"a": models.FrequencyNone, "b": models.FrequencyWeekly, "c": models.FrequencyWeekly}

		got := Revert(prev, next, current)
		assert.Equal(t, models.Snapshot{"a": models.FrequencyDaily, "b": models.FrequencyWeekly}, got)
		assert.Equal(t, models.FrequencyNone, current["a"], "current is not mutated")
	})

	t.Run("keeps ids that moved on", func(t *testing.T) {
		current := models.Snapshot{"a": models.FrequencyMonthly, "b": models.FrequencyDaily, "c": models.FrequencyWeekly}

		got := Revert(prev, next, current)
		assert.Equal(t, models.FrequencyMonthly, got["a"])
	})
}
