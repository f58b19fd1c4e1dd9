package repositories

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
	tu "github.com/meetingbaas/settings/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newChange(account, id string, from, to models.Frequency) *models.ChangeRecord {
	return &models.ChangeRecord{
		Account:     account,
		EmailTypeID: id,
		Previous:    from,
		Next:        to,
		Source:      models.SourceItem,
		Status:      models.StatusApplied,
	}
}

func TestEmailTypeRepository(t *testing.T) {
	t.Run("ReplaceAll and List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEmailTypeRepository(db)
		catalog := tu.Catalog()

		if err := repo.ReplaceAll(catalog); err != nil {
			t.Fatalf("failed to store catalog: %v", err)
		}

		got, cachedAt, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list catalog: %v", err)
		}

		if cachedAt.IsZero() {
			t.Error("cachedAt should be set")
		}
		if !reflect.DeepEqual(got, catalog) {
			t.Errorf("catalog mismatch:\n got %+v\nwant %+v", got, catalog)
		}
	})

	t.Run("ReplaceAll drops stale rows", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEmailTypeRepository(db)
		if err := repo.ReplaceAll(tu.Catalog()); err != nil {
			t.Fatalf("failed to store catalog: %v", err)
		}

		smaller := tu.Catalog()[:2]
		if err := repo.ReplaceAll(smaller); err != nil {
			t.Fatalf("failed to replace catalog: %v", err)
		}

		got, _, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list catalog: %v", err)
		}
		if len(got) != 2 || got[0].ID != "usage-reports" || got[1].ID != "product-updates" {
			t.Errorf("expected the two replacement types in order, got %+v", got)
		}
	})

	t.Run("ReplaceAll rejects invalid catalog", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEmailTypeRepository(db)
		bad := tu.Catalog()
		bad[1].ID = bad[0].ID

		err := repo.ReplaceAll(bad)
		if !errors.Is(err, shared.ErrInvalidEmailType) {
			t.Fatalf("expected ErrInvalidEmailType, got %v", err)
		}
	})

	t.Run("List empty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		got, cachedAt, err := NewEmailTypeRepository(db).List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil || !cachedAt.IsZero() {
			t.Errorf("expected empty result, got %v at %v", got, cachedAt)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEmailTypeRepository(db)
		if err := repo.ReplaceAll(tu.Catalog()); err != nil {
			t.Fatalf("failed to store catalog: %v", err)
		}
		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}

		got, _, err := repo.List()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no rows after clear, got %d", len(got))
		}
	})
}

func TestSnapshotRepository(t *testing.T) {
	t.Run("Save and Load", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		snapshot := tu.Snapshot()

		if err := repo.Save("acct", snapshot); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}

		got, updatedAt, err := repo.Load("acct")
		if err != nil {
			t.Fatalf("failed to load snapshot: %v", err)
		}
		if !got.Equal(snapshot) {
			t.Errorf("snapshot mismatch: got %v, want %v", got, snapshot)
		}
		if updatedAt.IsZero() {
			t.Error("updatedAt should be set")
		}
	})

	t.Run("Save overwrites", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		if err := repo.Save("acct", tu.Snapshot()); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}

		next := models.Snapshot{"usage-reports": models.FrequencyNone}
		if err := repo.Save("acct", next); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}

		got, _, err := repo.Load("acct")
		if err != nil {
			t.Fatalf("failed to load snapshot: %v", err)
		}
		if !got.Equal(next) {
			t.Errorf("expected %v, got %v", next, got)
		}
	})

	t.Run("Accounts are isolated", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSnapshotRepository(db)
		if err := repo.Save("a", tu.Snapshot()); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}

		_, _, err := repo.Load("b")
		if !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})
}

func TestChangeRepository(t *testing.T) {
	t.Run("Create assigns id and sequence", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewChangeRepository(db)
		first := newChange("acct", "usage-reports", models.FrequencyMonthly, models.FrequencyWeekly)
		second := newChange("acct", "api-changes", models.FrequencyWeekly, models.FrequencyNone)

		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create change: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create change: %v", err)
		}

		if first.ID() == "" || !shared.IsValidID(first.ID()) {
			t.Errorf("expected generated id, got %q", first.ID())
		}
		if first.Sequence != 1 || second.Sequence != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
		}
	})

	t.Run("Create rejects invalid records", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		change := newChange("", "usage-reports", models.FrequencyMonthly, models.FrequencyWeekly)
		if err := NewChangeRepository(db).Create(change); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewChangeRepository(db)
		change := newChange("acct", "usage-reports", models.FrequencyMonthly, models.FrequencyDaily)
		if err := repo.Create(change); err != nil {
			t.Fatalf("failed to create change: %v", err)
		}

		got, err := repo.Get(change.ID())
		if err != nil {
			t.Fatalf("failed to get change: %v", err)
		}
		if got.EmailTypeID != "usage-reports" || got.Previous != models.FrequencyMonthly || got.Next != models.FrequencyDaily {
			t.Errorf("unexpected change: %+v", got)
		}
		if got.Source != models.SourceItem || got.Status != models.StatusApplied {
			t.Errorf("unexpected source/status: %s/%s", got.Source, got.Status)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewChangeRepository(db).Get("missing")
		if !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Update status", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewChangeRepository(db)
		change := newChange("acct", "usage-reports", models.FrequencyMonthly, models.FrequencyDaily)
		if err := repo.Create(change); err != nil {
			t.Fatalf("failed to create change: %v", err)
		}

		change.Status = models.StatusRolledBack
		if err := repo.Update(change); err != nil {
			t.Fatalf("failed to update change: %v", err)
		}

		got, err := repo.Get(change.ID())
		if err != nil {
			t.Fatalf("failed to get change: %v", err)
		}
		if got.Status != models.StatusRolledBack {
			t.Errorf("expected rolled_back, got %s", got.Status)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewChangeRepository(db)
		change := newChange("acct", "usage-reports", models.FrequencyMonthly, models.FrequencyDaily)
		if err := repo.Create(change); err != nil {
			t.Fatalf("failed to create change: %v", err)
		}

		if err := repo.Delete(change.ID()); err != nil {
			t.Fatalf("failed to delete change: %v", err)
		}
		if err := repo.Delete(change.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})

	t.Run("List filters newest first", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewChangeRepository(db)
		changes := []*models.ChangeRecord{
			newChange("a", "usage-reports", models.FrequencyMonthly, models.FrequencyWeekly),
			newChange("a", "api-changes", models.FrequencyWeekly, models.FrequencyNone),
			newChange("b", "usage-reports", models.FrequencyMonthly, models.FrequencyDaily),
			newChange("a", "usage-reports", models.FrequencyWeekly, models.FrequencyDaily),
		}
		for _, c := range changes {
			if err := repo.Create(c); err != nil {
				t.Fatalf("failed to create change: %v", err)
			}
		}

		all, err := repo.List(map[string]any{"account": "a"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 || all[0].ID() != changes[3].ID() {
			t.Errorf("expected 3 changes newest first, got %d", len(all))
		}

		byType, err := repo.List(map[string]any{"account": "a", "email_type_id": "usage-reports"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(byType) != 2 {
			t.Errorf("expected 2 usage-reports changes, got %d", len(byType))
		}

		limited, err := repo.List(map[string]any{"limit": 1})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(limited) != 1 || limited[0].Sequence != 4 {
			t.Errorf("expected only the latest change, got %+v", limited)
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seq1, err := NextSequence(db, "preference_changes")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}

	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := NextSequence(db, "preference_changes")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}

	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}
