package repositories

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newRepo returns a repository whose clock advances one second per call.
func newRepo(t *testing.T) *RecordRepository {
	t.Helper()
	repo := NewRecordRepository(setupTestDB(t))

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func customer(id, name string) models.Record {
	return models.DecodeRecord(map[string]any{"id": id, "name": name, "isActive": true})
}

func TestRecordRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		t.Run("assigns id and creation time", func(t *testing.T) {
			repo := newRepo(t)

			created, err := repo.Create(ctx, "customers", models.DecodeRecord(map[string]any{"name": "Aysel"}))
			if err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
			if created.ID == "" {
				t.Error("record ID should be set after creation")
			}
			if created.CreatedAt.IsZero() {
				t.Error("creation time should be set")
			}
			if created.Text("name") != "Aysel" {
				t.Errorf("expected name to round-trip, got %q", created.Text("name"))
			}
		})

		t.Run("keeps a given id", func(t *testing.T) {
			repo := newRepo(t)

			created, err := repo.Create(ctx, "customers", customer("c-1", "Aysel"))
			if err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
			if created.ID != "c-1" || created.Status != models.StatusActive {
				t.Errorf("unexpected record %+v", created)
			}
		})

		t.Run("duplicate id", func(t *testing.T) {
			repo := newRepo(t)
			if _, err := repo.Create(ctx, "customers", customer("c-1", "A")); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
			if _, err := repo.Create(ctx, "customers", customer("c-1", "B")); err == nil {
				t.Fatal("expected error when creating a duplicate id")
			}
		})

		t.Run("same id in another resource", func(t *testing.T) {
			repo := newRepo(t)
			if _, err := repo.Create(ctx, "customers", customer("1", "A")); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
			if _, err := repo.Create(ctx, "staff", customer("1", "B")); err != nil {
				t.Fatalf("ids are scoped per resource: %v", err)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Create(ctx, "rooms", models.DecodeRecord(map[string]any{"id": "204", "floor": float64(2)})); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		got, err := repo.Get(ctx, "rooms", "204")
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.Text("floor") != "2" {
			t.Errorf("expected floor 2, got %q", got.Text("floor"))
		}

		t.Run("NotFound", func(t *testing.T) {
			if _, err := repo.Get(ctx, "rooms", "999"); !errors.Is(err, shared.ErrRecordNotFound) {
				t.Errorf("expected ErrRecordNotFound, got %v", err)
			}
		})

		t.Run("scoped to resource", func(t *testing.T) {
			if _, err := repo.Get(ctx, "customers", "204"); !errors.Is(err, shared.ErrRecordNotFound) {
				t.Errorf("expected ErrRecordNotFound across resources, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"1", "2", "3"} {
			if _, err := repo.Create(ctx, "customers", customer(id, "Guest "+id)); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}
		if _, err := repo.Create(ctx, "staff", customer("s1", "Staff")); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		records, err := repo.List(ctx, "customers")
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}

		ids := models.PageResult{Items: records}.IDs()
		if !slices.Equal(ids, []string{"3", "2", "1"}) {
			t.Errorf("expected newest first, got %v", ids)
		}

		empty, err := repo.List(ctx, "routers")
		if err != nil || len(empty) != 0 {
			t.Errorf("expected empty list, got %v (%v)", empty, err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, "customers", models.DecodeRecord(map[string]any{
			"id": "c-1", "name": "Aysel", "phone": "+994", "isActive": true,
		}))
		if err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		updated, err := repo.Update(ctx, "customers", "c-1", models.DecodeRecord(map[string]any{"isActive": false}))
		if err != nil {
			t.Fatalf("failed to update record: %v", err)
		}
		if updated.Status != models.StatusInactive {
			t.Errorf("expected inactive, got %v", updated.Status)
		}
		if updated.Text("phone") != "+994" {
			t.Error("expected untouched fields to survive a partial update")
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("expected creation time to be kept, got %v want %v", updated.CreatedAt, created.CreatedAt)
		}

		stored, _ := repo.Get(ctx, "customers", "c-1")
		if stored.Status != models.StatusInactive {
			t.Error("expected update to be persisted")
		}

		t.Run("NotFound", func(t *testing.T) {
			if _, err := repo.Update(ctx, "customers", "missing", customer("", "x")); !errors.Is(err, shared.ErrRecordNotFound) {
				t.Errorf("expected ErrRecordNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Create(ctx, "customers", customer("c-1", "A")); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		if err := repo.Delete(ctx, "customers", "c-1"); err != nil {
			t.Fatalf("failed to delete record: %v", err)
		}
		if err := repo.Delete(ctx, "customers", "c-1"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})

	t.Run("DeleteMany counts existing records", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"1", "2", "3"} {
			if _, err := repo.Create(ctx, "customers", customer(id, "Guest")); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		n, err := repo.DeleteMany(ctx, "customers", []string{"1", "3", "missing"})
		if err != nil {
			t.Fatalf("DeleteMany() error = %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 affected, got %d", n)
		}
		if count, _ := repo.Count(ctx, "customers"); count != 1 {
			t.Errorf("expected 1 remaining, got %d", count)
		}
	})

	t.Run("UpdateMany skips unknown ids", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []string{"1", "2"} {
			if _, err := repo.Create(ctx, "reservations", models.DecodeRecord(map[string]any{"id": id, "status": "Pending"})); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		updated, err := repo.UpdateMany(ctx, "reservations", []string{"2", "x", "1"}, models.DecodeRecord(map[string]any{"status": "Approved"}))
		if err != nil {
			t.Fatalf("UpdateMany() error = %v", err)
		}
		if ids := (models.PageResult{Items: updated}).IDs(); !slices.Equal(ids, []string{"2", "1"}) {
			t.Errorf("unexpected updated ids %v", ids)
		}
		for _, r := range updated {
			if r.StatusLabel != "Approved" {
				t.Errorf("expected Approved, got %q", r.StatusLabel)
			}
		}
	})
}
