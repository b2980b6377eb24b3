package instructor

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"studio/internal/adapters/storage"
	domain "studio/internal/domain/instructor"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()

	in := domain.Instructor{ID: "i1", Name: "Sarah Jenkins", Bio: "Vinyasa", ImageURL: domain.AvatarURL("Sarah Jenkins")}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.GetByID(ctx, "i1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}

	in.Bio = "Vinyasa and Yin"
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save (update): %v", err)
	}
	got, _ = store.GetByID(ctx, "i1")
	if got.Bio != "Vinyasa and Yin" {
		t.Errorf("Bio = %q", got.Bio)
	}

	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()

	for _, in := range []domain.Instructor{
		{ID: "i2", Name: "Marcus Chen"},
		{ID: "i1", Name: "Elena Rodriguez"},
	} {
		if err := store.Save(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Elena Rodriguez" {
		t.Errorf("List = %+v", list)
	}

	if err := store.Delete(ctx, "i1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "i1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
