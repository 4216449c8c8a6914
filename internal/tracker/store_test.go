package tracker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genPackageName generates valid Android package names
func genPackageName() gopter.Gen {
	return gen.RegexMatch(`^[a-z][a-z0-9]{1,8}\.[a-z][a-z0-9]{1,8}(\.[a-z][a-z0-9]{1,8})?$`)
}

// genTrackedItem generates items with second-precision UTC timestamps
func genTrackedItem() gopter.Gen {
	return gopter.CombineGens(
		genPackageName(),
		genMarker(),
		gen.Int64Range(1500000000, 1900000000),
		gen.IntRange(0, 1000),
		gen.OneConstOf("", "app not found on storefront", "date not found on page"),
	).Map(func(values []interface{}) TrackedItem {
		checked := time.Unix(values[2].(int64), 0).UTC()
		return TrackedItem{
			ID:            values[0].(string),
			Marker:        values[1].(string),
			LastCheckedAt: checked,
			FetchCount:    values[3].(int),
			LastError:     values[4].(string),
			AddedAt:       checked.Add(-48 * time.Hour),
		}
	})
}

// =============================================================================
// Property-Based Tests
// =============================================================================

// TestStoreRoundTrip tests that Save then Load preserves items and order
func TestStoreRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Save/Load preserves items in insertion order", prop.ForAll(
		func(items []TrackedItem) bool {
			store, err := NewStore(t.TempDir())
			if err != nil {
				t.Logf("NewStore failed: %v", err)
				return false
			}

			db := NewDatabase()
			for _, item := range items {
				db.Put(item)
			}
			if err := store.Save(db); err != nil {
				t.Logf("Save failed: %v", err)
				return false
			}

			loaded, err := store.Load()
			if err != nil {
				t.Logf("Load failed: %v", err)
				return false
			}

			want := db.Items()
			got := loaded.Items()
			if len(got) != len(want) {
				return false
			}
			for i := range want {
				if got[i].ID != want[i].ID ||
					got[i].Marker != want[i].Marker ||
					got[i].FetchCount != want[i].FetchCount ||
					got[i].LastError != want[i].LastError ||
					!got[i].LastCheckedAt.Equal(want[i].LastCheckedAt) ||
					!got[i].AddedAt.Equal(want[i].AddedAt) ||
					!got[i].LastUpdateAt.Equal(want[i].LastUpdateAt) {
					t.Logf("Item %d differs: %+v vs %+v", i, got[i], want[i])
					return false
				}
			}
			return true
		},
		gen.SliceOf(genTrackedItem()),
	))

	properties.TestingRun(t)
}

// =============================================================================
// Unit Tests
// =============================================================================

// TestLoadMissingFile tests that a fresh data directory yields an empty database
func TestLoadMissingFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "data"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	db, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if db.Len() != 0 {
		t.Errorf("Expected empty database, got %d items", db.Len())
	}
}

// TestLoadLegacyDatabase tests reading files written by earlier releases
func TestLoadLegacyDatabase(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "org.telegram.messenger": {"last_update": "Jan 5, 2024", "check_date": "Jan 06, 2024"},
  "com.whatsapp": {"last_update": "Dec 17, 2023", "check_date": "Jan 06, 2024"},
  "com.android.chrome": {"last_update": "Feb 1, 2024", "check_date": "Feb 02, 2024"}
}`
	if err := os.WriteFile(filepath.Join(dir, DatabaseFileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write database: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	db, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	wantOrder := []string{"org.telegram.messenger", "com.whatsapp", "com.android.chrome"}
	items := db.Items()
	if len(items) != len(wantOrder) {
		t.Fatalf("Expected %d items, got %d", len(wantOrder), len(items))
	}
	for i, id := range wantOrder {
		if items[i].ID != id {
			t.Errorf("Item %d: expected %s, got %s", i, id, items[i].ID)
		}
	}

	tg, _ := db.Get("org.telegram.messenger")
	if tg.Marker != "Jan 5, 2024" {
		t.Errorf("Expected marker 'Jan 5, 2024', got %q", tg.Marker)
	}
	if got := tg.LastCheckedAt.Format("2006-01-02"); got != "2024-01-06" {
		t.Errorf("Expected legacy check date 2024-01-06, got %s", got)
	}
	if !tg.AddedAt.Equal(tg.LastCheckedAt) {
		t.Errorf("Expected AddedAt to default to the check date")
	}
}

// TestSaveWritesLegacyFields tests that older readers still find their fields
func TestSaveWritesLegacyFields(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	db := NewDatabase()
	db.Put(TrackedItem{
		ID:            "com.whatsapp",
		Marker:        "Dec 17, 2023",
		LastCheckedAt: time.Date(2024, time.January, 6, 12, 0, 0, 0, time.UTC),
		FetchCount:    3,
	})
	if err := store.Save(db); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("Failed to read database: %v", err)
	}
	for _, want := range []string{`"com.whatsapp"`, `"last_update": "Dec 17, 2023"`, `"check_date": "Jan 06, 2024"`, `"fetch_count": 3`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s in database file:\n%s", want, data)
		}
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temp file to be renamed away")
	}
}

// TestLoadCorruptedDatabase tests that a broken file is moved aside
func TestLoadCorruptedDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DatabaseFileName)
	if err := os.WriteFile(path, []byte(`{"com.whatsapp": {"last_update": `), 0644); err != nil {
		t.Fatalf("Failed to write database: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	db, err := store.Load()
	if !errors.Is(err, ErrStoreCorrupted) {
		t.Fatalf("Expected ErrStoreCorrupted, got %v", err)
	}
	if db == nil || db.Len() != 0 {
		t.Fatalf("Expected an empty database alongside the error")
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("Expected backup file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected corrupted file to be moved")
	}
}

// TestLoadEmptyFile tests that an empty file is an empty database
func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DatabaseFileName), []byte("  \n"), 0644); err != nil {
		t.Fatalf("Failed to write database: %v", err)
	}

	store, _ := NewStore(dir)
	db, err := store.Load()
	if err != nil || db.Len() != 0 {
		t.Errorf("Expected empty database, got %v (err=%v)", db.Len(), err)
	}
}

// TestDatabaseDelete tests removal and ordering after removal
func TestDatabaseDelete(t *testing.T) {
	db := NewDatabase()
	for i := 0; i < 4; i++ {
		db.Put(TrackedItem{ID: fmt.Sprintf("com.example.app%d", i)})
	}

	if err := db.Delete("com.example.app1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if db.Has("com.example.app1") {
		t.Errorf("Expected item to be removed")
	}

	err := db.Delete("com.example.missing")
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	want := []string{"com.example.app0", "com.example.app2", "com.example.app3"}
	items := db.Items()
	if len(items) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(items))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("Item %d: expected %s, got %s", i, id, items[i].ID)
		}
	}
}

// TestDatabasePutKeepsPosition tests that replacing an item keeps its slot
func TestDatabasePutKeepsPosition(t *testing.T) {
	db := NewDatabase()
	db.Put(TrackedItem{ID: "com.a.one", Marker: "Jan 1, 2024"})
	db.Put(TrackedItem{ID: "com.a.two", Marker: "Jan 1, 2024"})
	db.Put(TrackedItem{ID: "com.a.one", Marker: "Feb 1, 2024"})

	items := db.Items()
	if len(items) != 2 || items[0].ID != "com.a.one" || items[0].Marker != "Feb 1, 2024" {
		t.Errorf("Unexpected items %+v", items)
	}
}

// TestDatabaseRejectsNonObject tests that arrays are not databases
func TestDatabaseRejectsNonObject(t *testing.T) {
	db := NewDatabase()
	if err := db.UnmarshalJSON([]byte(`["com.whatsapp"]`)); err == nil {
		t.Errorf("Expected error for non-object JSON")
	}
}
