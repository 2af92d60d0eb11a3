// internal/state/watch_test.go
package state

import (
	"path/filepath"
	"testing"
)

func newWatch(name string) *Watch {
	return &Watch{
		Name:         name,
		Conversation: "root-1",
		Schedule:     "0 9 * * *",
		Target:       "telegram:123",
		Enabled:      true,
	}
}

func TestWatchStore_ListEmpty(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "watches.json"))

	watches, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(watches) != 0 {
		t.Errorf("expected empty list, got %d watches", len(watches))
	}
}

func TestWatchStore_AddAndGet(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "watches.json"))

	if err := store.Add(newWatch("morning")); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get("morning")
	if err != nil {
		t.Fatal(err)
	}
	if got.Conversation != "root-1" || got.Target != "telegram:123" || got.Schedule != "0 9 * * *" {
		t.Errorf("unexpected watch: %+v", got)
	}

	if err := store.Add(newWatch("morning")); err == nil {
		t.Error("expected error for duplicate watch name")
	}
	if err := store.Add(&Watch{Name: "x"}); err == nil {
		t.Error("expected error for watch without conversation")
	}
	if _, err := store.Get("nonexistent"); err == nil {
		t.Error("expected error for nonexistent watch")
	}
}

func TestWatchStore_RemoveAndSetEnabled(t *testing.T) {
	store := NewWatchStore(filepath.Join(t.TempDir(), "watches.json"))

	if err := store.Add(newWatch("a")); err != nil {
		t.Fatal(err)
	}
	if err := store.SetEnabled("a", false); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled {
		t.Error("expected watch to be disabled")
	}

	if err := store.Remove("a"); err != nil {
		t.Fatal(err)
	}
	watches, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(watches) != 0 {
		t.Errorf("expected empty list after remove, got %d", len(watches))
	}
	if err := store.Remove("a"); err == nil {
		t.Error("expected error removing a missing watch")
	}
	if err := store.SetEnabled("a", true); err == nil {
		t.Error("expected error enabling a missing watch")
	}
}

func TestWatchStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watches.json")

	if err := NewWatchStore(path).Add(newWatch("persist")); err != nil {
		t.Fatal(err)
	}
	watches, err := NewWatchStore(path).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(watches) != 1 || watches[0].Name != "persist" {
		t.Errorf("expected persisted watch, got %+v", watches)
	}
}
