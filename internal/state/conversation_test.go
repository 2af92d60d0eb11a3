// internal/state/conversation_test.go
package state

import (
	"context"
	"testing"
	"time"

	"github.com/tenex-chat/web-client-sub005/internal/types"
)

func TestConversationStore(t *testing.T) {
	dir := t.TempDir()
	store := NewConversationStore(dir)
	ctx := context.Background()

	conv, err := store.ResolveOrCreate(ctx, "root-1")
	if err != nil {
		t.Fatal(err)
	}
	if conv.ID != "root-1" || conv.CreatedAt.IsZero() {
		t.Errorf("unexpected conversation: %+v", conv)
	}

	conv.Title = "Build the thing"
	if err := store.Update(ctx, conv); err != nil {
		t.Fatal(err)
	}

	again, err := store.ResolveOrCreate(ctx, "root-1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Title != "Build the thing" {
		t.Errorf("expected stored title, got %q", again.Title)
	}

	got, err := store.Get(ctx, "root-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Build the thing" {
		t.Errorf("expected stored title, got %q", got.Title)
	}

	if _, err := store.Get(ctx, "missing"); err == nil {
		t.Error("expected error for missing conversation")
	}
}

func TestConversationStore_ListOrder(t *testing.T) {
	store := NewConversationStore(t.TempDir())
	ctx := context.Background()

	clock := time.Unix(1000, 0)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, id := range []types.ConversationID{"a", "b", "c"} {
		if _, err := store.ResolveOrCreate(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	a, _ := store.Get(ctx, "a")
	if err := store.Update(ctx, a); err != nil {
		t.Fatal(err)
	}

	convs, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []types.ConversationID
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	want := []types.ConversationID{"a", "c", "b"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestConversationStore_Delete(t *testing.T) {
	store := NewConversationStore(t.TempDir())
	ctx := context.Background()

	if _, err := store.ResolveOrCreate(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "gone"); err == nil {
		t.Error("expected conversation to be deleted")
	}
	if err := store.Delete(ctx, "gone"); err == nil {
		t.Error("expected error deleting a missing conversation")
	}
}
