// internal/types/display_test.go
package types

import (
	"encoding/json"
	"testing"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

func TestDisplayItemViewReplacesContent(t *testing.T) {
	src := &nostr.Event{ID: "delta-3", PubKey: "agent", CreatedAt: 42, Kind: nostr.KindStreamingResponse, Content: "chunk", Sig: "sig"}
	item := DisplayItem{
		ID:        "streaming-agent",
		Event:     src,
		Synthetic: &Synthetic{Origin: OriginStream, Content: "full text"},
	}

	view := item.View()
	if view.ID != "streaming-agent" {
		t.Errorf("expected stand-in id, got %s", view.ID)
	}
	if view.Content != "full text" {
		t.Errorf("expected reconstructed content, got %q", view.Content)
	}
	if view.Sig != "" {
		t.Error("synthetic view must not carry the source signature")
	}
	if src.Content != "chunk" {
		t.Error("View mutated the source event")
	}
	if item.CreatedAt() != 42 || item.PubKey() != "agent" {
		t.Errorf("unexpected metadata: %d %s", item.CreatedAt(), item.PubKey())
	}
}

func TestDisplayItemRealEvent(t *testing.T) {
	ev := &nostr.Event{ID: "abc", Content: "hi", Tags: nostr.Tags{{"reasoning"}}}
	item := DisplayItem{ID: ev.ID, Event: ev}

	if item.IsSynthetic() || item.Origin() != OriginEvent {
		t.Error("real event reported as synthetic")
	}
	if !item.IsReasoning() {
		t.Error("expected reasoning marker")
	}
	if item.HasTimestamp() {
		t.Error("event without created_at has no timestamp")
	}
}

func TestDisplayItemJSON(t *testing.T) {
	item := DisplayItem{
		ID:        "typing-bob",
		Event:     &nostr.Event{ID: "t1", PubKey: "bob", CreatedAt: 5, Content: "typing"},
		Synthetic: &Synthetic{Origin: OriginTyping, Content: "typing"},
	}
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["synthetic"] != true || decoded["origin"] != "typing" || decoded["source_id"] != "t1" {
		t.Errorf("unexpected JSON: %s", data)
	}
}
