package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tenex-chat/web-client-sub005/internal/delivery"
	"github.com/tenex-chat/web-client-sub005/internal/gateway"
	"github.com/tenex-chat/web-client-sub005/internal/state"
	"github.com/tenex-chat/web-client-sub005/internal/transcript"
	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

func seed(t *testing.T, store *state.EventStore, conv types.ConversationID, events ...*nostr.Event) {
	t.Helper()
	for _, ev := range events {
		if _, err := store.Append(context.Background(), conv, ev); err != nil {
			t.Fatal(err)
		}
	}
}

func TestProcessorProject(t *testing.T) {
	store := state.NewEventStore(t.TempDir())
	seed(t, store, "root",
		&nostr.Event{ID: "root", PubKey: "user", Kind: nostr.KindThread, CreatedAt: 1, Content: "go"},
		&nostr.Event{ID: "d1", PubKey: "agent", Kind: nostr.KindStreamingResponse, CreatedAt: 2, Content: "wor",
			Tags: nostr.Tags{{"e", "root"}, {"sequence", "1"}}},
		&nostr.Event{ID: "d2", PubKey: "agent", Kind: nostr.KindStreamingResponse, CreatedAt: 3, Content: "king",
			Tags: nostr.Tags{{"e", "root"}, {"sequence", "2"}}},
		&nostr.Event{ID: "s1", PubKey: "pm", Kind: nostr.KindOperationsStatus, CreatedAt: 3,
			Tags: nostr.Tags{{"e", "root"}, {"a", "31933:o:p"}, {"p", "agent"}}},
	)

	p := NewProcessor(store, nil)
	u, err := p.Project(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Items) != 2 || u.Items[1].Content() != "working" {
		t.Fatalf("unexpected items: %+v", u.Items)
	}
	if !u.Active || len(u.Status) != 1 || u.Status[0].Workers[0] != "agent" {
		t.Errorf("expected active status, got %+v", u.Status)
	}
}

func TestProcessorMissingRoot(t *testing.T) {
	store := state.NewEventStore(t.TempDir())
	seed(t, store, "root",
		&nostr.Event{ID: "r1", Kind: nostr.KindGenericReply, CreatedAt: 2, Tags: nostr.Tags{{"e", "root"}}},
		&nostr.Event{ID: "n1", Kind: nostr.KindGenericReply, CreatedAt: 3, Tags: nostr.Tags{{"e", "r1"}, {"E", "root"}}},
	)

	u, err := NewProcessor(store, nil).Project(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Items) != 1 || u.Items[0].ID != "r1" {
		t.Errorf("expected only the direct reply, got %+v", u.Items)
	}
}

func TestProcessorPublishes(t *testing.T) {
	store := state.NewEventStore(t.TempDir())
	seed(t, store, "root", &nostr.Event{ID: "root", Kind: nostr.KindThread, CreatedAt: 1})

	bus := NewBus()
	ch := bus.Subscribe("test", "root")
	other := bus.Subscribe("other", "elsewhere")
	p := NewProcessor(store, bus)

	run := gateway.NewRun("root", nil)
	if err := p.Process(run); err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-ch:
		if u.ConversationID != "root" || u.RunID != run.ID {
			t.Errorf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an update")
	}
	select {
	case u := <-other:
		t.Errorf("filtered subscriber received %+v", u)
	default:
	}

	if latest, ok := p.Latest("root"); !ok || latest.RunID != run.ID {
		t.Error("expected latest update to be cached")
	}
	p.Forget("root")
	if _, ok := p.Latest("root"); ok {
		t.Error("expected cache entry to be dropped")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("slow", "")
	for i := 0; i < 100; i++ {
		bus.Publish(Update{ConversationID: "c"})
	}
	bus.Unsubscribe("slow")
	if bus.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", bus.Len())
	}
}

func TestDigesterSend(t *testing.T) {
	dir := t.TempDir()
	events := state.NewEventStore(dir)
	conversations := state.NewConversationStore(dir)
	ctx := context.Background()

	conv, err := conversations.ResolveOrCreate(ctx, "root")
	if err != nil {
		t.Fatal(err)
	}
	conv.Title = "Release"
	if err := conversations.Update(ctx, conv); err != nil {
		t.Fatal(err)
	}
	seed(t, events, "root",
		&nostr.Event{ID: "root", PubKey: "user", Kind: nostr.KindThread, CreatedAt: 60, Content: "cut the release"},
		&nostr.Event{ID: "r1", PubKey: "agent", Kind: nostr.KindGenericReply, CreatedAt: 120, Content: "done",
			Tags: nostr.Tags{{"e", "root"}}},
	)

	engine, err := transcript.New("gpt-4", 0)
	if err != nil {
		t.Fatal(err)
	}
	registry := delivery.NewRegistry()
	var got string
	registry.Register("log:", func(_, message string) error {
		got = message
		return nil
	})

	d := NewDigester(conversations, NewProcessor(events, nil), engine, registry, nil)
	if err := d.Send(ctx, "root", "log:test"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "# Release") || !strings.Contains(got, "agent: done") {
		t.Errorf("unexpected digest:\n%s", got)
	}

	if err := d.Send(ctx, "missing", "log:test"); err == nil {
		t.Error("expected error for unknown conversation")
	}
}
