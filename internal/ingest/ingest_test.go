package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tenex-chat/web-client-sub005/internal/gateway"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

type recorder struct {
	mu     sync.Mutex
	events []*nostr.Event
	got    chan struct{}
}

func newRecorder() *recorder { return &recorder{got: make(chan struct{}, 100)} }

func (r *recorder) HandleEvent(_ context.Context, ev *nostr.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d events", i, n)
		}
	}
}

// relayServer answers each REQ with events and EOSE. With dropAfter set it
// closes the connection once the batch is sent.
func relayServer(t *testing.T, dropAfter bool, events ...nostr.Event) (*httptest.Server, *atomic.Int32, chan []json.RawMessage) {
	t.Helper()
	var conns atomic.Int32
	reqs := make(chan []json.RawMessage, 10)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg []json.RawMessage
			if err := json.Unmarshal(data, &msg); err != nil || len(msg) < 2 {
				continue
			}
			var label, subID string
			_ = json.Unmarshal(msg[0], &label)
			_ = json.Unmarshal(msg[1], &subID)
			if label != nostr.LabelReq {
				continue
			}
			select {
			case reqs <- msg:
			default:
			}
			for _, ev := range events {
				out, _ := json.Marshal([]any{nostr.LabelEvent, subID, ev})
				_ = conn.WriteMessage(websocket.TextMessage, out)
			}
			out, _ := json.Marshal([]string{nostr.LabelEOSE, subID})
			_ = conn.WriteMessage(websocket.TextMessage, out)
			if dropAfter {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns, reqs
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func fastRetry() *gateway.RetryPolicy {
	return &gateway.RetryPolicy{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, Multiplier: 1, MaxDelay: 10 * time.Millisecond}
}

func TestFilters(t *testing.T) {
	in := New(Options{Project: "31933:owner:proj", Lookback: time.Hour}, newRecorder(), nil)
	in.now = func() time.Time { return time.Unix(10_000, 0) }

	filters := in.Filters()
	if len(filters) != 1 {
		t.Fatalf("expected one filter, got %d", len(filters))
	}
	f := filters[0]
	if f.Since != 10_000-3600 {
		t.Errorf("expected since one hour back, got %d", f.Since)
	}
	if got := f.Tags[nostr.TagAddress]; len(got) != 1 || got[0] != "31933:owner:proj" {
		t.Errorf("expected project tag filter, got %v", f.Tags)
	}
	if len(f.Kinds) != len(nostr.ConversationKinds) {
		t.Errorf("expected conversation kinds, got %v", f.Kinds)
	}
}

func TestRunForwardsEvents(t *testing.T) {
	srv, _, reqs := relayServer(t, false,
		nostr.Event{ID: "a", Kind: nostr.KindGenericReply, CreatedAt: 1},
		nostr.Event{ID: "b", Kind: nostr.KindStreamingResponse, CreatedAt: 2},
	)
	rec := newRecorder()
	in := New(Options{Relays: []string{wsURL(srv)}}, rec, fastRetry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	rec.wait(t, 2)
	select {
	case msg := <-reqs:
		var label string
		_ = json.Unmarshal(msg[0], &label)
		if label != nostr.LabelReq || len(msg) != 3 {
			t.Errorf("unexpected REQ: %s", msg)
		}
	default:
		t.Error("relay saw no REQ")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReconnects(t *testing.T) {
	srv, conns, _ := relayServer(t, true, nostr.Event{ID: "a", Kind: nostr.KindGenericReply, CreatedAt: 1})
	rec := newRecorder()
	in := New(Options{Relays: []string{wsURL(srv)}}, rec, fastRetry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go in.Run(ctx)

	rec.wait(t, 2)
	if n := conns.Load(); n < 2 {
		t.Errorf("expected a reconnect, saw %d connections", n)
	}
}

func TestRunWithoutRelays(t *testing.T) {
	in := New(Options{}, newRecorder(), nil)
	if err := in.Run(context.Background()); err == nil {
		t.Error("expected error with no relays")
	}
}
