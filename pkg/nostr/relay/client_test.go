package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// fakeRelay answers every REQ with the canned events followed by EOSE.
func fakeRelay(t *testing.T, events ...nostr.Event) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
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
			for _, ev := range events {
				out, _ := json.Marshal([]any{nostr.LabelEvent, subID, ev})
				_ = conn.WriteMessage(websocket.TextMessage, out)
			}
			out, _ := json.Marshal([]string{nostr.LabelEOSE, subID})
			_ = conn.WriteMessage(websocket.TextMessage, out)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	srv := fakeRelay(t,
		nostr.Event{ID: "1", Kind: nostr.KindGenericReply, CreatedAt: 10, Content: "hello"},
		nostr.Event{ID: "2", Kind: nostr.KindTextNote, CreatedAt: 11, Content: "filtered out"},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sub, err := c.Subscribe(ctx, nostr.Filter{Kinds: []int{nostr.KindGenericReply}})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-sub.Events:
		if ev.ID != "1" {
			t.Errorf("expected event 1, got %s", ev.ID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	select {
	case <-sub.EOSE:
	case <-ctx.Done():
		t.Fatal("timed out waiting for EOSE")
	}

	select {
	case ev := <-sub.Events:
		t.Errorf("unexpected extra event %s", ev.ID)
	default:
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	srv := fakeRelay(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	sub, err := c.Subscribe(ctx, nostr.Filter{Kinds: []int{1}})
	if err != nil {
		t.Fatal(err)
	}

	c.Close()

	select {
	case <-sub.Done():
	case <-ctx.Done():
		t.Fatal("subscription not ended by Close")
	}
	if _, err := c.Subscribe(ctx); err != ErrClosed {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	srv := fakeRelay(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	subCtx, subCancel := context.WithCancel(ctx)
	sub, err := c.Subscribe(subCtx)
	if err != nil {
		t.Fatal(err)
	}
	subCancel()

	select {
	case <-sub.Done():
	case <-ctx.Done():
		t.Fatal("subscription not ended by context cancel")
	}
}
