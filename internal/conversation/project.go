// Package conversation projects an unordered set of protocol events into the
// linear, deduplicated list of display items for one conversation view.
package conversation

import (
	"slices"

	"github.com/tenex-chat/web-client-sub005/internal/stream"
	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Project builds the display list for the conversation rooted at root. A nil
// root keeps every event in scope; otherwise only the root and its direct
// replies are kept. Nested replies are left to whoever renders their parent.
//
// The result depends only on the set of events: input order and duplicate
// events do not change it. Project is safe to call concurrently; every call
// owns its session store.
func Project(events []*nostr.Event, root *nostr.Event) []types.DisplayItem {
	return Run(events, root).Items
}

// Result is one projection pass: the display items plus the status
// snapshots that were routed aside while building them.
type Result struct {
	Items     []types.DisplayItem
	Snapshots []*nostr.Event
}

// Run performs a projection pass and keeps the in-scope snapshots.
func Run(events []*nostr.Event, root *nostr.Event) Result {
	sessions := stream.NewSessionStore()
	sink := &stream.Sink{}

	scoped := Scope(Dedupe(events), root)
	stream.SortEvents(scoped)

	for _, ev := range scoped {
		stream.Route(ev, sessions, sink)
	}

	items := make([]types.DisplayItem, 0, len(sink.Final)+sessions.Len())
	for _, ev := range sink.Final {
		items = append(items, types.DisplayItem{ID: ev.ID, Event: ev})
	}
	items = append(items, sessions.Flush()...)

	items = slices.DeleteFunc(items, func(item types.DisplayItem) bool {
		return !item.HasTimestamp()
	})
	slices.SortStableFunc(items, compareItems)
	return Result{Items: items, Snapshots: sink.Snapshots}
}

// Dedupe drops nil events and repeated ids, keeping the first occurrence.
// The input slice is not modified.
func Dedupe(events []*nostr.Event) []*nostr.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]*nostr.Event, 0, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// Scope returns the root and the events that reply directly to it. With a
// nil root every event is returned. The result is a new slice.
func Scope(events []*nostr.Event, root *nostr.Event) []*nostr.Event {
	if root == nil {
		return slices.Clone(events)
	}
	out := make([]*nostr.Event, 0, len(events))
	for _, ev := range events {
		if ev.ID == root.ID || IsDirectReply(ev, root.ID) {
			out = append(out, ev)
		}
	}
	return out
}

// IsDirectReply reports whether ev's reply pointer (its first "e" tag)
// names parentID.
func IsDirectReply(ev *nostr.Event, parentID string) bool {
	return parentID != "" && ev.Tags.Value(nostr.TagReply) == parentID
}

// compareItems orders by timestamp, placing reasoning items first on ties.
func compareItems(a, b types.DisplayItem) int {
	if a.CreatedAt() != b.CreatedAt() {
		if a.CreatedAt() < b.CreatedAt() {
			return -1
		}
		return 1
	}
	ar, br := a.IsReasoning(), b.IsReasoning()
	switch {
	case ar && !br:
		return -1
	case br && !ar:
		return 1
	}
	return 0
}
