package stream

import (
	"cmp"
	"slices"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Sink collects events that leave the router without touching a session.
type Sink struct {
	// Final holds events that are displayed as they are.
	Final []*nostr.Event
	// Snapshots holds status snapshots for the snapshot resolver. They are
	// never displayed.
	Snapshots []*nostr.Event
}

// Route dispatches one event. Events must be routed in SortEvents order for
// the result to be deterministic. It returns the class the event was
// routed as.
func Route(ev *nostr.Event, sessions *SessionStore, sink *Sink) Class {
	class := Classify(ev)
	switch class {
	case ClassDropped:
	case ClassMetadata, ClassOther:
		sink.Final = append(sink.Final, ev)
	case ClassDelta:
		sessions.ApplyDelta(ev)
	case ClassTypingStart:
		sessions.ApplyTyping(ev)
	case ClassTypingStop:
		sessions.DeleteTyping(ev.PubKey)
	case ClassSnapshot:
		sink.Snapshots = append(sink.Snapshots, ev)
	case ClassFinalMessage:
		sink.Final = append(sink.Final, ev)
		sessions.Delete(ev.PubKey)
	}
	return class
}

// CompareEvents orders events by created_at ascending, then kind
// descending, then id ascending.
func CompareEvents(a, b *nostr.Event) int {
	if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Kind, a.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortEvents sorts events in routing order.
func SortEvents(events []*nostr.Event) {
	slices.SortStableFunc(events, CompareEvents)
}
