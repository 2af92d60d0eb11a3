// internal/types/display.go
package types

import (
	"encoding/json"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Origin says where a display item's content came from.
type Origin string

const (
	OriginEvent  Origin = "event"
	OriginStream Origin = "stream"
	OriginTyping Origin = "typing"
)

// Synthetic marks a display item reconstructed from a streaming session.
// Content replaces the originating event's raw content.
type Synthetic struct {
	Origin  Origin
	Content string
}

// DisplayItem is the unit handed to renderers. Event is the real event for
// final messages, or the latest event of the session for synthetic items.
// The event is shared and must be treated as read-only.
type DisplayItem struct {
	ID        string
	Event     *nostr.Event
	Synthetic *Synthetic
}

func (d DisplayItem) IsSynthetic() bool { return d.Synthetic != nil }

func (d DisplayItem) Origin() Origin {
	if d.Synthetic != nil {
		return d.Synthetic.Origin
	}
	return OriginEvent
}

func (d DisplayItem) Content() string {
	if d.Synthetic != nil {
		return d.Synthetic.Content
	}
	if d.Event == nil {
		return ""
	}
	return d.Event.Content
}

func (d DisplayItem) CreatedAt() int64 {
	if d.Event == nil {
		return 0
	}
	return d.Event.CreatedAt
}

func (d DisplayItem) HasTimestamp() bool { return d.Event.HasTimestamp() }

func (d DisplayItem) PubKey() string {
	if d.Event == nil {
		return ""
	}
	return d.Event.PubKey
}

func (d DisplayItem) Kind() int {
	if d.Event == nil {
		return 0
	}
	return d.Event.Kind
}

func (d DisplayItem) Tags() nostr.Tags {
	if d.Event == nil {
		return nil
	}
	return d.Event.Tags
}

// IsReasoning reports whether the item carries the reasoning marker tag.
func (d DisplayItem) IsReasoning() bool {
	return d.Tags().Has(nostr.TagReasoning)
}

// View returns an event-shaped copy of the item so generic renderers need
// not tell real and synthetic items apart. Synthetic views carry the
// stand-in id and no signature.
func (d DisplayItem) View() nostr.Event {
	var ev nostr.Event
	if d.Event != nil {
		ev = *d.Event.Clone()
	}
	ev.ID = d.ID
	if d.Synthetic != nil {
		ev.Content = d.Synthetic.Content
		ev.Sig = ""
	}
	return ev
}

type displayItemJSON struct {
	ID        string      `json:"id"`
	Event     nostr.Event `json:"event"`
	Synthetic bool        `json:"synthetic"`
	Origin    Origin      `json:"origin"`
	SourceID  string      `json:"source_id,omitempty"`
}

func (d DisplayItem) MarshalJSON() ([]byte, error) {
	out := displayItemJSON{
		ID:        d.ID,
		Event:     d.View(),
		Synthetic: d.IsSynthetic(),
		Origin:    d.Origin(),
	}
	if d.Synthetic != nil && d.Event != nil {
		out.SourceID = d.Event.ID
	}
	return json.Marshal(out)
}
