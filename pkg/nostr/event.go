// Package nostr holds the wire types of the Nostr protocol that the rest of
// the module reads: events, tags, filters and relay envelopes.
package nostr

// Event is a signed protocol event as delivered by a relay. Events are
// content-addressed by ID and never mutated after they are observed.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig,omitempty"`
}

// HasTimestamp reports whether the event carries a usable created_at.
func (e *Event) HasTimestamp() bool {
	return e != nil && e.CreatedAt > 0
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.Tags = e.Tags.Clone()
	return &out
}
