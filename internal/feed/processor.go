// Package feed runs projection passes for queued conversations and
// publishes the results.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tenex-chat/web-client-sub005/internal/conversation"
	"github.com/tenex-chat/web-client-sub005/internal/gateway"
	"github.com/tenex-chat/web-client-sub005/internal/status"
	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Update is the projected state of one conversation.
type Update struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	RunID          types.RunID          `json:"run_id,omitempty"`
	Items          []types.DisplayItem  `json:"items"`
	Status         []status.Snapshot    `json:"status"`
	Active         bool                 `json:"active"`
	At             time.Time            `json:"at"`
}

// Processor loads a conversation's stored events, projects them, and
// publishes the result on the bus. It keeps the latest update per
// conversation for late readers.
type Processor struct {
	events types.EventStore
	bus    *Bus

	mu     sync.RWMutex
	latest map[types.ConversationID]Update
}

// NewProcessor creates a Processor reading from events and publishing to bus.
func NewProcessor(events types.EventStore, bus *Bus) *Processor {
	return &Processor{
		events: events,
		bus:    bus,
		latest: make(map[types.ConversationID]Update),
	}
}

// Process is the gateway queue processor.
func (p *Processor) Process(run *gateway.Run) error {
	ctx := run.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := p.Project(ctx, run.ConversationID)
	if err != nil {
		return err
	}
	u.RunID = run.ID

	p.mu.Lock()
	p.latest[run.ConversationID] = u
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(u)
	}
	slog.Debug("conversation projected", "conversation_id", string(run.ConversationID), "items", len(u.Items), "active", u.Active)
	return nil
}

// Project builds the current update for a conversation from the store
// without publishing it.
func (p *Processor) Project(ctx context.Context, id types.ConversationID) (Update, error) {
	events, err := p.events.List(ctx, id)
	if err != nil {
		return Update{}, fmt.Errorf("list events: %w", err)
	}

	res := conversation.Run(events, rootOf(events, id))
	snaps := statusOf(res.Snapshots)

	u := Update{
		ConversationID: id,
		Items:          res.Items,
		Status:         snaps,
		At:             time.Now(),
	}
	for _, s := range snaps {
		if s.SubjectEventID == string(id) && s.Active() {
			u.Active = true
			break
		}
	}
	return u, nil
}

// Latest returns the most recent published update for a conversation.
func (p *Processor) Latest(id types.ConversationID) (Update, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.latest[id]
	return u, ok
}

// Forget drops the cached update for a conversation.
func (p *Processor) Forget(id types.ConversationID) {
	p.mu.Lock()
	delete(p.latest, id)
	p.mu.Unlock()
}

// rootOf finds the conversation root among events. When the root has not
// arrived yet a bare stand-in keeps the direct-reply scope without adding a
// display item.
func rootOf(events []*nostr.Event, id types.ConversationID) *nostr.Event {
	for _, ev := range events {
		if ev.ID == string(id) {
			return ev
		}
	}
	return &nostr.Event{ID: string(id)}
}

// statusOf resolves snapshots into a slice ordered by subject then scope.
func statusOf(events []*nostr.Event) []status.Snapshot {
	resolved := status.ResolveAll(events)
	out := make([]status.Snapshot, 0, len(resolved))
	for _, s := range resolved {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b status.Snapshot) int {
		if c := strings.Compare(a.SubjectEventID, b.SubjectEventID); c != 0 {
			return c
		}
		return strings.Compare(a.ScopeID, b.ScopeID)
	})
	return out
}
