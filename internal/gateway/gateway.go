package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Gateway turns inbound relay events into projection runs. It files each
// event under its conversation, keeps the conversation index current, and
// enqueues a run on the conversation's lane.
type Gateway struct {
	conversations types.ConversationStore
	events        types.EventStore
	Queue         *Queue
	retry         *RetryPolicy

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway wired to the provided stores with the given
// concurrency limit for simultaneous run processing.
func New(conversations types.ConversationStore, events types.EventStore, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	q := NewQueue(concurrency)
	q.Coalesce = true
	return &Gateway{
		conversations: conversations,
		events:        events,
		Queue:         q,
		retry:         DefaultRetryPolicy(),
	}
}

// Retry returns the policy used for reconnecting to relays.
func (g *Gateway) Retry() *RetryPolicy { return g.retry }

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context and stops the queue, waiting for
// in-flight runs.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// ConversationIDFor returns the root id of the conversation ev belongs to:
// the root tag, else the reply tag, else the event's own id when it is a
// thread root. Events outside any conversation return false.
func ConversationIDFor(ev *nostr.Event) (types.ConversationID, bool) {
	if root := ev.Tags.Value(nostr.TagRoot); root != "" {
		return types.ConversationID(root), true
	}
	if parent := ev.Tags.Value(nostr.TagReply); parent != "" {
		return types.ConversationID(parent), true
	}
	if ev.Kind == nostr.KindThread && ev.ID != "" {
		return types.ConversationID(ev.ID), true
	}
	return "", false
}

// HandleEvent records ev under its conversation and enqueues a projection
// run. Duplicates and events outside any conversation are ignored.
func (g *Gateway) HandleEvent(ctx context.Context, ev *nostr.Event) error {
	if ev == nil || ev.ID == "" {
		return fmt.Errorf("handle event: missing id")
	}
	id, ok := ConversationIDFor(ev)
	if !ok {
		slog.Debug("event outside any conversation", "event_id", ev.ID, "kind", ev.Kind)
		return nil
	}

	conv, err := g.conversations.ResolveOrCreate(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve conversation: %w", err)
	}

	added, err := g.events.Append(ctx, id, ev)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if !added {
		return nil
	}

	if applyEvent(conv, ev) {
		if err := g.conversations.Update(ctx, conv); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
	}

	if _, err := g.Queue.Enqueue(NewRun(id, ev)); err != nil {
		return fmt.Errorf("enqueue run: %w", err)
	}
	return nil
}

// applyEvent folds index-level facts from ev into conv and reports whether
// anything changed.
func applyEvent(conv *types.Conversation, ev *nostr.Event) bool {
	changed := false
	if ev.Kind == nostr.KindConversationMetadata {
		if title := ev.Tags.Value(nostr.TagTitle); title != "" && title != conv.Title {
			conv.Title = title
			changed = true
		}
	}
	if conv.Project == "" {
		if scope := ev.Tags.Value(nostr.TagAddress); scope != "" {
			conv.Project = scope
			changed = true
		}
	}
	if ev.CreatedAt > conv.LastSeenAt {
		conv.LastSeenAt = ev.CreatedAt
		changed = true
	}
	return changed
}
