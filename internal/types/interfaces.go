// internal/types/interfaces.go
package types

import (
	"context"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

type ConversationStore interface {
	ResolveOrCreate(ctx context.Context, id ConversationID) (*Conversation, error)
	Get(ctx context.Context, id ConversationID) (*Conversation, error)
	List(ctx context.Context) ([]*Conversation, error)
	Update(ctx context.Context, conv *Conversation) error
}

type EventStore interface {
	// Append records ev under the conversation. It reports false when an
	// event with the same id was already recorded.
	Append(ctx context.Context, id ConversationID, ev *nostr.Event) (bool, error)
	List(ctx context.Context, id ConversationID) ([]*nostr.Event, error)
	Count(ctx context.Context, id ConversationID) (int64, error)
}
