package gateway

import (
	"context"
	"time"

	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one projection pass over a conversation, triggered by Event.
// The processor reads the whole stored conversation, so a run covers every
// event recorded before it started.
type Run struct {
	ID             types.RunID
	ConversationID types.ConversationID
	Event          *nostr.Event
	Status         RunStatus
	Attempts       int
	CreatedAt      time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	Error          error

	// Ctx is set by the queue before the processor is called.
	Ctx context.Context
}

// NewRun creates a Run in the Queued state for the given conversation and event.
func NewRun(id types.ConversationID, ev *nostr.Event) *Run {
	return &Run{
		ID:             types.NewRunID(),
		ConversationID: id,
		Event:          ev,
		Status:         RunStatusQueued,
		CreatedAt:      time.Now(),
	}
}
