// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// ConversationID is the event id of a conversation's root event.
type ConversationID string

// RunID identifies one projection pass queued by the gateway.
type RunID string

// DeliveryKey routes rendered output to a delivery handler, e.g.
// "telegram:12345".
type DeliveryKey string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewDeliveryKey(parts ...string) DeliveryKey {
	return DeliveryKey(strings.Join(parts, ":"))
}
