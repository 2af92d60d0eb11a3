// internal/types/models.go
package types

import (
	"time"
)

// Conversation is the index entry for one conversation tree.
type Conversation struct {
	ID         ConversationID `json:"id"`
	Title      string         `json:"title,omitempty"`
	Project    string         `json:"project,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	LastSeenAt int64          `json:"last_seen_at"`
}
