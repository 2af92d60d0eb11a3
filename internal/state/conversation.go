// internal/state/conversation.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/tenex-chat/web-client-sub005/internal/types"
)

// ConversationStore is a JSON-file-backed conversation index stored in
// conversations/conversations.json.
type ConversationStore struct {
	root string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewConversationStore creates a new file-backed ConversationStore rooted at the given directory.
func NewConversationStore(root string) *ConversationStore {
	return &ConversationStore{root: root, now: time.Now}
}

func (s *ConversationStore) indexPath() string {
	return filepath.Join(s.root, "conversations", "conversations.json")
}

func (s *ConversationStore) loadIndex() (map[types.ConversationID]*types.Conversation, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[types.ConversationID]*types.Conversation), nil
		}
		return nil, fmt.Errorf("read conversation index: %w", err)
	}

	var convs []*types.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("unmarshal conversation index: %w", err)
	}

	index := make(map[types.ConversationID]*types.Conversation, len(convs))
	for _, c := range convs {
		index[c.ID] = c
	}
	return index, nil
}

func (s *ConversationStore) saveIndex(index map[types.ConversationID]*types.Conversation) error {
	return writeJSON(s.indexPath(), sorted(index))
}

// sorted returns conversations most recently updated first, ties by id.
func sorted(index map[types.ConversationID]*types.Conversation) []*types.Conversation {
	convs := make([]*types.Conversation, 0, len(index))
	for _, c := range index {
		convs = append(convs, c)
	}
	slices.SortFunc(convs, func(a, b *types.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return convs
}

// ResolveOrCreate returns the conversation with the given root id, creating
// an index entry if needed.
func (s *ConversationStore) ResolveOrCreate(_ context.Context, id types.ConversationID) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if existing, ok := index[id]; ok {
		return existing, nil
	}

	now := s.now()
	conv := &types.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	index[id] = conv
	if err := s.saveIndex(index); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(_ context.Context, id types.ConversationID) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	conv, ok := index[id]
	if !ok {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	return conv, nil
}

// List returns all conversations, most recently updated first.
func (s *ConversationStore) List(_ context.Context) ([]*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	return sorted(index), nil
}

// Update persists changes to the given conversation, setting UpdatedAt to now.
func (s *ConversationStore) Update(_ context.Context, conv *types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := index[conv.ID]; !ok {
		return fmt.Errorf("conversation not found: %s", conv.ID)
	}

	conv.UpdatedAt = s.now()
	index[conv.ID] = conv
	return s.saveIndex(index)
}

// Delete removes the conversation from the index.
func (s *ConversationStore) Delete(_ context.Context, id types.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := index[id]; !ok {
		return fmt.Errorf("conversation not found: %s", id)
	}
	delete(index, id)
	return s.saveIndex(index)
}
