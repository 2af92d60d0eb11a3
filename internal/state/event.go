// internal/state/event.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// maxLine bounds a single JSONL record. Streaming events are small, but
// final replies can carry long documents.
const maxLine = 4 << 20

// EventStore is a JSONL-backed append-only event store.
// Events are stored per conversation in conversations/<id>/events.jsonl.
// Relays redeliver events freely, so Append ignores ids it has seen.
type EventStore struct {
	root  string
	mu    sync.Mutex
	locks map[types.ConversationID]*sync.Mutex
	seen  map[types.ConversationID]map[string]struct{}
}

// NewEventStore creates a new file-backed EventStore rooted at the given directory.
func NewEventStore(root string) *EventStore {
	return &EventStore{
		root:  root,
		locks: make(map[types.ConversationID]*sync.Mutex),
		seen:  make(map[types.ConversationID]map[string]struct{}),
	}
}

// checkID rejects conversation ids that are not a single path element.
func checkID(id types.ConversationID) error {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid conversation id: %q", s)
	}
	return nil
}

// getLock returns the per-conversation mutex, creating one if it doesn't exist.
func (e *EventStore) getLock(id types.ConversationID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lock, ok := e.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	e.locks[id] = lock
	return lock
}

func (e *EventStore) eventsPath(id types.ConversationID) string {
	return filepath.Join(e.root, "conversations", string(id), "events.jsonl")
}

// read loads every stored event. Caller must hold the conversation lock.
func (e *EventStore) read(id types.ConversationID) ([]*nostr.Event, error) {
	f, err := os.Open(e.eventsPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var events []*nostr.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		var ev nostr.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events file: %w", err)
	}
	return events, nil
}

// seenIDs returns the id index for the conversation, loading it from disk
// on first use. Caller must hold the conversation lock.
func (e *EventStore) seenIDs(id types.ConversationID) (map[string]struct{}, error) {
	e.mu.Lock()
	ids, ok := e.seen[id]
	e.mu.Unlock()
	if ok {
		return ids, nil
	}

	events, err := e.read(id)
	if err != nil {
		return nil, err
	}
	ids = make(map[string]struct{}, len(events))
	for _, ev := range events {
		ids[ev.ID] = struct{}{}
	}

	e.mu.Lock()
	e.seen[id] = ids
	e.mu.Unlock()
	return ids, nil
}

// Append adds an event to the conversation's log. It returns false without
// writing when an event with the same id is already stored.
func (e *EventStore) Append(_ context.Context, id types.ConversationID, ev *nostr.Event) (bool, error) {
	if ev == nil || ev.ID == "" {
		return false, fmt.Errorf("append event: missing id")
	}
	if err := checkID(id); err != nil {
		return false, err
	}

	lock := e.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	ids, err := e.seenIDs(id)
	if err != nil {
		return false, err
	}
	if _, dup := ids[ev.ID]; dup {
		return false, nil
	}

	dir := filepath.Dir(e.eventsPath(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create conversation dir: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(e.eventsPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return false, fmt.Errorf("write event: %w", err)
	}

	ids[ev.ID] = struct{}{}
	return true, nil
}

// List returns every stored event for the conversation in append order.
func (e *EventStore) List(_ context.Context, id types.ConversationID) ([]*nostr.Event, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	lock := e.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	return e.read(id)
}

// Count returns the number of stored events for the conversation.
func (e *EventStore) Count(_ context.Context, id types.ConversationID) (int64, error) {
	if err := checkID(id); err != nil {
		return 0, err
	}
	lock := e.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	ids, err := e.seenIDs(id)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Clear removes the conversation's event log.
func (e *EventStore) Clear(_ context.Context, id types.ConversationID) error {
	if err := checkID(id); err != nil {
		return err
	}
	lock := e.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(filepath.Dir(e.eventsPath(id))); err != nil {
		return fmt.Errorf("remove conversation dir: %w", err)
	}
	e.mu.Lock()
	delete(e.seen, id)
	e.mu.Unlock()
	return nil
}
