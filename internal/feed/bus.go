package feed

import "sync"

// Bus fans projection updates out to subscribers. Publish never blocks: a
// subscriber that falls behind misses updates, and since every update is a
// full projection the next one it receives is complete.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]subscriber
}

type subscriber struct {
	ch     chan Update
	filter string
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]subscriber)}
}

// Publish delivers u to every matching subscriber that has room.
func (b *Bus) Publish(u Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.filter != "" && sub.filter != string(u.ConversationID) {
			continue
		}
		select {
		case sub.ch <- u:
		default:
		}
	}
}

// Subscribe registers id for updates of one conversation, or of all
// conversations when conversation is empty. Re-subscribing an id replaces
// its previous registration.
func (b *Bus) Subscribe(id, conversation string) <-chan Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Update, 32)
	b.subscribers[id] = subscriber{ch: ch, filter: conversation}
	return ch
}

// Unsubscribe removes id. The channel is not closed; readers exit on their
// own context.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
