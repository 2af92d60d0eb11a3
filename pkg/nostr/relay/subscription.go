package relay

import (
	"sync"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Subscription is a live REQ on a relay. Events is never closed; consumers
// select on Done to learn when the subscription has ended.
type Subscription struct {
	ID      string
	Filters []nostr.Filter
	Events  <-chan *nostr.Event
	EOSE    <-chan struct{}

	client *Client
	events chan *nostr.Event
	eose   chan struct{}

	eoseOnce sync.Once
	stopOnce sync.Once
	stop     chan struct{}
	initStop sync.Once
}

// Done is closed when the subscription has ended for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.stopped()
}

// Unsubscribe sends CLOSE to the relay and ends the subscription.
func (s *Subscription) Unsubscribe() error {
	if s.client.removeSub(s.ID) == nil {
		s.finish()
		return nil
	}
	defer s.finish()
	msg, err := nostr.CloseMessage(s.ID)
	if err != nil {
		return err
	}
	if err := s.client.write(msg); err != nil && err != ErrClosed {
		return err
	}
	return nil
}

func (s *Subscription) stopped() chan struct{} {
	s.initStop.Do(func() { s.stop = make(chan struct{}) })
	return s.stop
}

func (s *Subscription) matches(ev *nostr.Event) bool {
	if len(s.Filters) == 0 {
		return true
	}
	for _, f := range s.Filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

// deliver blocks until the event is queued, the subscription ends, or the
// connection terminates.
func (s *Subscription) deliver(ev *nostr.Event, connDone <-chan struct{}) {
	select {
	case s.events <- ev:
	case <-s.stopped():
	case <-connDone:
	}
}

func (s *Subscription) markEOSE() {
	s.eoseOnce.Do(func() { close(s.eose) })
}

func (s *Subscription) finish() {
	stop := s.stopped()
	s.stopOnce.Do(func() { close(stop) })
}
