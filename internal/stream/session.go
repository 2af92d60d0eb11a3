package stream

import (
	"github.com/tenex-chat/web-client-sub005/internal/delta"
	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// SessionKind distinguishes accumulated streams from verbatim indicators.
type SessionKind int

const (
	SessionDelta SessionKind = iota
	SessionTyping
)

// Session is the in-flight state of one author.
type Session struct {
	SyntheticID     string
	LatestEventID   string
	LatestCreatedAt int64
	Kind            SessionKind

	// Accumulator is set for SessionDelta, Value for SessionTyping.
	Accumulator *delta.Accumulator
	Value       string

	latest *nostr.Event
}

// Latest returns the most recent event applied to the session.
func (s *Session) Latest() *nostr.Event { return s.latest }

// Content returns the session's current display content.
func (s *Session) Content() string {
	if s.Kind == SessionDelta && s.Accumulator != nil {
		return s.Accumulator.Content()
	}
	return s.Value
}

func (s *Session) touch(ev *nostr.Event) {
	s.latest = ev
	s.LatestEventID = ev.ID
	s.LatestCreatedAt = ev.CreatedAt
}

// SessionStore holds at most one live session per author. It is scoped to a
// single projection pass and is not safe for concurrent use.
type SessionStore struct {
	sessions map[string]*Session
	order    []string
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

func (s *SessionStore) Get(author string) (*Session, bool) {
	sess, ok := s.sessions[author]
	return sess, ok
}

func (s *SessionStore) Len() int { return len(s.sessions) }

// ApplyDelta feeds a generative delta into the author's session, creating
// the session if needed. A typing session for the same author is replaced
// in place by a fresh stream.
func (s *SessionStore) ApplyDelta(ev *nostr.Event) *Session {
	sess := s.upsert(ev.PubKey)
	if sess.Kind != SessionDelta || sess.Accumulator == nil {
		sess.Kind = SessionDelta
		sess.Accumulator = delta.New()
		sess.Value = ""
	}
	sess.SyntheticID = "streaming-" + ev.PubKey
	sess.Accumulator.AddEvent(ev)
	sess.touch(ev)
	return sess
}

// ApplyTyping stores a typing indicator's content verbatim. Any stream the
// author had in flight is replaced in place.
func (s *SessionStore) ApplyTyping(ev *nostr.Event) *Session {
	sess := s.upsert(ev.PubKey)
	sess.Kind = SessionTyping
	sess.Accumulator = nil
	sess.Value = ev.Content
	sess.SyntheticID = "typing-" + ev.PubKey
	sess.touch(ev)
	return sess
}

// Delete removes the author's session of any kind.
func (s *SessionStore) Delete(author string) bool {
	if _, ok := s.sessions[author]; !ok {
		return false
	}
	delete(s.sessions, author)
	for i, a := range s.order {
		if a == author {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// DeleteTyping removes the author's session only if it is a typing
// indicator.
func (s *SessionStore) DeleteTyping(author string) bool {
	sess, ok := s.sessions[author]
	if !ok || sess.Kind != SessionTyping {
		return false
	}
	return s.Delete(author)
}

// Clear drops every session.
func (s *SessionStore) Clear() {
	clear(s.sessions)
	s.order = s.order[:0]
}

// Flush synthesises one display item per live session, in session creation
// order. The store is left unchanged.
func (s *SessionStore) Flush() []types.DisplayItem {
	items := make([]types.DisplayItem, 0, len(s.order))
	for _, author := range s.order {
		sess := s.sessions[author]
		origin := types.OriginStream
		if sess.Kind == SessionTyping {
			origin = types.OriginTyping
		}
		items = append(items, types.DisplayItem{
			ID:        sess.SyntheticID,
			Event:     sess.latest,
			Synthetic: &types.Synthetic{Origin: origin, Content: sess.Content()},
		})
	}
	return items
}

func (s *SessionStore) upsert(author string) *Session {
	if sess, ok := s.sessions[author]; ok {
		return sess
	}
	sess := &Session{}
	s.sessions[author] = sess
	s.order = append(s.order, author)
	return sess
}
