// Package status resolves which agents are currently working on which
// conversation from operations-status snapshots.
//
// Each snapshot is authoritative for its (subject, scope) pair: the newest
// one replaces everything published before it, and an empty worker list
// means nobody is working.
package status

import (
	"slices"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Key identifies the target of a snapshot.
type Key struct {
	Subject string
	Scope   string
}

// Snapshot is the parsed form of an operations-status event.
type Snapshot struct {
	SubjectEventID string   `json:"subject_event_id"`
	ScopeID        string   `json:"scope_id"`
	CreatedAt      int64    `json:"created_at"`
	EventID        string   `json:"event_id"`
	Workers        []string `json:"workers"`
}

// Key returns the (subject, scope) pair the snapshot applies to.
func (s Snapshot) Key() Key { return Key{Subject: s.SubjectEventID, Scope: s.ScopeID} }

// Active reports whether at least one worker is listed.
func (s Snapshot) Active() bool { return len(s.Workers) > 0 }

// Parse extracts a snapshot from ev. It returns false for events of another
// kind or without a subject reference. Workers are deduplicated and sorted.
func Parse(ev *nostr.Event) (Snapshot, bool) {
	if ev == nil || ev.Kind != nostr.KindOperationsStatus {
		return Snapshot{}, false
	}
	subject := ev.Tags.Value(nostr.TagReply)
	if subject == "" {
		return Snapshot{}, false
	}
	workers := slices.Clone(ev.Tags.Values(nostr.TagPubKey))
	slices.Sort(workers)
	workers = slices.Compact(workers)
	return Snapshot{
		SubjectEventID: subject,
		ScopeID:        ev.Tags.Value(nostr.TagAddress),
		CreatedAt:      ev.CreatedAt,
		EventID:        ev.ID,
		Workers:        workers,
	}, true
}

// newer reports whether a supersedes b: later created_at wins, and on a tie
// the lexicographically greater event id wins.
func newer(a, b Snapshot) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.EventID > b.EventID
}

// Resolve returns the newest snapshot for (subject, scope), or nil when
// none of events applies. The result does not depend on input order.
func Resolve(events []*nostr.Event, subject, scope string) *Snapshot {
	var best *Snapshot
	for _, ev := range events {
		snap, ok := Parse(ev)
		if !ok || snap.SubjectEventID != subject || snap.ScopeID != scope {
			continue
		}
		if best == nil || newer(snap, *best) {
			s := snap
			best = &s
		}
	}
	return best
}

// ResolveAll resolves every (subject, scope) pair present in events.
func ResolveAll(events []*nostr.Event) map[Key]Snapshot {
	out := make(map[Key]Snapshot)
	for _, ev := range events {
		snap, ok := Parse(ev)
		if !ok {
			continue
		}
		if cur, seen := out[snap.Key()]; !seen || newer(snap, cur) {
			out[snap.Key()] = snap
		}
	}
	return out
}

// IsActive reports whether the newest snapshot for (subject, scope) lists
// any worker.
func IsActive(events []*nostr.Event, subject, scope string) bool {
	snap := Resolve(events, subject, scope)
	return snap != nil && snap.Active()
}

// ActiveSubjects returns the subjects with at least one working agent in
// any scope, sorted.
func ActiveSubjects(resolved map[Key]Snapshot) []string {
	var out []string
	for key, snap := range resolved {
		if snap.Active() {
			out = append(out, key.Subject)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
