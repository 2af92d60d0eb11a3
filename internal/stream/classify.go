// Package stream routes incoming protocol events to the right handling path
// and tracks per-author streaming sessions (generative deltas and typing
// indicators) for the duration of one projection pass.
package stream

import "github.com/tenex-chat/web-client-sub005/pkg/nostr"

// Class is the handling path of an event.
type Class int

const (
	ClassOther Class = iota
	ClassFinalMessage
	ClassMetadata
	ClassDelta
	ClassTypingStart
	ClassTypingStop
	ClassSnapshot
	ClassDropped
)

func (c Class) String() string {
	switch c {
	case ClassFinalMessage:
		return "final"
	case ClassMetadata:
		return "metadata"
	case ClassDelta:
		return "delta"
	case ClassTypingStart:
		return "typing_start"
	case ClassTypingStop:
		return "typing_stop"
	case ClassSnapshot:
		return "snapshot"
	case ClassDropped:
		return "dropped"
	default:
		return "other"
	}
}

// Classify maps an event kind to its handling path. This is the only place
// that compares kind numbers for routing.
func Classify(ev *nostr.Event) Class {
	switch ev.Kind {
	case nostr.KindProjectStatus:
		return ClassDropped
	case nostr.KindConversationMetadata:
		return ClassMetadata
	case nostr.KindStreamingResponse:
		return ClassDelta
	case nostr.KindTypingStart:
		return ClassTypingStart
	case nostr.KindTypingStop:
		return ClassTypingStop
	case nostr.KindOperationsStatus:
		return ClassSnapshot
	case nostr.KindGenericReply, nostr.KindTextNote:
		return ClassFinalMessage
	default:
		return ClassOther
	}
}
