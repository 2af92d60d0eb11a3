package nostr

// Well-known event kinds. The numbers are protocol constants.
const (
	KindTextNote             = 1
	KindThread               = 11
	KindConversationMetadata = 513
	KindGenericReply         = 1111
	KindStreamingResponse    = 21111
	KindProjectStatus        = 24010
	KindTypingStart          = 24111
	KindTypingStop           = 24112
	KindOperationsStatus     = 24133
)

// ConversationKinds lists every kind a conversation subscription asks for.
var ConversationKinds = []int{
	KindTextNote,
	KindThread,
	KindConversationMetadata,
	KindGenericReply,
	KindStreamingResponse,
	KindTypingStart,
	KindTypingStop,
	KindOperationsStatus,
}

// IsEphemeral reports whether relays are expected to forward events of this
// kind without storing them.
func IsEphemeral(kind int) bool {
	return kind >= 20000 && kind < 30000
}
