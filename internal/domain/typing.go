package domain

// TypingSignalKind tags the two ephemeral typing events.
type TypingSignalKind string

const (
	TypingStart TypingSignalKind = "TYPING_START"
	TypingStop  TypingSignalKind = "TYPING_STOP"
)

// TypingSignal is the ephemeral start/stop broadcast exchanged over a
// conversation's typing channel. It has no identity and is never persisted;
// receivers hold only the derived boolean state with a TTL.
type TypingSignal struct {
	ConversationID string           `json:"conversation_id"`
	UserID         string           `json:"user_id"`
	UserName       string           `json:"user_name"`
	Kind           TypingSignalKind `json:"kind"`
}
