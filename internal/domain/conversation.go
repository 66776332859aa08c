package domain

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a two-party message thread. It is created lazily on the
// first message between a pair and never deleted; the only mutation after
// creation is the last_message_at bump on each accepted send.
type Conversation struct {
	ConversationID  string    `json:"id" dynamodbav:"conversation_id"`
	Participant1ID  string    `json:"participant1_id" dynamodbav:"participant1_id"`
	Participant2ID  string    `json:"participant2_id" dynamodbav:"participant2_id"`
	ParticipantPair string    `json:"-" dynamodbav:"participant_pair"`
	LastMessageAt   time.Time `json:"last_message_timestamp" dynamodbav:"last_message_at"`
	CreatedAt       time.Time `json:"created" dynamodbav:"created_at"`
}

// PairKey builds the order-independent lookup key for a participant pair.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "#")
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// PeerOf returns the other participant's id. The conversation is strictly
// two-party, so for a participant there is exactly one peer.
func (c *Conversation) PeerOf(userID string) string {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}
