package domain

import "time"

// Message is a single direct message. The id is assigned by the store on
// persist and is the sole deduplication key: the sender's own confirmed copy
// and the later push echo carry the same id. Messages are never mutated after
// creation; removal is the is_deleted flag, not physical deletion.
type Message struct {
	MessageID      string        `json:"id" dynamodbav:"message_id"`
	ConversationID string        `json:"conversation_id" dynamodbav:"conversation_id"`
	SenderID       string        `json:"sender_id" dynamodbav:"sender_id"`
	RecipientID    string        `json:"recipient_id" dynamodbav:"recipient_id"`
	Content        string        `json:"content" dynamodbav:"content"`
	MediaURL       *string       `json:"media_url,omitempty" dynamodbav:"media_url"`
	IsDeleted      bool          `json:"is_deleted" dynamodbav:"is_deleted"`
	CreatedAt      time.Time     `json:"created" dynamodbav:"created_at"`
	Sender         ActorIdentity `json:"sender" dynamodbav:"sender"`
}

// SendMessageRequest is the send payload from the client.
type SendMessageRequest struct {
	ConversationID string  `json:"conversation_id"`
	RecipientID    string  `json:"recipient_id" validate:"required"`
	Content        string  `json:"content" validate:"required"`
	MediaURL       *string `json:"media_url"`
}
