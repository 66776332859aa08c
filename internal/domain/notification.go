package domain

import "time"

// NotificationType is the closed set of notification variants. Decoration
// switches exhaustively over these; adding a variant without a decoration rule
// is a compile-visible gap, not a silent fallback branch.
type NotificationType string

const (
	NotificationReply        NotificationType = "reply"
	NotificationLike         NotificationType = "like"
	NotificationMention      NotificationType = "mention"
	NotificationMentionReply NotificationType = "mention_reply"
	NotificationMentionPost  NotificationType = "mention_post"
	NotificationQuote        NotificationType = "quote"
	NotificationTag          NotificationType = "tag"
	NotificationFollow       NotificationType = "follow"
	NotificationNewPost      NotificationType = "new_post"
	NotificationSystem       NotificationType = "system"
)

// Valid reports whether t is one of the known variants.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationReply, NotificationLike, NotificationMention,
		NotificationMentionReply, NotificationMentionPost, NotificationQuote,
		NotificationTag, NotificationFollow, NotificationNewPost, NotificationSystem:
		return true
	}
	return false
}

// Notification is a cross-cutting feed entry scoped to its recipient.
// Raw records are produced server-side by forum and profile actions; this
// service fetches, decorates, deduplicates on push, and flips the read flag.
// Actor, ContentText and Link are decoration output, never stored.
type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	Type           NotificationType `json:"type" dynamodbav:"type"`
	RecipientID    string           `json:"recipient_id" dynamodbav:"recipient_id"`
	ActorID        string           `json:"actor_id,omitempty" dynamodbav:"actor_id"`
	ContentPreview string           `json:"content_preview,omitempty" dynamodbav:"content_preview"`
	TopicID        string           `json:"topic_id,omitempty" dynamodbav:"topic_id"`
	PostID         string           `json:"post_id,omitempty" dynamodbav:"post_id"`
	Read           bool             `json:"read" dynamodbav:"read"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`

	Actor       *ActorIdentity `json:"actor,omitempty" dynamodbav:"-"`
	ContentText string         `json:"content_text,omitempty" dynamodbav:"-"`
	Link        string         `json:"link,omitempty" dynamodbav:"-"`
}

// Topic is the correlated forum topic record, fetched on demand to build
// display content. Forum CRUD itself lives outside this service.
type Topic struct {
	TopicID    string `json:"id" dynamodbav:"topic_id"`
	Title      string `json:"title" dynamodbav:"title"`
	CategoryID string `json:"category_id" dynamodbav:"category_id"`
}
