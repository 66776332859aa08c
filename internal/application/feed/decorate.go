package feed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/domain"
)

// TopicDirectory resolves correlated forum topics for display content.
type TopicDirectory interface {
	Get(ctx context.Context, topicID string) (*domain.Topic, error)
}

// ActorResolver decorates actor ids with display identities.
type ActorResolver interface {
	Resolve(ctx context.Context, userID string) domain.ActorIdentity
}

// fallbackTopicTitle stands in when the correlated topic cannot be resolved;
// decoration degrades, it never fails the notification.
const fallbackTopicTitle = "a discussion"

// Decorator fills Actor, ContentText and Link on raw notification records.
// The feed runs one per session; the HTTP notifications handler shares one
// per process.
type Decorator struct {
	actors ActorResolver
	topics TopicDirectory
}

func NewDecorator(actors ActorResolver, topics TopicDirectory) *Decorator {
	return &Decorator{actors: actors, topics: topics}
}

// Decorate renders one record. The switch is exhaustive over the closed
// NotificationType set: a new variant without a rule here falls through to
// the guard at the bottom, which is a bug to fix, not a rendering path.
func (d *Decorator) Decorate(ctx context.Context, n *domain.Notification) {
	if n.ActorID != "" {
		identity := d.actors.Resolve(ctx, n.ActorID)
		n.Actor = &identity
	}

	actorName := "Someone"
	if n.Actor != nil {
		actorName = n.Actor.DisplayName
	}

	switch n.Type {
	case domain.NotificationReply:
		n.ContentText = fmt.Sprintf("%s replied to your post in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationLike:
		n.ContentText = fmt.Sprintf("%s liked your post in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationMention:
		n.ContentText = fmt.Sprintf("%s mentioned you", actorName)
		n.Link = topicLink(n)
	case domain.NotificationMentionReply:
		n.ContentText = fmt.Sprintf("%s mentioned you in a reply in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationMentionPost:
		n.ContentText = fmt.Sprintf("%s mentioned you in a post in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationQuote:
		n.ContentText = fmt.Sprintf("%s quoted your post in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationTag:
		n.ContentText = fmt.Sprintf("%s tagged you in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationFollow:
		n.ContentText = fmt.Sprintf("%s followed you", actorName)
		n.Link = "/profile/" + n.ActorID
	case domain.NotificationNewPost:
		n.ContentText = fmt.Sprintf("%s posted in \"%s\"", actorName, d.topicTitle(ctx, n.TopicID))
		n.Link = topicLink(n)
	case domain.NotificationSystem:
		// System notifications pass their stored preview through verbatim.
		n.ContentText = n.ContentPreview
		n.Link = "/announcements"
	default:
		log.Warn().Str("type", string(n.Type)).Str("notification_id", n.NotificationID).
			Msg("notification type without decoration rule")
		n.ContentText = n.ContentPreview
		n.Link = "/"
	}
}

func (d *Decorator) topicTitle(ctx context.Context, topicID string) string {
	if topicID == "" {
		return fallbackTopicTitle
	}
	topic, err := d.topics.Get(ctx, topicID)
	if err != nil {
		log.Warn().Str("topic_id", topicID).Err(err).Msg("topic lookup failed, using fallback title")
		return fallbackTopicTitle
	}
	return topic.Title
}

func topicLink(n *domain.Notification) string {
	if n.TopicID == "" {
		return "/forum"
	}
	link := "/forum/topic/" + n.TopicID
	if n.PostID != "" {
		link += "#post-" + n.PostID
	}
	return link
}
