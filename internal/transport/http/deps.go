package http

import (
	"github.com/waveradio/realtime-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/waveradio/realtime-api/internal/infrastructure/jwt"
	"github.com/waveradio/realtime-api/internal/infrastructure/push"
	s3infra "github.com/waveradio/realtime-api/internal/infrastructure/s3"
	"github.com/waveradio/realtime-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router. S3Store,
// Broadcasts and JWTProvider may be nil; the features they back degrade.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	TopicRepo        *dynamo.TopicRepo
	ConversationRepo *dynamo.ConversationRepo
	MessageRepo      *dynamo.MessageRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Broker           *push.Broker
	Broadcasts       sns.BroadcastSender
	JWTProvider      *jwtinfra.Provider
}
