package domain

// ActorIdentity is the lightweight display identity attached to messages and
// notifications. It is a projection of the user record, never authoritative.
type ActorIdentity struct {
	UserID      string  `json:"id" dynamodbav:"user_id"`
	DisplayName string  `json:"display_name" dynamodbav:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty" dynamodbav:"avatar_url"`
}

// FallbackActor is used when an actor lookup fails; decoration degrades to a
// generic label instead of failing the whole record.
func FallbackActor(userID string) ActorIdentity {
	return ActorIdentity{UserID: userID, DisplayName: "Someone"}
}
