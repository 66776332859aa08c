package push

// Topic naming for the three logical event streams. Message inserts and typing
// signals are scoped per conversation; notification inserts per recipient.
// They are fully independent streams with no cross-ordering guarantee.

func MessagesTopic(conversationID string) string {
	return "chat.messages." + conversationID
}

func TypingTopic(conversationID string) string {
	return "chat.typing." + conversationID
}

func NotificationsTopic(userID string) string {
	return "notifications." + userID
}
