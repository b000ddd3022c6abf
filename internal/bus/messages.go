package bus

// InboundMessage is one message received from a transport channel.
//
// UserID is the stable per-user identifier the session layer keys on;
// ChatID is where replies (and typing indicators) go. For private Telegram
// chats the two coincide, for groups they differ.
type InboundMessage struct {
	Channel   string
	UserID    int64
	Username  string
	FirstName string
	ChatID    int64
	MessageID int
	Content   string
}

// OutboundMessage is one reply (or typing signal) for a transport channel.
type OutboundMessage struct {
	Channel string
	ChatID  int64
	Content string

	// Typing marks a processing-indicator signal instead of a text reply.
	// Content is ignored when set.
	Typing bool

	// ReplyTo is the inbound message to reply to, or 0 for a plain send.
	ReplyTo int
}

// NewReply builds a text reply routed back to the chat msg arrived from.
func NewReply(msg InboundMessage, content string) OutboundMessage {
	return OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
		ReplyTo: msg.MessageID,
	}
}

// NewTyping builds a processing-indicator signal for the chat msg arrived from.
func NewTyping(msg InboundMessage) OutboundMessage {
	return OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Typing:  true,
	}
}
