package bus

import "time"

// InboundMessage is one chat event as seen by the engine. The channel that
// produced it resolves transport-level details (self-reply detection, bot
// flags) so the engine never touches wire types.
type InboundMessage struct {
	Channel     string
	SenderID    string
	ChatID      string
	Content     string
	Timestamp   time.Time
	MessageID   int
	IsPrivate   bool
	FromSelf    bool
	FromBot     bool
	ViaBot      bool
	ReplyToSelf bool
	Metadata    map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	ReplyTo  int
	Metadata map[string]any
}
