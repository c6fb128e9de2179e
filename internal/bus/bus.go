package bus

// MessageBus decouples chat channels from the engine. Channels push inbound
// events; the engine drains them. Delivery of replies goes back through the
// channel directly because the engine needs the send result to decide whether
// to commit memory and cooldown updates.
type MessageBus struct {
	Inbound chan InboundMessage
}

func NewMessageBus(bufSize int) *MessageBus {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &MessageBus{
		Inbound: make(chan InboundMessage, bufSize),
	}
}
