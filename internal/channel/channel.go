// Package channel connects the engine to a chat transport. A channel feeds
// inbound events into the message bus and delivers replies back out; the
// engine never sees transport wire types.
package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/bahromoov/aytchi/internal/bus"
)

// Channel is one chat transport.
type Channel interface {
	Name() string
	// Start connects and begins pushing inbound events to the bus.
	Start(ctx context.Context) error
	Stop() error
	// SelfID identifies the bot's own account once connected.
	SelfID() string
	// SendTyping signals a typing indicator for the chat.
	SendTyping(chatID string) error
	// Send delivers one reply. It may fail with *RateLimitedError when the
	// transport asks for a pause, or any other error for transient faults.
	Send(msg bus.OutboundMessage) error
}

// RateLimitedError is a transport-signaled flood control condition: wait
// RetryAfter, then try again.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// BaseChannel carries the pieces every transport shares.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]struct{}
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	var allowed map[string]struct{}
	if len(allowFrom) > 0 {
		allowed = make(map[string]struct{}, len(allowFrom))
		for _, id := range allowFrom {
			allowed[id] = struct{}{}
		}
	}
	return BaseChannel{name: name, bus: b, allowFrom: allowed}
}

func (c *BaseChannel) Name() string {
	return c.name
}

// IsAllowed applies the allow-list; an empty list admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if c.allowFrom == nil {
		return true
	}
	_, ok := c.allowFrom[senderID]
	return ok
}
