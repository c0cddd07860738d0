package router

import (
	"context"
	"time"

	"github.com/pmrch/twitch-eventsub/message"
)

// Handler receives decoded notification events together with the message timestamp.
type Handler interface {
	HandleEvent(ctx context.Context, event message.Event, timestamp time.Time)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event message.Event, timestamp time.Time)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event message.Event, timestamp time.Time) {
	f(ctx, event, timestamp)
}

// ChatMessageFunc receives the chat message text and the chatter's display name.
type ChatMessageFunc func(ctx context.Context, text, chatterName string, timestamp time.Time)

// HandleEvent calls f for chat message events and ignores anything else.
func (f ChatMessageFunc) HandleEvent(ctx context.Context, event message.Event, timestamp time.Time) {
	chat, ok := event.(*message.ChannelChatMessage)
	if !ok {
		return
	}

	f(ctx, chat.Message.Text, chat.ChatterUserName, timestamp)
}
