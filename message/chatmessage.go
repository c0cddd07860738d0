package message

import (
	"fmt"
	"strings"

	"github.com/Its-donkey/kappopher/helix"
)

// ChatMessageType is the kind of chat message.
type ChatMessageType string

// Chat message types.
const (
	ChatMessageText                     ChatMessageType = "text"
	ChatMessageChannelPointsHighlighted ChatMessageType = "channel_points_highlighted"
	ChatMessageChannelPointsSubOnly     ChatMessageType = "channel_points_sub_only"
	ChatMessageUserIntro                ChatMessageType = "user_intro"
	ChatMessagePowerUpsMessageEffect    ChatMessageType = "power_ups_message_effect"
	ChatMessagePowerUpsGigantifiedEmote ChatMessageType = "power_ups_gigantified_emote"
)

var chatMessageTypes = []ChatMessageType{
	ChatMessageText,
	ChatMessageChannelPointsHighlighted,
	ChatMessageChannelPointsSubOnly,
	ChatMessageUserIntro,
	ChatMessagePowerUpsMessageEffect,
	ChatMessagePowerUpsGigantifiedEmote,
}

// ParseChatMessageType accepts snake_case, camelCase, PascalCase and
// kebab-case spellings of a chat message type.
func ParseChatMessageType(s string) (ChatMessageType, error) {
	folded := foldIdentifier(s)

	for _, t := range chatMessageTypes {
		if foldIdentifier(string(t)) == folded {
			return t, nil
		}
	}

	return "", fmt.Errorf("invalid chat message type %q", s)
}

// Known reports whether t is one of the documented chat message types.
func (t ChatMessageType) Known() bool {
	_, err := ParseChatMessageType(string(t))

	return err == nil
}

func foldIdentifier(s string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(s))
}

// ChannelChatMessage is the channel.chat.message event.
// The Source* fields are nil unless the message arrived through a shared chat session.
type ChannelChatMessage struct {
	helix.ChannelChatMessageEvent

	MessageType                ChatMessageType `json:"message_type"`
	SourceBroadcasterUserID    *string         `json:"source_broadcaster_user_id"`
	SourceBroadcasterUserName  *string         `json:"source_broadcaster_user_name"`
	SourceBroadcasterUserLogin *string         `json:"source_broadcaster_user_login"`
	SourceMessageID            *string         `json:"source_message_id"`
}

// SubscriptionType implements Event.
func (*ChannelChatMessage) SubscriptionType() string { return helix.EventSubTypeChannelChatMessage }

// IsShared reports whether the message came from another channel in a shared chat session.
func (e *ChannelChatMessage) IsShared() bool {
	return e.SourceBroadcasterUserID != nil
}

func (e *ChannelChatMessage) validate() error {
	switch {
	case e.BroadcasterUserID == "":
		return missingField("event.broadcaster_user_id")
	case e.ChatterUserID == "":
		return missingField("event.chatter_user_id")
	case e.MessageID == "":
		return missingField("event.message_id")
	}

	return nil
}
