// Package eventsubtest provides EventSub frame builders and a scripted WebSocket
// server for tests.
package eventsubtest

import (
	"encoding/json"
	"time"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/google/uuid"
)

// Fixed identifiers used by the builders.
const (
	BroadcasterUserID = "1337"
	ChatterUserID     = "4242"
	SubscriptionID    = "f1c2a387-161a-49f9-a165-0f21d7a4e1c4"
)

// Timestamp is the message_timestamp written by every builder.
var Timestamp = time.Date(2024, time.May, 4, 12, 30, 0, 123456789, time.UTC)

// Frame renders a complete frame. extraMeta is merged into the metadata block.
func Frame(messageType string, payload any, extraMeta map[string]any) []byte {
	meta := map[string]any{
		"message_id":        uuid.NewString(),
		"message_type":      messageType,
		"message_timestamp": Timestamp.Format(time.RFC3339Nano),
	}

	for k, v := range extraMeta {
		meta[k] = v
	}

	return mustMarshal(map[string]any{
		"metadata": meta,
		"payload":  payload,
	})
}

// Welcome renders a session_welcome frame with a 10 second keepalive timeout.
func Welcome(sessionID string) []byte {
	return WelcomeWithKeepalive(sessionID, 10)
}

// WelcomeWithKeepalive renders a session_welcome frame with the given keepalive timeout.
func WelcomeWithKeepalive(sessionID string, keepaliveSeconds int) []byte {
	return Frame("session_welcome", map[string]any{
		"session": map[string]any{
			"id":                        sessionID,
			"status":                    "connected",
			"connected_at":              Timestamp.Format(time.RFC3339Nano),
			"keepalive_timeout_seconds": keepaliveSeconds,
			"reconnect_url":             nil,
			"recovery_url":              nil,
		},
	}, nil)
}

// WelcomeWithoutSession renders a session_welcome frame whose session is null.
func WelcomeWithoutSession() []byte {
	return Frame("session_welcome", map[string]any{"session": nil}, nil)
}

// Keepalive renders a session_keepalive frame.
func Keepalive() []byte {
	return Frame("session_keepalive", map[string]any{}, nil)
}

// Reconnect renders a session_reconnect frame pointing at reconnectURL.
func Reconnect(sessionID, reconnectURL string) []byte {
	return Frame("session_reconnect", map[string]any{
		"session": map[string]any{
			"id":                        sessionID,
			"status":                    "reconnecting",
			"keepalive_timeout_seconds": nil,
			"reconnect_url":             reconnectURL,
			"connected_at":              Timestamp.Format(time.RFC3339Nano),
		},
	}, nil)
}

// Subscription renders the subscription object for subscriptionType.
func Subscription(subscriptionType, status string) map[string]any {
	return map[string]any{
		"id":      SubscriptionID,
		"status":  status,
		"type":    subscriptionType,
		"version": "1",
		"cost":    0,
		"condition": map[string]any{
			"broadcaster_user_id": BroadcasterUserID,
			"user_id":             ChatterUserID,
		},
		"transport": map[string]any{
			"method":     "websocket",
			"session_id": "AQoQexAWVYKSTIu4ec_2VAxyuhAB",
		},
		"created_at": Timestamp.Format(time.RFC3339Nano),
	}
}

// Notification renders a notification frame carrying event.
func Notification(subscriptionType string, event any) []byte {
	return Frame("notification", map[string]any{
		"subscription": Subscription(subscriptionType, "enabled"),
		"event":        event,
	}, map[string]any{
		"subscription_type":    subscriptionType,
		"subscription_version": "1",
	})
}

// ChatMessageEvent renders a channel.chat.message event.
func ChatMessageEvent(chatterName, text string) map[string]any {
	return map[string]any{
		"broadcaster_user_id":    BroadcasterUserID,
		"broadcaster_user_login": "streamer",
		"broadcaster_user_name":  "Streamer",
		"chatter_user_id":        ChatterUserID,
		"chatter_user_login":     chatterName,
		"chatter_user_name":      chatterName,
		"message_id":             uuid.NewString(),
		"message": map[string]any{
			"text": text,
			"fragments": []map[string]any{
				{"type": "text", "text": text, "cheermote": nil, "emote": nil, "mention": nil},
			},
		},
		"color":                           "#00FF7F",
		"message_type":                    "text",
		"badges":                          []map[string]any{{"set_id": "subscriber", "id": "6", "info": "6"}},
		"reply":                           nil,
		"channel_points_custom_reward_id": nil,
		"source_broadcaster_user_id":      nil,
		"source_broadcaster_user_name":    nil,
		"source_broadcaster_user_login":   nil,
		"source_message_id":               nil,
		"source_badges":                   nil,
		"is_source_only":                  nil,
	}
}

// ChatNotification renders a channel.chat.message notification frame.
func ChatNotification(chatterName, text string) []byte {
	return Notification(helix.EventSubTypeChannelChatMessage, ChatMessageEvent(chatterName, text))
}

// Revocation renders a revocation frame for subscriptionType.
func Revocation(subscriptionType string) []byte {
	return Frame("revocation", map[string]any{
		"subscription": Subscription(subscriptionType, "authorization_revoked"),
	}, map[string]any{
		"subscription_type":    subscriptionType,
		"subscription_version": "1",
	})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}
