// Package message defines the EventSub WebSocket message structure.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the metadata.message_type discriminator.
type Kind string

const (
	// KindWelcome is sent once after connecting and after every reconnect handshake.
	KindWelcome Kind = "session_welcome"
	// KindKeepalive is a heartbeat sent when no event arrived within the keepalive timeout.
	KindKeepalive Kind = "session_keepalive"
	// KindNotification carries an event for an active subscription.
	KindNotification Kind = "notification"
	// KindReconnect asks the client to move to a new connection.
	KindReconnect Kind = "session_reconnect"
	// KindRevocation reports that a subscription is no longer active.
	KindRevocation Kind = "revocation"
	// KindUnrecognized is assigned to any discriminator outside the set above.
	KindUnrecognized Kind = "unrecognized"
)

// Known reports whether k is one of the five discriminators the parser decodes.
func (k Kind) Known() bool {
	switch k {
	case KindWelcome, KindKeepalive, KindNotification, KindReconnect, KindRevocation:
		return true
	default:
		return false
	}
}

// Message is a classified EventSub frame. The concrete type is one of
// *Welcome, *Keepalive, *Notification, *Reconnect, *Revocation or *Unrecognized.
type Message interface {
	Kind() Kind
	Meta() Metadata
	sealed()
}

// Metadata identifies a message.
type Metadata struct {
	// MessageID uniquely identifies the message. Twitch sends messages at least once;
	// a resent message keeps its ID.
	MessageID MessageID `json:"message_id"`
	// MessageType is the raw discriminator.
	MessageType string `json:"message_type"`
	// MessageTimestamp is the UTC time the message was sent.
	MessageTimestamp time.Time `json:"message_timestamp"`
	// SubscriptionType is set on notification and revocation messages.
	SubscriptionType string `json:"subscription_type,omitempty"`
	// SubscriptionVersion is set on notification and revocation messages.
	SubscriptionVersion string `json:"subscription_version,omitempty"`
}

// MessageID is either a UUID or an opaque string. Upstream mostly sends UUIDs,
// but legacy identifiers are kept verbatim.
type MessageID struct {
	raw  string
	id   uuid.UUID
	uuid bool
}

// NewMessageID parses s, keeping the UUID form when s is one.
func NewMessageID(s string) MessageID {
	if id, err := uuid.Parse(s); err == nil {
		return MessageID{raw: s, id: id, uuid: true}
	}

	return MessageID{raw: s}
}

// IsUUID reports whether the identifier parsed as a UUID.
func (m MessageID) IsUUID() bool {
	return m.uuid
}

// UUID returns the UUID form of the identifier, if any.
func (m MessageID) UUID() (uuid.UUID, bool) {
	return m.id, m.uuid
}

// String renders the identifier. UUIDs are rendered in canonical form.
func (m MessageID) String() string {
	if m.uuid {
		return m.id.String()
	}

	return m.raw
}

// IsZero reports whether the identifier is empty.
func (m MessageID) IsZero() bool {
	return m.raw == "" && !m.uuid
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("message id must be a string: %w", err)
	}

	*m = NewMessageID(s)

	return nil
}

// MarshalJSON implements json.Marshaler.
func (m MessageID) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(m.String())
	if err != nil {
		return nil, fmt.Errorf("marshaling message id: %w", err)
	}

	return b, nil
}

// Unrecognized is any message whose discriminator is not known. Its payload is kept as-is.
type Unrecognized struct {
	Metadata Metadata
	Payload  json.RawMessage
}

// Kind implements Message.
func (*Unrecognized) Kind() Kind { return KindUnrecognized }

// Meta implements Message.
func (u *Unrecognized) Meta() Metadata { return u.Metadata }

func (*Unrecognized) sealed() {}
