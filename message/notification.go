package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/google/uuid"
	"github.com/pmrch/twitch-eventsub/jsonutil"
)

// Transport describes how a subscription delivers events.
type Transport struct {
	Method         string     `json:"method"`
	SessionID      string     `json:"session_id,omitempty"`
	Callback       string     `json:"callback,omitempty"`
	ConduitID      string     `json:"conduit_id,omitempty"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Subscription is the subscription object attached to notifications and revocations.
type Subscription struct {
	ID        uuid.UUID      `json:"id"`
	Status    string         `json:"status"`
	Type      string         `json:"type"`
	Version   string         `json:"version"`
	Cost      int            `json:"cost"`
	Condition map[string]any `json:"condition"`
	Transport Transport      `json:"transport"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Subscription) validate() error {
	if s.ID == uuid.Nil {
		return missingField("subscription.id")
	}

	if s.Type == "" {
		return missingField("subscription.type")
	}

	return nil
}

// Notification is the notification message.
type Notification struct {
	Metadata Metadata
	// SubscriptionType and SubscriptionVersion come from the metadata and fall back
	// to the subscription object when the metadata omits them.
	SubscriptionType    string
	SubscriptionVersion string
	Subscription        Subscription
	Event               Event
}

// Kind implements Message.
func (*Notification) Kind() Kind { return KindNotification }

// Meta implements Message.
func (n *Notification) Meta() Metadata { return n.Metadata }

func (*Notification) sealed() {}

// Revocation is the revocation message. It carries no event.
type Revocation struct {
	Metadata            Metadata
	SubscriptionType    string
	SubscriptionVersion string
	Subscription        Subscription
}

// Kind implements Message.
func (*Revocation) Kind() Kind { return KindRevocation }

// Meta implements Message.
func (r *Revocation) Meta() Metadata { return r.Metadata }

func (*Revocation) sealed() {}

// Event is the polymorphic notification event. The concrete type is selected by
// the subscription type: *ChannelChatMessage, *ChannelSubscribe, *ChannelCheer,
// or *OpaqueEvent for anything else.
type Event interface {
	SubscriptionType() string
}

// OpaqueEvent keeps an event of an undecoded subscription type verbatim.
type OpaqueEvent struct {
	Type string
	Raw  json.RawMessage
}

// SubscriptionType implements Event.
func (o *OpaqueEvent) SubscriptionType() string { return o.Type }

// Decode re-decodes the raw event into dest, which may be a struct pointer or a
// *map[string]any.
func (o *OpaqueEvent) Decode(dest any) error {
	var fields map[string]any
	if err := jsonutil.Unmarshal(o.Raw, &fields); err != nil {
		return fmt.Errorf("decoding %s event: %w", o.Type, err)
	}

	if err := jsonutil.Remarshal(fields, dest); err != nil {
		return fmt.Errorf("decoding %s event: %w", o.Type, err)
	}

	return nil
}

// ChannelSubscribe is the channel.subscribe event.
type ChannelSubscribe struct {
	helix.ChannelSubscribeEvent
}

// SubscriptionType implements Event.
func (*ChannelSubscribe) SubscriptionType() string { return helix.EventSubTypeChannelSubscribe }

func (e *ChannelSubscribe) validate() error {
	if e.BroadcasterUserID == "" {
		return missingField("event.broadcaster_user_id")
	}

	return nil
}

// ChannelCheer is the channel.cheer event. User fields are empty for anonymous cheers.
type ChannelCheer struct {
	helix.ChannelCheerEvent
}

// SubscriptionType implements Event.
func (*ChannelCheer) SubscriptionType() string { return helix.EventSubTypeChannelCheer }

func (e *ChannelCheer) validate() error {
	if e.BroadcasterUserID == "" {
		return missingField("event.broadcaster_user_id")
	}

	return nil
}
