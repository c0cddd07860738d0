package message

import (
	"encoding/json"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/pmrch/twitch-eventsub/jsonutil"
)

// envelope is the first decoding stage: metadata plus a deferred payload.
type envelope struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Parse classifies a raw text frame. The payload is decoded only once the
// discriminator is known. An unknown discriminator yields *Unrecognized and never
// an error; a recognized discriminator with a payload of the wrong shape yields a
// *DecodeError.
func Parse(raw []byte) (Message, error) { //nolint:ireturn
	var env envelope
	if err := jsonutil.Unmarshal(raw, &env); err != nil {
		return nil, malformed("", err)
	}

	kind := Kind(env.Metadata.MessageType)
	if !kind.Known() {
		return &Unrecognized{Metadata: env.Metadata, Payload: env.Payload}, nil
	}

	if err := validateMetadata(env.Metadata); err != nil {
		return nil, malformed(kind, err)
	}

	if jsonutil.IsNull(env.Payload) {
		return nil, malformed(kind, missingField("payload"))
	}

	var (
		msg Message
		err error
	)

	switch kind {
	case KindWelcome:
		msg, err = parseWelcome(env)
	case KindKeepalive:
		msg, err = parseKeepalive(env)
	case KindNotification:
		msg, err = parseNotification(env)
	case KindReconnect:
		msg, err = parseReconnect(env)
	case KindRevocation:
		msg, err = parseRevocation(env)
	}

	if err != nil {
		return nil, malformed(kind, err)
	}

	return msg, nil
}

func validateMetadata(m Metadata) error {
	if m.MessageID.IsZero() {
		return missingField("metadata.message_id")
	}

	if m.MessageTimestamp.IsZero() {
		return missingField("metadata.message_timestamp")
	}

	return nil
}

func parseWelcome(env envelope) (*Welcome, error) {
	msg := &Welcome{Metadata: env.Metadata}
	if err := jsonutil.Unmarshal(env.Payload, msg); err != nil {
		return nil, err
	}

	// A missing session is reported by the controller, not rejected here.
	if msg.Session != nil {
		if err := msg.Session.validate(); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

func parseKeepalive(env envelope) (*Keepalive, error) {
	var payload struct{}
	if err := jsonutil.Unmarshal(env.Payload, &payload); err != nil {
		return nil, err
	}

	return &Keepalive{Metadata: env.Metadata}, nil
}

func parseReconnect(env envelope) (*Reconnect, error) {
	msg := &Reconnect{Metadata: env.Metadata}
	if err := jsonutil.Unmarshal(env.Payload, msg); err != nil {
		return nil, err
	}

	if err := msg.validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

type subscriptionPayload struct {
	Subscription *Subscription  `json:"subscription"`
	Event        json.RawMessage `json:"event"`
}

func (p *subscriptionPayload) validate() error {
	if p.Subscription == nil {
		return missingField("subscription")
	}

	return p.Subscription.validate()
}

func parseNotification(env envelope) (*Notification, error) {
	var payload subscriptionPayload
	if err := jsonutil.Unmarshal(env.Payload, &payload); err != nil {
		return nil, err
	}

	if err := payload.validate(); err != nil {
		return nil, err
	}

	if jsonutil.IsNull(payload.Event) {
		return nil, missingField("event")
	}

	event, err := decodeEvent(payload.Subscription.Type, payload.Event)
	if err != nil {
		return nil, err
	}

	subType, subVersion := subscriptionIdentity(env.Metadata, payload.Subscription)

	return &Notification{
		Metadata:            env.Metadata,
		SubscriptionType:    subType,
		SubscriptionVersion: subVersion,
		Subscription:        *payload.Subscription,
		Event:               event,
	}, nil
}

func parseRevocation(env envelope) (*Revocation, error) {
	var payload subscriptionPayload
	if err := jsonutil.Unmarshal(env.Payload, &payload); err != nil {
		return nil, err
	}

	if err := payload.validate(); err != nil {
		return nil, err
	}

	subType, subVersion := subscriptionIdentity(env.Metadata, payload.Subscription)

	return &Revocation{
		Metadata:            env.Metadata,
		SubscriptionType:    subType,
		SubscriptionVersion: subVersion,
		Subscription:        *payload.Subscription,
	}, nil
}

func subscriptionIdentity(m Metadata, s *Subscription) (string, string) {
	subType, subVersion := m.SubscriptionType, m.SubscriptionVersion
	if subType == "" {
		subType = s.Type
	}

	if subVersion == "" {
		subVersion = s.Version
	}

	return subType, subVersion
}

type typedEvent interface {
	Event
	validate() error
}

// decodeEvent selects the event shape from the subscription type. Types without a
// typed shape are kept as *OpaqueEvent.
func decodeEvent(subscriptionType string, raw json.RawMessage) (Event, error) { //nolint:ireturn
	var event typedEvent

	switch subscriptionType {
	case helix.EventSubTypeChannelChatMessage:
		event = &ChannelChatMessage{}
	case helix.EventSubTypeChannelSubscribe:
		event = &ChannelSubscribe{}
	case helix.EventSubTypeChannelCheer:
		event = &ChannelCheer{}
	default:
		return &OpaqueEvent{Type: subscriptionType, Raw: raw}, nil
	}

	if err := jsonutil.Unmarshal(raw, event); err != nil {
		return nil, err
	}

	if err := event.validate(); err != nil {
		return nil, err
	}

	return event, nil
}
