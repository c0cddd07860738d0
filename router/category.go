package router

import "github.com/Its-donkey/kappopher/helix"

// Category is the routing key for notifications.
type Category int

// Categories. CategoryUnknown is assigned to subscription types without a category
// and can not be registered.
const (
	CategoryUnknown Category = iota
	ChatMessage
	Subscription
	Bits
)

var subscriptionTypes = map[Category]string{
	ChatMessage:  helix.EventSubTypeChannelChatMessage,
	Subscription: helix.EventSubTypeChannelSubscribe,
	Bits:         helix.EventSubTypeChannelCheer,
}

// Categories returns every routable category.
func Categories() []Category {
	return []Category{ChatMessage, Subscription, Bits}
}

// CategoryFor maps an EventSub subscription type to its category.
func CategoryFor(subscriptionType string) Category {
	for c, t := range subscriptionTypes {
		if t == subscriptionType {
			return c
		}
	}

	return CategoryUnknown
}

// SubscriptionType returns the EventSub subscription type for c, or "" for CategoryUnknown.
func (c Category) SubscriptionType() string {
	return subscriptionTypes[c]
}

func (c Category) String() string {
	switch c {
	case ChatMessage:
		return "chat_message"
	case Subscription:
		return "subscription"
	case Bits:
		return "bits"
	case CategoryUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}
