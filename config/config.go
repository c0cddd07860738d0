// Package config provides configuration constants for the application.
package config

import "time"

const (
	// EventSubURL is the default Twitch EventSub WebSocket endpoint.
	EventSubURL = "wss://eventsub.wss.twitch.tv/ws"
	// HelixURL is the base URL of the Helix API.
	HelixURL = "https://api.twitch.tv/helix"
	// TransportMethodWebSocket is the subscription transport method for WebSocket sessions.
	TransportMethodWebSocket = "websocket"
	// DefaultSubscriptionVersion is the subscription type version requested when none is given.
	DefaultSubscriptionVersion = "1"

	// RetryBase is the base value for retry attempts.
	RetryBase = 2
	// ReconnectNumMaxRetries is the maximum number of retries when dialing a reconnect URL.
	ReconnectNumMaxRetries = 3
	// ReconnectRetryInitialDelayMillis is the initial delay in milliseconds before retrying a reconnect dial.
	ReconnectRetryInitialDelayMillis = 100
	// ReconnectRetryMaxIntervalMillis is the maximum interval in milliseconds between reconnect dial retries.
	ReconnectRetryMaxIntervalMillis = 2000

	// RetryAttempt is the number of consecutive read errors tolerated before the transport is considered dead.
	RetryAttempt = 5

	// KeepaliveGrace is added to the keepalive timeout announced in the welcome message
	// before the session is declared stalled.
	KeepaliveGrace = 5 * time.Second

	// HandlerConcurrency bounds the number of notification handlers running at once.
	HandlerConcurrency = 16

	// SubscribeTimeout bounds a single subscription request.
	SubscribeTimeout = 15 * time.Second
	// DialTimeout bounds the WebSocket handshake.
	DialTimeout = 10 * time.Second
)
