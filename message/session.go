package message

import (
	"time"
)

// WelcomeSession describes the connection a welcome message establishes.
type WelcomeSession struct {
	// ID identifies this connection. Subscriptions must be created against it.
	ID string `json:"id"`
	// Status is "connected" on a welcome.
	Status string `json:"status"`
	// KeepaliveTimeoutSeconds is the longest the server waits before sending a keepalive.
	KeepaliveTimeoutSeconds int `json:"keepalive_timeout_seconds"`
	// ReconnectURL is null on a welcome.
	ReconnectURL *string `json:"reconnect_url"`
	// RecoveryURL is null unless the session can be recovered.
	RecoveryURL *string `json:"recovery_url"`
	// ConnectedAt is the UTC time the connection was created.
	ConnectedAt time.Time `json:"connected_at"`
}

// KeepaliveTimeout returns the announced keepalive timeout.
func (s *WelcomeSession) KeepaliveTimeout() time.Duration {
	return time.Duration(s.KeepaliveTimeoutSeconds) * time.Second
}

func (s *WelcomeSession) validate() error {
	if s.ID == "" {
		return missingField("session.id")
	}

	return nil
}

// Welcome is the session_welcome message. Session is nil when the payload
// carried no session object.
type Welcome struct {
	Metadata Metadata        `json:"-"`
	Session  *WelcomeSession `json:"session"`
}

// Kind implements Message.
func (*Welcome) Kind() Kind { return KindWelcome }

// Meta implements Message.
func (w *Welcome) Meta() Metadata { return w.Metadata }

func (*Welcome) sealed() {}

// Keepalive is the session_keepalive message. Its payload is empty.
type Keepalive struct {
	Metadata Metadata
}

// Kind implements Message.
func (*Keepalive) Kind() Kind { return KindKeepalive }

// Meta implements Message.
func (k *Keepalive) Meta() Metadata { return k.Metadata }

func (*Keepalive) sealed() {}

// ReconnectSession describes the connection being replaced.
type ReconnectSession struct {
	ID                      string    `json:"id"`
	Status                  string    `json:"status"`
	KeepaliveTimeoutSeconds *int      `json:"keepalive_timeout_seconds"`
	ReconnectURL            string    `json:"reconnect_url"`
	ConnectedAt             time.Time `json:"connected_at"`
}

// Reconnect is the session_reconnect message. The new connection at
// Session.ReconnectURL carries the old connection's subscriptions over.
type Reconnect struct {
	Metadata Metadata         `json:"-"`
	Session  ReconnectSession `json:"session"`
}

// Kind implements Message.
func (*Reconnect) Kind() Kind { return KindReconnect }

// Meta implements Message.
func (r *Reconnect) Meta() Metadata { return r.Metadata }

func (*Reconnect) sealed() {}

func (r *Reconnect) validate() error {
	if r.Session.ReconnectURL == "" {
		return missingField("session.reconnect_url")
	}

	return nil
}
