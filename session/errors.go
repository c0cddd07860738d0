package session

import "errors"

var (
	// ErrNoSession is returned when a subscription is attempted before any session id is known.
	ErrNoSession = errors.New("no session id")
	// ErrTransport wraps read failures that end the stream.
	ErrTransport = errors.New("transport failed")
	// ErrReconnect is returned when the reconnect URL could not be dialed.
	ErrReconnect = errors.New("reconnect failed")
	// ErrKeepaliveTimeout is returned when no frame arrived within the keepalive window.
	ErrKeepaliveTimeout = errors.New("keepalive timeout")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("controller already started")
)
