package communicator

import "context"

// IWebSocketChannel is the interface for the EventSub transport.
type IWebSocketChannel interface {
	Open(ctx context.Context) error
	Close() error
	ReadMessage() ([]byte, error)
	IsOpen() bool
	GetStreamURL() string
}

// Dialer opens a new channel to url. The session controller uses it to follow reconnect instructions.
type Dialer interface {
	Dial(ctx context.Context, url string) (IWebSocketChannel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (IWebSocketChannel, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string) (IWebSocketChannel, error) { //nolint:ireturn
	return f(ctx, url)
}
