package communicator

import (
	"context"

	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/websocketutil"
)

// WebSocketDialer opens WebSocketChannels.
type WebSocketDialer struct {
	dialer websocketutil.Dialer
	log    log.T
}

// NewDialer returns a Dialer that opens WebSocketChannels with dialer. A nil dialer
// uses websocketutil.DefaultDialer.
func NewDialer(dialer websocketutil.Dialer, logger log.T) *WebSocketDialer {
	return &WebSocketDialer{dialer: dialer, log: logger}
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (IWebSocketChannel, error) { //nolint:ireturn
	channel := NewWebSocketChannel(url, d.dialer, d.log)

	if err := channel.Open(ctx); err != nil {
		return nil, err
	}

	return channel, nil
}
