// Package websocketutil contains methods for interacting with websocket connections.
package websocketutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pmrch/twitch-eventsub/config"
	"github.com/pmrch/twitch-eventsub/log"
)

// ErrNil is returned when the websocket connection is nil.
var ErrNil = errors.New("websocket is nil")

const closeWriteTimeout = time.Second

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// IWebsocketUtil is the interface for the websocketutil.
type IWebsocketUtil interface {
	OpenConnection(ctx context.Context, url string) (*websocket.Conn, error)
	CloseConnection(ws *websocket.Conn) error
}

// WebsocketUtil struct provides functionality around creating and maintaining websockets.
type WebsocketUtil struct {
	dialer Dialer
	log    log.T
}

// DefaultDialer is used when no dialer is supplied.
func DefaultDialer() *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.DialTimeout,
	}
}

// NewWebsocketUtil is the factory function for websocketutil.
func NewWebsocketUtil(logger log.T, dialer Dialer) *WebsocketUtil {
	if dialer == nil {
		dialer = DefaultDialer()
	}

	return &WebsocketUtil{
		dialer: dialer,
		log:    logger,
	}
}

// OpenConnection opens a websocket connection provided an input url.
func (u *WebsocketUtil) OpenConnection(ctx context.Context, url string) (*websocket.Conn, error) {
	u.log.Debug("Opening websocket connection", "url", url)

	conn, resp, err := u.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		u.log.Error("dialing websocket", "url", url, "error", err.Error())

		return nil, fmt.Errorf("dialing websocket: %w", err)
	}

	u.log.Debug("Websocket connection opened", "remoteAddr", conn.RemoteAddr().String())

	return conn, nil
}

// CloseConnection sends a normal closure frame and closes the underlying connection.
// The close frame is best effort; a peer that already went away is not an error.
func (u *WebsocketUtil) CloseConnection(ws *websocket.Conn) error {
	if ws == nil {
		return ErrNil
	}

	u.log.Debug("Closing websocket connection", "remoteAddr", ws.RemoteAddr().String())

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeWriteTimeout)); err != nil {
		u.log.Trace("Writing close frame", "error", err.Error())
	}

	err := ws.Close()
	if err != nil {
		u.log.Error("closing websocket", "error", err.Error())

		return fmt.Errorf("closing websocket: %w", err)
	}

	u.log.Debug("Successfully closed websocket connection", "remoteAddr", ws.RemoteAddr().String())

	return nil
}
