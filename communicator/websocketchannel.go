// Copyright 2018 Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the
// License is located at
//
// http://aws.amazon.com/apache2.0/
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package communicator implements base communicator for network connections.
package communicator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/websocketutil"
)

// ErrClosed is returned when reading from a channel that is not open.
var ErrClosed = errors.New("websocket channel is closed")

// WebSocketChannel is a receive-only websocket connection to an EventSub endpoint.
// ReadMessage must be called from a single goroutine; Close may be called from any.
type WebSocketChannel struct {
	channelURL string
	util       *websocketutil.WebsocketUtil
	log        log.T

	isOpen atomic.Bool

	mu         sync.Mutex
	connection *websocket.Conn
}

// NewWebSocketChannel creates a WebSocketChannel. A nil dialer uses websocketutil.DefaultDialer.
func NewWebSocketChannel(channelURL string, dialer websocketutil.Dialer, logger log.T) *WebSocketChannel {
	logger = logger.With("url", channelURL)

	return &WebSocketChannel{
		channelURL: channelURL,
		util:       websocketutil.NewWebsocketUtil(logger, dialer),
		log:        logger,
	}
}

// GetStreamURL gets stream url.
func (c *WebSocketChannel) GetStreamURL() string {
	return c.channelURL
}

// IsOpen checks if the channel is open.
func (c *WebSocketChannel) IsOpen() bool {
	return c.isOpen.Load()
}

// Open upgrades the http connection to a websocket connection.
func (c *WebSocketChannel) Open(ctx context.Context) error {
	ws, err := c.util.OpenConnection(ctx, c.channelURL)
	if err != nil {
		return fmt.Errorf("opening websocket connection: %w", err)
	}

	c.mu.Lock()
	c.connection = ws
	c.mu.Unlock()

	c.isOpen.Store(true)

	return nil
}

// ReadMessage blocks until the next text or binary frame arrives.
// Close frames surface as *websocket.CloseError.
func (c *WebSocketChannel) ReadMessage() ([]byte, error) {
	if !c.isOpen.Load() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	conn := c.connection
	c.mu.Unlock()

	messageType, rawMessage, err := conn.ReadMessage()
	if err != nil {
		if !c.isOpen.Load() {
			return nil, fmt.Errorf("%w: %w", ErrClosed, err)
		}

		return nil, fmt.Errorf("reading websocket message: %w", err)
	}

	c.log.Trace("Received frame", "messageType", messageType, "size", len(rawMessage))

	return rawMessage, nil
}

// Close closes the corresponding connection. Closing twice is a no-op.
func (c *WebSocketChannel) Close() error {
	if !c.isOpen.CompareAndSwap(true, false) {
		c.log.Debug("Websocket channel connection is already closed")

		return nil
	}

	c.log.Debug("Closing websocket channel connection")

	c.mu.Lock()
	conn := c.connection
	c.mu.Unlock()

	if err := c.util.CloseConnection(conn); err != nil {
		return fmt.Errorf("closing websocket connection: %w", err)
	}

	return nil
}
