package eventsubtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// Script drives one accepted connection. It runs on the server side.
type Script func(conn *Conn)

// Server is a scripted EventSub WebSocket endpoint.
type Server struct {
	srv         *httptest.Server
	script      Script
	connections atomic.Int32

	mu   sync.Mutex
	open []*websocket.Conn
}

// NewServer starts a server that runs script for every accepted connection.
func NewServer(script Script) *Server {
	s := &Server{script: script}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))

	return s
}

// URL returns the ws:// URL of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Connections returns the number of connections accepted so far.
func (s *Server) Connections() int {
	return int(s.connections.Load())
}

// Close shuts the server down and closes any open connections.
func (s *Server) Close() {
	s.mu.Lock()
	for _, ws := range s.open {
		_ = ws.NetConn().Close()
	}
	s.mu.Unlock()

	s.srv.Close()
}

func (s *Server) handle(w http.ResponseWriter, req *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	s.connections.Add(1)

	s.mu.Lock()
	s.open = append(s.open, ws)
	s.mu.Unlock()

	conn := &Conn{ws: ws}
	defer ws.Close()

	s.script(conn)

	// Drain until the client goes away so the script's last frames are delivered.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Conn is the server side of one connection.
type Conn struct {
	ws *websocket.Conn
}

// Send writes each frame as a text message.
func (c *Conn) Send(frames ...[]byte) error {
	for _, f := range frames {
		if err := c.ws.WriteMessage(websocket.TextMessage, f); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return nil
}

// SendBinary writes a binary message.
func (c *Conn) SendBinary(data []byte) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, data) //nolint:wrapcheck
}

// CloseNormal sends a normal-closure close frame.
func (c *Conn) CloseNormal() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	return c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)) //nolint:wrapcheck
}

// Drop closes the underlying network connection without a close frame.
func (c *Conn) Drop() error {
	return c.ws.NetConn().Close() //nolint:wrapcheck
}
