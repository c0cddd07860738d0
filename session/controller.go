// Package session drives an EventSub WebSocket session: it reads frames, tracks the
// session id across reconnects, subscribes once per session and routes notifications.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pmrch/twitch-eventsub/communicator"
	"github.com/pmrch/twitch-eventsub/config"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/message"
	"github.com/pmrch/twitch-eventsub/metrics"
	"github.com/pmrch/twitch-eventsub/retry"
	"github.com/pmrch/twitch-eventsub/router"
)

// Subscriber registers subscriptions for a session id.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, sessionID string) error

// Subscribe calls f.
func (f SubscriberFunc) Subscribe(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}

// Controller owns the transport and runs the receive loop.
//
// Subscriptions are created once, after the first welcome. A welcome that follows a
// reconnect only updates the session id since EventSub carries subscriptions over.
type Controller struct {
	log        log.T
	subscriber Subscriber
	dialer     communicator.Dialer
	router     *router.Router
	clock      clockwork.Clock
	metrics    *metrics.Metrics

	watchdogEnabled bool
	watchdog        *watchdog

	state   *State
	phase   atomic.Int32
	started atomic.Bool

	mu      sync.Mutex
	channel communicator.IWebSocketChannel

	// Owned by the receive loop.
	subscribed   bool
	reconnecting bool
	readFailures int
}

// New creates a Controller reading from channel. If channel is not open yet, Start opens it.
func New(channel communicator.IWebSocketChannel, subscriber Subscriber, logger log.T, opts ...Option) *Controller {
	c := &Controller{
		log:             logger,
		subscriber:      subscriber,
		channel:         channel,
		state:           &State{},
		watchdogEnabled: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		c.dialer = communicator.NewDialer(nil, logger)
	}

	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}

	if c.router == nil {
		c.router = router.New(logger, router.WithMetrics(c.metrics))
	}

	c.watchdog = newWatchdog(c.clock)

	return c
}

// Register sets the handler for category, replacing any earlier one.
func (c *Controller) Register(category router.Category, handler router.Handler) error {
	if _, err := c.router.Register(category, handler); err != nil {
		return err //nolint:wrapcheck
	}

	return nil
}

// SessionID returns the current session id.
func (c *Controller) SessionID() (string, bool) {
	return c.state.Get()
}

// State returns the session state shared with the controller.
func (c *Controller) State() *State {
	return c.state
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Controller) setPhase(p Phase) {
	if old := Phase(c.phase.Swap(int32(p))); old != p {
		c.log.Debug("Session phase changed", "from", old.String(), "to", p.String())
	}
}

// Start runs the receive loop until the server closes the connection, a fatal error
// occurs or ctx is done. A close frame from the server returns nil. The transport is
// closed when Start returns, after all running handlers have finished.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.setPhase(Connecting)

	if !c.transport().IsOpen() {
		if err := c.transport().Open(ctx); err != nil {
			c.setPhase(Closed)

			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	done := make(chan struct{})
	supervised := make(chan struct{})

	go func() {
		defer close(supervised)
		c.supervise(ctx, done)
	}()

	err := c.run(ctx)

	close(done)
	<-supervised

	c.watchdog.stop()
	c.closeTransport()
	c.router.Wait()
	c.setPhase(Closed)

	if err != nil {
		c.log.Error("Session ended with error", "error", err)

		return err
	}

	c.log.Info("Session ended")

	return nil
}

// supervise closes the transport when ctx is done or the watchdog expires, which
// unblocks the pending read. It runs until done so a transport installed by a
// reconnect stays covered.
func (c *Controller) supervise(ctx context.Context, done <-chan struct{}) {
	ctxDone := ctx.Done()

	for {
		select {
		case <-ctxDone:
			ctxDone = nil

			c.closeTransport()
		case <-done:
			return
		case <-c.watchdog.armed:
		case <-c.watchdog.expiry():
			c.watchdog.expired.Store(true)
			c.log.Error("No frame received within keepalive window", "url", c.transport().GetStreamURL())
			c.closeTransport()
		}
	}
}

func (c *Controller) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck
		}

		raw, err := c.transport().ReadMessage()
		if err != nil {
			if stop, fatal := c.readError(ctx, err); stop {
				return fatal
			}

			continue
		}

		c.readFailures = 0
		c.watchdog.feed()

		msg, err := message.Parse(raw)
		if err != nil {
			c.log.Error("Failed to decode frame", "error", err)

			return fmt.Errorf("classifying frame: %w", err)
		}

		c.metrics.ObserveFrame(string(msg.Kind()))

		if err := c.handle(ctx, msg); err != nil {
			return err
		}
	}
}

// readError decides whether a read failure ends the loop and with which error.
func (c *Controller) readError(ctx context.Context, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return true, ctxErr
	}

	if c.watchdog.expired.Load() {
		return true, fmt.Errorf("%w: %w", ErrTransport, ErrKeepaliveTimeout)
	}

	// 1006 is synthesized locally when the connection drops without a close frame.
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		if closeErr.Code == websocket.CloseNormalClosure {
			c.log.Info("Connection closed by server", "code", closeErr.Code, "reason", closeErr.Text)
		} else {
			c.log.Warn("Connection closed by server", "code", closeErr.Code, "reason", closeErr.Text)
		}

		return true, nil
	}

	if closeErr != nil || errors.Is(err, communicator.ErrClosed) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.readFailures++
	if c.readFailures >= config.RetryAttempt {
		c.log.Error("Reached retry limit for receiving messages", "retryLimit", config.RetryAttempt, "error", err)

		return true, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.log.Warn("Error receiving message", "retryCount", c.readFailures, "error", err)

	return false, nil
}

func (c *Controller) handle(ctx context.Context, msg message.Message) error {
	meta := msg.Meta()
	logger := c.log.With("messageID", meta.MessageID.String(), "messageType", meta.MessageType)

	switch m := msg.(type) {
	case *message.Welcome:
		return c.handleWelcome(ctx, logger, m)
	case *message.Keepalive:
		logger.Trace("Keepalive")
	case *message.Notification:
		category := router.CategoryFor(m.Event.SubscriptionType())
		c.router.Dispatch(ctx, category, m.Event, meta.MessageTimestamp)
	case *message.Reconnect:
		return c.handleReconnect(ctx, logger, m)
	case *message.Revocation:
		logger.Warn("Subscription revoked",
			"subscriptionType", m.SubscriptionType,
			"subscriptionID", m.Subscription.ID.String(),
			"status", m.Subscription.Status)
	case *message.Unrecognized:
		logger.Debug("Ignoring unrecognized message")
	}

	return nil
}

func (c *Controller) handleWelcome(ctx context.Context, logger log.T, m *message.Welcome) error {
	if m.Session == nil {
		logger.Warn("Welcome message carries no session")

		return nil
	}

	c.state.Set(m.Session.ID)
	c.setPhase(Active)

	if c.watchdogEnabled {
		timeout := m.Session.KeepaliveTimeout()
		if timeout > 0 {
			timeout += config.KeepaliveGrace
		}

		c.watchdog.arm(timeout)
	}

	logger = logger.With("sessionID", m.Session.ID)

	if c.reconnecting {
		c.reconnecting = false
		logger.Info("Session resumed after reconnect")

		return nil
	}

	if c.subscribed {
		logger.Debug("Session already subscribed")

		return nil
	}

	logger.Info("Saved current session ID")

	sessionID, ok := c.state.Get()
	if !ok {
		return ErrNoSession
	}

	if err := c.subscriber.Subscribe(ctx, sessionID); err != nil {
		return fmt.Errorf("subscribing session %s: %w", sessionID, err)
	}

	c.subscribed = true

	return nil
}

func (c *Controller) handleReconnect(ctx context.Context, logger log.T, m *message.Reconnect) error {
	url := m.Session.ReconnectURL

	c.setPhase(Reconnecting)
	logger.Info("Reconnect requested", "url", url, "sessionID", m.Session.ID)

	// Nothing is read while dialing. The next welcome re-arms the watchdog.
	c.watchdog.stop()

	next, err := c.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReconnect, err)
	}

	c.mu.Lock()
	prev := c.channel
	c.channel = next
	c.mu.Unlock()

	if err := prev.Close(); err != nil {
		logger.Warn("Closing previous connection", "error", err)
	}

	// The supervisor may have closed the previous transport while the dial was in flight.
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	if c.watchdog.expired.Load() {
		return fmt.Errorf("%w: %w", ErrTransport, ErrKeepaliveTimeout)
	}

	// A reconnect before the first welcome leaves the subscription to that welcome.
	c.reconnecting = c.subscribed
	c.metrics.ObserveReconnect()

	return nil
}

func (c *Controller) dial(ctx context.Context, url string) (communicator.IWebSocketChannel, error) { //nolint:ireturn
	var channel communicator.IWebSocketChannel

	retryer := retry.RepeatableExponentialRetryer{
		CallableFunc: func(ctx context.Context) error {
			ch, err := c.dialer.Dial(ctx, url)
			if err != nil {
				return err //nolint:wrapcheck
			}

			channel = ch

			return nil
		},
		GeometricRatio:      config.RetryBase,
		InitialDelayInMilli: rand.IntN(config.ReconnectRetryInitialDelayMillis) + config.ReconnectRetryInitialDelayMillis, //nolint:gosec
		MaxDelayInMilli:     config.ReconnectRetryMaxIntervalMillis,
		MaxAttempts:         config.ReconnectNumMaxRetries,
		OnRetry: func(attempt int, err error) {
			c.log.Warn("Retrying reconnect dial", "url", url, "attempt", attempt, "error", err)
		},
	}

	if err := retryer.Call(ctx); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return channel, nil
}

func (c *Controller) transport() communicator.IWebSocketChannel { //nolint:ireturn
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.channel
}

func (c *Controller) closeTransport() {
	if err := c.transport().Close(); err != nil {
		c.log.Debug("Closing transport", "error", err)
	}
}
