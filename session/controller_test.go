package session_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pmrch/twitch-eventsub/communicator"
	"github.com/pmrch/twitch-eventsub/eventsubtest"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/message"
	"github.com/pmrch/twitch-eventsub/metrics"
	"github.com/pmrch/twitch-eventsub/router"
	"github.com/pmrch/twitch-eventsub/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

type recordingSubscriber struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *recordingSubscriber) Subscribe(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = append(s.ids, sessionID)

	return s.err
}

func (s *recordingSubscriber) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.ids...)
}

type chatLine struct {
	chatter string
	text    string
}

type chatRecorder struct {
	mu    sync.Mutex
	lines []chatLine
}

func (r *chatRecorder) handler() router.ChatMessageFunc {
	return func(_ context.Context, text, chatter string, _ time.Time) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.lines = append(r.lines, chatLine{chatter: chatter, text: text})
	}
}

func (r *chatRecorder) recorded() []chatLine {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]chatLine(nil), r.lines...)
}

func newController(srv *eventsubtest.Server, sub session.Subscriber, logger log.T, opts ...session.Option) *session.Controller {
	channel := communicator.NewWebSocketChannel(srv.URL(), nil, logger)

	return session.New(channel, sub, logger, opts...)
}

func start(t *testing.T, c *session.Controller) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	return c.Start(ctx)
}

func TestWelcomeSubscribesOnceAndRoutesChat(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.ChatNotification("alice", "hello"),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	sub := &recordingSubscriber{}
	chat := &chatRecorder{}

	c := newController(srv, sub, log.NewMockLog())
	require.NoError(t, c.Register(router.ChatMessage, chat.handler()))

	require.NoError(t, start(t, c))

	assert.Equal(t, []string{"S1"}, sub.calls())
	assert.Equal(t, []chatLine{{chatter: "alice", text: "hello"}}, chat.recorded())

	id, ok := c.SessionID()
	assert.True(t, ok)
	assert.Equal(t, "S1", id)
	assert.Equal(t, session.Closed, c.Phase())
}

func TestReconnectKeepsSubscriptions(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	next := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S2"),
			eventsubtest.ChatNotification("bob", "after reconnect"),
		)
		<-release
		_ = conn.CloseNormal()
	})
	defer next.Close()

	first := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.Reconnect("S1", next.URL()),
		)
	})
	defer first.Close()

	sub := &recordingSubscriber{}
	m := metrics.New(metrics.NewRegistry())

	c := newController(first, sub, log.NewMockLog(), session.WithMetrics(m))

	type observed struct {
		phase session.Phase
		id    string
	}

	seen := make(chan observed, 1)

	require.NoError(t, c.Register(router.ChatMessage, router.HandlerFunc(func(context.Context, message.Event, time.Time) {
		id, _ := c.SessionID()
		seen <- observed{phase: c.Phase(), id: id}
	})))

	errc := make(chan error, 1)

	go func() { errc <- start(t, c) }()

	got := <-seen
	assert.Equal(t, session.Active, got.phase)
	assert.Equal(t, "S2", got.id)

	close(release)
	require.NoError(t, <-errc)

	assert.Equal(t, []string{"S1"}, sub.calls())
	assert.Equal(t, 1, next.Connections())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Reconnects), 0)
}

func TestKeepalivesHaveNoEffect(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.Keepalive(),
			eventsubtest.Keepalive(),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	sub := &recordingSubscriber{}
	chat := &chatRecorder{}
	m := metrics.New(metrics.NewRegistry())

	c := newController(srv, sub, log.NewMockLog(), session.WithMetrics(m))
	require.NoError(t, c.Register(router.ChatMessage, chat.handler()))

	require.NoError(t, start(t, c))

	assert.Equal(t, []string{"S1"}, sub.calls())
	assert.Empty(t, chat.recorded())

	id, _ := c.SessionID()
	assert.Equal(t, "S1", id)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Frames.WithLabelValues("session_keepalive")), 0)
}

func TestUnroutedNotificationsAreSkipped(t *testing.T) {
	t.Parallel()

	cheer := map[string]any{
		"is_anonymous":           true,
		"user_id":                nil,
		"user_login":             nil,
		"user_name":              nil,
		"broadcaster_user_id":    eventsubtest.BroadcasterUserID,
		"broadcaster_user_login": "streamer",
		"broadcaster_user_name":  "Streamer",
		"message":                "Cheer100",
		"bits":                   100,
	}

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.Notification("channel.cheer", cheer),
			eventsubtest.Notification("channel.follow", map[string]any{"user_id": "99"}),
			eventsubtest.ChatNotification("alice", "still here"),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	chat := &chatRecorder{}
	m := metrics.New(metrics.NewRegistry())

	c := newController(srv, &recordingSubscriber{}, log.NewMockLog(), session.WithMetrics(m))
	require.NoError(t, c.Register(router.ChatMessage, chat.handler()))

	require.NoError(t, start(t, c))

	assert.Equal(t, []chatLine{{chatter: "alice", text: "still here"}}, chat.recorded())
	assert.InDelta(t, 1, testutil.ToFloat64(m.RoutingMisses.WithLabelValues("bits")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RoutingMisses.WithLabelValues("unknown")), 0)
}

func TestWelcomeWithoutSessionIsLogged(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.WelcomeWithoutSession(),
			eventsubtest.Keepalive(),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	var buf bytes.Buffer

	logger := log.NewMockLogWithWriter(&buf)
	sub := &recordingSubscriber{}

	c := newController(srv, sub, logger)

	require.NoError(t, start(t, c))

	assert.Empty(t, sub.calls())

	_, ok := c.SessionID()
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Welcome message carries no session")
}

func TestRevocationIsLogged(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.Revocation("channel.chat.message"),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	var buf bytes.Buffer

	c := newController(srv, &recordingSubscriber{}, log.NewMockLogWithWriter(&buf))

	require.NoError(t, start(t, c))

	assert.Contains(t, buf.String(), "Subscription revoked")
	assert.Contains(t, buf.String(), "subscriptionType=channel.chat.message")
}

func TestUnrecognizedMessagesAreIgnored(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Frame("session_party", []int{1, 2, 3}, nil),
			eventsubtest.Welcome("S1"),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	sub := &recordingSubscriber{}
	c := newController(srv, sub, log.NewMockLog())

	require.NoError(t, start(t, c))
	assert.Equal(t, []string{"S1"}, sub.calls())
}

func TestMalformedRecognizedMessageIsFatal(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Frame("session_welcome", map[string]any{"session": map[string]any{"id": 5}}, nil),
			eventsubtest.Welcome("S1"),
		)
	})
	defer srv.Close()

	sub := &recordingSubscriber{}
	c := newController(srv, sub, log.NewMockLog())

	err := start(t, c)
	require.ErrorIs(t, err, message.ErrMalformed)

	var decodeErr *message.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, message.KindWelcome, decodeErr.Kind)

	assert.Empty(t, sub.calls())
	assert.Equal(t, session.Closed, c.Phase())
}

func TestSubscriptionFailureIsFatal(t *testing.T) {
	t.Parallel()

	errForbidden := errors.New("403 forbidden")

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.Welcome("S1"))
	})
	defer srv.Close()

	sub := &recordingSubscriber{err: errForbidden}
	c := newController(srv, sub, log.NewMockLog())

	err := start(t, c)
	require.ErrorIs(t, err, errForbidden)
	assert.Equal(t, []string{"S1"}, sub.calls())
	assert.Equal(t, session.Closed, c.Phase())
}

func TestDroppedConnectionIsTransportError(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.Welcome("S1"))
		_ = conn.Drop()
	})
	defer srv.Close()

	c := newController(srv, &recordingSubscriber{}, log.NewMockLog())

	require.ErrorIs(t, start(t, c), session.ErrTransport)
}

func TestReconnectDialFailure(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.Reconnect("S1", "ws://reconnect.invalid/ws"),
		)
	})
	defer srv.Close()

	var dials atomic.Int32

	dialer := communicator.DialerFunc(func(context.Context, string) (communicator.IWebSocketChannel, error) {
		dials.Add(1)

		return nil, errors.New("connection refused")
	})

	sub := &recordingSubscriber{}
	c := newController(srv, sub, log.NewMockLog(), session.WithDialer(dialer))

	err := start(t, c)
	require.ErrorIs(t, err, session.ErrReconnect)
	assert.Equal(t, int32(4), dials.Load())
	assert.Equal(t, []string{"S1"}, sub.calls())
}

func TestContextCancelStopsSession(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.Welcome("S1"))
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscribed := make(chan struct{})
	sub := session.SubscriberFunc(func(context.Context, string) error {
		close(subscribed)

		return nil
	})

	c := newController(srv, sub, log.NewMockLog())

	errc := make(chan error, 1)

	go func() { errc <- c.Start(ctx) }()

	<-subscribed
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(testTimeout):
		t.Fatal("Start did not return after cancel")
	}

	assert.Equal(t, session.Closed, c.Phase())
}

func TestKeepaliveWatchdogExpires(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.WelcomeWithKeepalive("S1", 10))
	})
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := newController(srv, &recordingSubscriber{}, log.NewMockLog(), session.WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	errc := make(chan error, 1)

	go func() { errc <- c.Start(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(16 * time.Second)

	err := <-errc
	require.ErrorIs(t, err, session.ErrKeepaliveTimeout)
	require.ErrorIs(t, err, session.ErrTransport)
}

func TestKeepaliveWatchdogDisabled(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.WelcomeWithKeepalive("S1", 10))
	})
	defer srv.Close()

	clock := clockwork.NewFakeClock()

	subscribed := make(chan struct{})
	sub := session.SubscriberFunc(func(context.Context, string) error {
		close(subscribed)

		return nil
	})

	c := newController(srv, sub, log.NewMockLog(),
		session.WithClock(clock),
		session.WithKeepaliveWatchdog(false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)

	go func() { errc <- c.Start(ctx) }()

	<-subscribed
	clock.Advance(time.Minute)

	select {
	case err := <-errc:
		t.Fatalf("Start returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}

func TestHandlerPanicDoesNotStopSession(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S1"),
			eventsubtest.ChatNotification("alice", "panic"),
			eventsubtest.ChatNotification("alice", "calm"),
		)
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	var calm atomic.Int32

	c := newController(srv, &recordingSubscriber{}, log.NewMockLog())
	require.NoError(t, c.Register(router.ChatMessage, router.ChatMessageFunc(
		func(_ context.Context, text, _ string, _ time.Time) {
			if text == "panic" {
				panic("handler failure")
			}

			calm.Add(1)
		})))

	require.NoError(t, start(t, c))
	assert.Equal(t, int32(1), calm.Load())
}

func TestStartTwice(t *testing.T) {
	t.Parallel()

	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.Welcome("S1"))
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	c := newController(srv, &recordingSubscriber{}, log.NewMockLog())

	require.NoError(t, start(t, c))
	require.ErrorIs(t, start(t, c), session.ErrAlreadyStarted)
}

func TestStartFailsWhenDialFails(t *testing.T) {
	t.Parallel()

	channel := communicator.NewWebSocketChannel("ws://127.0.0.1:1/ws", nil, log.NewMockLog())
	c := session.New(channel, &recordingSubscriber{}, log.NewMockLog())

	require.ErrorIs(t, c.Start(context.Background()), session.ErrTransport)
	assert.Equal(t, session.Closed, c.Phase())
}

func TestRegisterUnknownCategory(t *testing.T) {
	t.Parallel()

	channel := communicator.NewWebSocketChannel("ws://127.0.0.1:1/ws", nil, log.NewMockLog())
	c := session.New(channel, &recordingSubscriber{}, log.NewMockLog())

	require.ErrorIs(t, c.Register(router.CategoryUnknown, router.HandlerFunc(func(context.Context, message.Event, time.Time) {})),
		router.ErrUnknownCategory)
}

func TestReconnectBeforeWelcomeSubscribesOnce(t *testing.T) {
	t.Parallel()

	next := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.Welcome("S2"),
			eventsubtest.ChatNotification("bob", "hi"),
		)
		_ = conn.CloseNormal()
	})
	defer next.Close()

	first := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.Reconnect("S0", next.URL()))
	})
	defer first.Close()

	sub := &recordingSubscriber{}
	chat := &chatRecorder{}

	c := newController(first, sub, log.NewMockLog())
	require.NoError(t, c.Register(router.ChatMessage, chat.handler()))

	require.NoError(t, start(t, c))

	assert.Equal(t, []string{"S2"}, sub.calls())
	assert.Equal(t, []chatLine{{chatter: "bob", text: "hi"}}, chat.recorded())
}

func TestCancelAfterSlowReconnectClosesSession(t *testing.T) {
	t.Parallel()

	next := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(eventsubtest.WelcomeWithKeepalive("S2", 10))
	})
	defer next.Close()

	first := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.Send(
			eventsubtest.WelcomeWithKeepalive("S1", 10),
			eventsubtest.Reconnect("S1", next.URL()),
		)
	})
	defer first.Close()

	clock := clockwork.NewFakeClock()
	logger := log.NewMockLog()
	wsDialer := communicator.NewDialer(nil, logger)

	var once sync.Once

	dialing := make(chan struct{})

	// The dial outlasts the keepalive window plus grace.
	dialer := communicator.DialerFunc(func(ctx context.Context, url string) (communicator.IWebSocketChannel, error) {
		once.Do(func() { close(dialing) })

		select {
		case <-clock.After(16 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return wsDialer.Dial(ctx, url)
	})

	sub := &recordingSubscriber{}
	c := newController(first, sub, logger, session.WithClock(clock), session.WithDialer(dialer))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)

	go func() { errc <- c.Start(ctx) }()

	<-dialing
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(16 * time.Second)

	require.Eventually(t, func() bool {
		id, _ := c.SessionID()

		return id == "S2" && c.Phase() == session.Active
	}, testTimeout, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, session.ErrKeepaliveTimeout)
	case <-time.After(testTimeout):
		t.Fatal("Start did not return after cancel")
	}

	assert.Equal(t, []string{"S1"}, sub.calls())
	assert.Equal(t, session.Closed, c.Phase())
}
