package session

import (
	"github.com/jonboulle/clockwork"
	"github.com/pmrch/twitch-eventsub/communicator"
	"github.com/pmrch/twitch-eventsub/metrics"
	"github.com/pmrch/twitch-eventsub/router"
)

// Option configures a Controller.
type Option func(*Controller)

// WithDialer sets the dialer used to follow reconnect instructions.
func WithDialer(d communicator.Dialer) Option {
	return func(c *Controller) {
		c.dialer = d
	}
}

// WithClock sets the clock driving the keepalive watchdog.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithMetrics records frame, reconnect and routing metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithRouter replaces the router created by New.
func WithRouter(r *router.Router) Option {
	return func(c *Controller) {
		c.router = r
	}
}

// WithKeepaliveWatchdog turns the keepalive watchdog on or off. It is on by default.
func WithKeepaliveWatchdog(enabled bool) Option {
	return func(c *Controller) {
		c.watchdogEnabled = enabled
	}
}
