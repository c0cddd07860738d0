// Package router routes notification events to the handler registered for their category.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pmrch/twitch-eventsub/config"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/message"
	"github.com/pmrch/twitch-eventsub/metrics"
	"golang.org/x/sync/errgroup"
)

// Router holds at most one handler per category. Registering a category again
// replaces the earlier handler.
//
// Handlers run on their own goroutines, at most concurrency at a time. When that
// many are in flight, Dispatch blocks until one finishes.
type Router struct {
	log     log.T
	metrics *metrics.Metrics

	mu       sync.RWMutex
	handlers map[Category]Handler

	group errgroup.Group
}

// Option configures a Router.
type Option func(*Router)

// WithConcurrency bounds the number of handlers running at once. n < 1 means unbounded.
func WithConcurrency(n int) Option {
	return func(r *Router) {
		if n < 1 {
			n = -1
		}

		r.group.SetLimit(n)
	}
}

// WithMetrics records handler invocations and routing misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// New creates an empty Router.
func New(logger log.T, opts ...Option) *Router {
	r := &Router{
		log:      logger,
		handlers: make(map[Category]Handler),
	}

	r.group.SetLimit(config.HandlerConcurrency)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register sets the handler for category, replacing any earlier one. A nil handler
// removes the registration. It reports whether a handler was replaced.
func (r *Router) Register(category Category, handler Handler) (bool, error) {
	if category == CategoryUnknown {
		return false, fmt.Errorf("registering handler: %w", ErrUnknownCategory)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.handlers[category]

	if handler == nil {
		delete(r.handlers, category)

		return replaced, nil
	}

	r.handlers[category] = handler

	if replaced {
		r.log.Debug("Replaced notification handler", "category", category.String())
	}

	return replaced, nil
}

// Registered returns the categories that currently have a handler.
func (r *Router) Registered() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Category, 0, len(r.handlers))
	for c := range r.handlers {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

func (r *Router) lookup(category Category) (Handler, bool) { //nolint:ireturn
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[category]

	return h, ok
}

// Dispatch schedules the handler for category. A category without a handler is
// logged and skipped. It reports whether a handler was scheduled.
func (r *Router) Dispatch(ctx context.Context, category Category, event message.Event, timestamp time.Time) bool {
	handler, ok := r.lookup(category)
	if !ok {
		r.log.Debug("No handler registered for notification",
			"category", category.String(),
			"subscriptionType", event.SubscriptionType())
		r.metrics.ObserveRoutingMiss(category.String())

		return false
	}

	r.metrics.ObserveHandler(category.String())

	r.group.Go(func() error {
		defer func() {
			if msg := recover(); msg != nil {
				r.log.Error("Notification handler panic", "category", category.String(), "error", msg)
				r.metrics.ObserveHandlerPanic()
			}
		}()

		handler.HandleEvent(ctx, event, timestamp)

		return nil
	})

	return true
}

// Wait blocks until every scheduled handler has returned.
// It must not be called concurrently with Dispatch.
func (r *Router) Wait() {
	_ = r.group.Wait()
}
