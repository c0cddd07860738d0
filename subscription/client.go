// Package subscription registers EventSub subscriptions for a WebSocket session through the Helix API.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/pmrch/twitch-eventsub/config"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/metrics"
)

// ErrMissingSessionID is returned when Subscribe is called without a session id.
var ErrMissingSessionID = errors.New("session id is required")

// StatusError is returned when Helix rejects a subscription. Message holds the
// error message reported by Helix.
type StatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("subscription request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Client creates subscriptions for a set of subscription types.
type Client struct {
	api        *helix.Client
	httpClient *http.Client
	baseURL    string
	cfg        config.UserConfig
	types      []string
	log        log.T
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client returned by NewHTTPClient.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL replaces config.HelixURL.
func WithBaseURL(url string) Option {
	return func(cl *Client) {
		cl.baseURL = url
	}
}

// WithTypes sets the subscription types created on every Subscribe call.
func WithTypes(types ...string) Option {
	return func(cl *Client) {
		cl.types = types
	}
}

// WithMetrics counts subscription results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// NewHTTPClient returns an HTTP client that does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: config.SubscribeTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewClient creates a Client. By default it subscribes to channel.chat.message only.
func NewClient(cfg config.UserConfig, logger log.T, opts ...Option) *Client {
	c := &Client{
		httpClient: NewHTTPClient(),
		baseURL:    config.HelixURL,
		cfg:        cfg,
		types:      []string{helix.EventSubTypeChannelChatMessage},
		log:        logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	// WebSocket subscriptions must be created with the user token of the
	// connected user, so the auth client is seeded instead of fetching an app token.
	auth := helix.NewAuthClient(helix.AuthConfig{ClientID: cfg.ClientID})
	auth.SetToken(&helix.Token{AccessToken: cfg.UserToken, TokenType: "bearer"})

	c.api = helix.NewClient(cfg.ClientID, auth,
		helix.WithHTTPClient(c.httpClient),
		helix.WithBaseURL(c.baseURL))

	return c
}

// Subscribe creates one subscription per configured type, bound to sessionID.
// It stops at the first failure.
func (c *Client) Subscribe(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}

	for _, t := range c.types {
		err := c.create(ctx, c.NewParams(t, sessionID))
		c.metrics.ObserveSubscription(err)

		if err != nil {
			c.log.Error("Subscription failed", "subscriptionType", t, "error", err)

			return fmt.Errorf("subscribing to %s: %w", t, err)
		}
	}

	return nil
}

// NewParams builds the create subscription parameters for subscriptionType.
func (c *Client) NewParams(subscriptionType, sessionID string) *helix.CreateEventSubSubscriptionParams {
	condition := map[string]string{
		"broadcaster_user_id": c.cfg.BroadcasterID,
	}

	// Chat subscriptions read as a specific user.
	if subscriptionType == helix.EventSubTypeChannelChatMessage {
		condition["user_id"] = c.cfg.UserID
	}

	return &helix.CreateEventSubSubscriptionParams{
		Type:      subscriptionType,
		Version:   config.DefaultSubscriptionVersion,
		Condition: condition,
		Transport: helix.CreateEventSubTransport{
			Method:    config.TransportMethodWebSocket,
			SessionID: sessionID,
		},
	}
}

func (c *Client) create(ctx context.Context, params *helix.CreateEventSubSubscriptionParams) error {
	sub, err := c.api.CreateEventSubSubscription(ctx, params)
	if err != nil {
		var apiErr *helix.APIError
		if errors.As(err, &apiErr) {
			return &StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
		}

		return fmt.Errorf("creating subscription: %w", err)
	}

	if sub == nil {
		c.log.Info("Subscribed", "subscriptionType", params.Type)

		return nil
	}

	c.log.Info("Subscribed",
		"subscriptionType", params.Type,
		"subscriptionID", sub.ID,
		"status", sub.Status)

	return nil
}
