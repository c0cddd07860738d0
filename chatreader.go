package eventsub

import (
	"context"
	"net/http"

	"github.com/pmrch/twitch-eventsub/communicator"
	"github.com/pmrch/twitch-eventsub/config"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/metrics"
	"github.com/pmrch/twitch-eventsub/router"
	"github.com/pmrch/twitch-eventsub/session"
	"github.com/pmrch/twitch-eventsub/subscription"
	"github.com/pmrch/twitch-eventsub/websocketutil"
)

// ChatReaderOptions overrides the defaults used by RunChatReader. The zero value is valid.
type ChatReaderOptions struct {
	// EventSubURL replaces cfg.EventSubURL.
	EventSubURL string
	// HelixURL replaces config.HelixURL.
	HelixURL string
	// HTTPClient replaces subscription.NewHTTPClient.
	HTTPClient *http.Client
	Dialer     websocketutil.Dialer
	Metrics    *metrics.Metrics
}

// RunChatReader connects to EventSub, subscribes to channel.chat.message for the
// broadcaster in cfg and calls handler for every chat message. It returns when the
// server closes the session, a fatal error occurs or ctx is done.
func RunChatReader(ctx context.Context, cfg config.UserConfig, logger log.T, handler router.ChatMessageFunc, opts *ChatReaderOptions) error {
	if opts == nil {
		opts = &ChatReaderOptions{}
	}

	url := opts.EventSubURL
	if url == "" {
		url = cfg.EventSubURL
	}

	if url == "" {
		url = config.EventSubURL
	}

	subOpts := []subscription.Option{subscription.WithMetrics(opts.Metrics)}
	if opts.HelixURL != "" {
		subOpts = append(subOpts, subscription.WithBaseURL(opts.HelixURL))
	}

	if opts.HTTPClient != nil {
		subOpts = append(subOpts, subscription.WithHTTPClient(opts.HTTPClient))
	}

	client := subscription.NewClient(cfg, logger, subOpts...)
	channel := communicator.NewWebSocketChannel(url, opts.Dialer, logger)

	controller := session.New(channel, client, logger,
		session.WithDialer(communicator.NewDialer(opts.Dialer, logger)),
		session.WithMetrics(opts.Metrics))

	if err := controller.Register(router.ChatMessage, handler); err != nil {
		return err //nolint:wrapcheck
	}

	return controller.Start(ctx) //nolint:wrapcheck
}
