package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventsub "github.com/pmrch/twitch-eventsub"
	"github.com/pmrch/twitch-eventsub/config"
	"github.com/pmrch/twitch-eventsub/log"
	"github.com/pmrch/twitch-eventsub/metrics"
)

func serveMetrics(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	return srv
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet.
		stdlog.Printf("Failed to load config: %v", err)

		return 1
	}

	logger := log.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics

	if cfg.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		m = metrics.New(reg)

		srv := serveMetrics(cfg.MetricsAddr, metrics.Handler(reg))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = srv.Shutdown(shutdownCtx)
		}()

		slog.Info("Serving metrics", "addr", cfg.MetricsAddr)
	}

	slog.Info("Starting chat reader", "broadcasterID", cfg.BroadcasterID, "url", cfg.EventSubURL)

	err = eventsub.RunChatReader(ctx, *cfg, log.NewSlogger(logger),
		func(_ context.Context, text, chatter string, _ time.Time) {
			fmt.Printf("%s: %s\n", chatter, text) //nolint:forbidigo
		}, &eventsub.ChatReaderOptions{Metrics: m})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Chat reader stopped", "error", err)

		return 1
	}

	return 0
}
