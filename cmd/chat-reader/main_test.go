package main

import (
	"testing"

	"github.com/pmrch/twitch-eventsub/eventsubtest"
	"github.com/stretchr/testify/assert"
)

func setEnv(t *testing.T, eventSubURL string) {
	t.Helper()

	t.Setenv("TWITCH_CLIENT_ID", "client-id")
	t.Setenv("TWITCH_TOKEN", "token")
	t.Setenv("BROADCASTER_ID", eventsubtest.BroadcasterUserID)
	t.Setenv("USER_ID", eventsubtest.ChatterUserID)
	t.Setenv("EVENTSUB_URL", eventSubURL)
	t.Setenv("METRICS_ADDR", "127.0.0.1:0")
}

func TestRunFailsWithoutConfig(t *testing.T) {
	setEnv(t, "")
	t.Setenv("TWITCH_CLIENT_ID", "")

	assert.Equal(t, 1, run())
}

func TestRunReturnsZeroWhenServerCloses(t *testing.T) {
	srv := eventsubtest.NewServer(func(conn *eventsubtest.Conn) {
		_ = conn.CloseNormal()
	})
	defer srv.Close()

	setEnv(t, srv.URL())

	assert.Equal(t, 0, run())
}

func TestRunReturnsOneWhenDialFails(t *testing.T) {
	srv := eventsubtest.NewServer(func(*eventsubtest.Conn) {})
	url := srv.URL()
	srv.Close()

	setEnv(t, url)

	assert.Equal(t, 1, run())
}
