package eventsubtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// HelixRequest is a create subscription request as received by Helix.
type HelixRequest struct {
	Path      string
	Header    http.Header
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	Transport struct {
		Method    string `json:"method"`
		SessionID string `json:"session_id"`
	} `json:"transport"`
}

// SubscriptionCreated renders the 202 body Helix returns for a created subscription.
func SubscriptionCreated(subscriptionType string) []byte {
	return mustMarshal(map[string]any{
		"data":           []any{Subscription(subscriptionType, "enabled")},
		"total":          1,
		"total_cost":     0,
		"max_total_cost": 10,
	})
}

// Helix is a fake Helix API that records create subscription requests.
type Helix struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []HelixRequest
	status   int
	body     []byte
}

// NewHelix starts a fake Helix API. A nil body answers every request with
// SubscriptionCreated for the requested type.
func NewHelix(status int, body []byte) *Helix {
	h := &Helix{status: status, body: body}
	h.srv = httptest.NewServer(http.HandlerFunc(h.serve))

	return h
}

func (h *Helix) serve(w http.ResponseWriter, req *http.Request) {
	raw, _ := io.ReadAll(req.Body)

	var decoded HelixRequest
	_ = json.Unmarshal(raw, &decoded)
	decoded.Path = req.URL.Path
	decoded.Header = req.Header.Clone()

	h.mu.Lock()
	h.requests = append(h.requests, decoded)
	h.mu.Unlock()

	body := h.body
	if body == nil {
		body = SubscriptionCreated(decoded.Type)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.status)
	_, _ = w.Write(body)
}

// URL is the base URL to pass as the Helix URL.
func (h *Helix) URL() string { return h.srv.URL }

// Requests returns the requests received so far.
func (h *Helix) Requests() []HelixRequest {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]HelixRequest(nil), h.requests...)
}

// Close stops the server.
func (h *Helix) Close() { h.srv.Close() }
