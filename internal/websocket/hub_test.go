package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/privacy"
)

func testConfig() config.WebSocketConfig {
	cfg := config.GetDefaults().WebSocket
	cfg.Events.BroadcastConnections = false
	return cfg
}

func TestShouldBroadcastEvent(t *testing.T) {
	cfg := testConfig()
	cfg.Events.BroadcastSystem = false
	h := NewHub(cfg, zap.NewNop())

	assert.True(t, h.shouldBroadcastEvent(EventTypePIIDetection))
	assert.False(t, h.shouldBroadcastEvent(EventTypeSystemStatus))
	assert.False(t, h.shouldBroadcastEvent(EventTypeConnection))
	assert.False(t, h.shouldBroadcastEvent(EventType("unknown")))
}

func TestShouldSendToClient(t *testing.T) {
	detection := Event{Type: EventTypePIIDetection, Data: PIIDetectionEvent{Categories: []string{"phone"}}}
	status := Event{Type: EventTypeSystemStatus, Data: SystemStatusEvent{}}

	t.Run("no subscription receives everything", func(t *testing.T) {
		c := &Client{}
		assert.True(t, shouldSendToClient(c, detection))
		assert.True(t, shouldSendToClient(c, status))
	})

	t.Run("event types", func(t *testing.T) {
		c := &Client{}
		c.setSubscription(&SubscriptionRequest{Events: []EventType{EventTypeSystemStatus}})
		assert.False(t, shouldSendToClient(c, detection))
		assert.True(t, shouldSendToClient(c, status))
	})

	t.Run("category filter", func(t *testing.T) {
		c := &Client{}
		c.setSubscription(&SubscriptionRequest{
			Events: []EventType{EventTypePIIDetection},
			Filter: &EventFilter{Categories: []string{"email"}},
		})
		assert.False(t, shouldSendToClient(c, detection))

		c.setSubscription(&SubscriptionRequest{
			Events: []EventType{EventTypePIIDetection},
			Filter: &EventFilter{Categories: []string{"phone"}},
		})
		assert.True(t, shouldSendToClient(c, detection))
	})
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://dash.example.com"}
	h := NewHub(cfg, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, h.checkOrigin(r), "no origin header")

	r.Header.Set("Origin", "https://dash.example.com")
	assert.True(t, h.checkOrigin(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.checkOrigin(r))
}

func TestHandleWebSocketRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Username = "ops"
	cfg.Password = "secret"
	h := NewHub(cfg, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.SetBasicAuth("ops", "wrong")
	rec = httptest.NewRecorder()
	h.HandleWebSocket(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.SetBasicAuth("ops", "secret")
	assert.True(t, h.authorized(r))
}

func TestPublishDetectionCarriesNoValues(t *testing.T) {
	h := NewHub(testConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.GetStats().ActiveConnections == 1 }, time.Second, 10*time.Millisecond)

	detector, err := privacy.NewWithPolicy(privacy.DefaultPolicy(), nil)
	require.NoError(t, err)
	result := detector.Process(privacy.NewRecord(privacy.F("phone", "9876543210")))
	h.PublishDetection("req-1", "rec-1", "api", result)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	body := string(msg)
	assert.Contains(t, body, `"type":"pii_detection"`)
	assert.Contains(t, body, `"record_id":"rec-1"`)
	assert.Contains(t, body, `"fields":["phone"]`)
	assert.NotContains(t, body, "9876543210")
	assert.NotContains(t, body, "98XXXXXX10")
}

func TestPublishDetectionIgnoresCleanRecords(t *testing.T) {
	h := NewHub(testConfig(), zap.NewNop())
	h.PublishDetection("req", "rec", "api", privacy.ProcessResult{})
	assert.Empty(t, h.broadcast)
}

