package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypePIIDetection is sent for every record in which PII was masked
	EventTypePIIDetection EventType = "pii_detection"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// PIIDetectionEvent describes where PII was found. It names fields and
// categories only and never carries the values themselves.
type PIIDetectionEvent struct {
	RequestID  string   `json:"request_id,omitempty"`
	RecordID   string   `json:"record_id"`
	Fields     []string `json:"fields"`
	Categories []string `json:"categories"`
	Rules      []string `json:"rules"`
	Source     string   `json:"source"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status               string `json:"status"`
	Uptime               string `json:"uptime"`
	TotalRequests        int64  `json:"total_requests"`
	TotalDetections      int64  `json:"total_detections"`
	CombinationThreshold int    `json:"combination_threshold"`
	ConnectedClients     int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	Message  string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string               `json:"type"`
	Data *SubscriptionRequest `json:"data,omitempty"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows detection events down to some categories
type EventFilter struct {
	Categories []string `json:"categories,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	mu           sync.RWMutex
	subscription *SubscriptionRequest
}

func (c *Client) setSubscription(sub *SubscriptionRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscription = sub
}

func (c *Client) getSubscription() *SubscriptionRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscription
}
