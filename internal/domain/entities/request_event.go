package entities

import "time"

// RequestEventType represents the type of request event
type RequestEventType string

const (
	// RequestEventCreated is published when a customer submits a request
	RequestEventCreated RequestEventType = "request.created"

	// RequestEventAccepted is published when a client accepts a request
	RequestEventAccepted RequestEventType = "request.accepted"

	// RequestEventResponded is published when a client replies with a message
	RequestEventResponded RequestEventType = "request.responded"
)

// RequestEvent is broadcast to clients watching a service's request queue
type RequestEvent struct {
	ID          string           `json:"id"`
	Type        RequestEventType `json:"type"`
	RequestID   int64            `json:"request_id"`
	ServiceID   int64            `json:"service_id"`
	ServiceName string           `json:"service_name"`
	ClientID    int64            `json:"client_id,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}
