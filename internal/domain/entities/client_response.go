package entities

import "time"

// Message stored on a response row created by the accept flow
const AcceptedMessage = "Accepted"

// ClientResponse is a client's acceptance or message reply to a ServiceRequest.
type ClientResponse struct {
	ID          int64     `json:"id" db:"id"`
	RequestID   int64     `json:"request_id" db:"request_id"`
	ClientID    int64     `json:"client_id" db:"client_id"`
	Message     string    `json:"message,omitempty" db:"message"`
	Accepted    bool      `json:"accepted" db:"accepted"`
	RespondedAt time.Time `json:"responded_at" db:"responded_at"`
}
