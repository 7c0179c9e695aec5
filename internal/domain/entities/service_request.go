package entities

import "time"

// ServiceRequest is a customer's submission asking for work under a given Service.
type ServiceRequest struct {
	ID            int64     `json:"id" db:"id"`
	ServiceID     int64     `json:"service_id" db:"service_id"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	CustomerEmail string    `json:"customer_email" db:"customer_email"`
	CustomerPhone string    `json:"customer_phone" db:"customer_phone"`
	Address       string    `json:"address" db:"address"`
	Description   string    `json:"description,omitempty" db:"description"`
	Urgency       string    `json:"urgency,omitempty" db:"urgency"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
