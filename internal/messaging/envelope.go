package messaging

import "time"

// Meta describes a published message.
type Meta struct {
	CorrelationID *string   `json:"correlation_id,omitempty"`
	ID            string    `json:"id"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	// Type is the message name and version, e.g. notifications.email.v1.
	Type string `json:"type"`
}

// Envelope wraps every payload published to the broker.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Email is the payload consumed by the external mailer.
type Email struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Kind     string            `json:"kind"`
	TicketID string            `json:"ticket_id,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}
