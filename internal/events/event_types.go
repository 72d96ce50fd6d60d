package events

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventTicketEscalated       EventType = "ticket_escalated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number        string                `json:"number"`
	RequesterName string                `json:"requester_name"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Method    string              `json:"method,omitempty"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID   string                `json:"assignee_id"`
	AssigneeName string                `json:"assignee_name"`
	DepartmentID *string               `json:"department_id,omitempty"`
	Category     domain.TicketCategory `json:"category"`
	Method       string                `json:"method"`
}

// MessageKind tells notification handlers which template produced an assistant message.
type MessageKind string

const (
	MessageKindReply    MessageKind = "reply"
	MessageKindReminder MessageKind = "reminder"
	MessageKindWarning  MessageKind = "warning"
	MessageKindClosure  MessageKind = "closure"
	MessageKindStaff    MessageKind = "staff"
)

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
	Kind        MessageKind              `json:"kind"`
	Body        string                   `json:"body"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Number    string                 `json:"number"`
	Title     string                 `json:"title"`
	Language  string                 `json:"language"`
	Priority  domain.TicketPriority  `json:"priority"`
	Sentiment domain.TicketSentiment `json:"sentiment"`
}
