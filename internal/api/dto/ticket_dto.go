package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	Title          string `json:"title"`
	Description    string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                 `json:"id"`
	Number       string                 `json:"number"`
	DepartmentID *string                `json:"department_id"`
	AssigneeID   *string                `json:"assignee_id"`
	Title        string                 `json:"title"`
	Status       domain.TicketStatus    `json:"status"`
	Priority     domain.TicketPriority  `json:"priority"`
	Sentiment    domain.TicketSentiment `json:"sentiment"`
	Category     domain.TicketCategory  `json:"category"`
	Language     string                 `json:"language"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	RequesterName  string                  `json:"requester_name"`
	RequesterEmail string                  `json:"requester_email"`
	Description    string                  `json:"description"`
	ClosedAt       *time.Time              `json:"closed_at"`
	Messages       []TicketMessageResponse `json:"messages"`
	History        []TicketHistoryResponse `json:"history"`
}

// TicketMessageResponse represents thread message.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	Body        string                   `json:"body"`
	CreatedAt   time.Time                `json:"created_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string                   `json:"id"`
	ChangeType    domain.TicketChangeType  `json:"change_type"`
	ChangedByType domain.MessageAuthorType `json:"changed_by_type"`
	ChangedByID   *string                  `json:"changed_by_id"`
	OldValue      map[string]any           `json:"old_value"`
	NewValue      map[string]any           `json:"new_value"`
	CreatedAt     time.Time                `json:"created_at"`
}
