package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingCustomer TicketStatus = "WAITING_CUSTOMER"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// TicketSentiment is the detected tone of the request.
type TicketSentiment string

const (
	SentimentPositive TicketSentiment = "POSITIVE"
	SentimentNeutral  TicketSentiment = "NEUTRAL"
	SentimentNegative TicketSentiment = "NEGATIVE"
)

// TicketCategory is the routing bucket assigned by classification.
type TicketCategory string

const (
	CategoryServiceComplaint TicketCategory = "SERVICE_COMPLAINT"
	CategoryInfrastructure   TicketCategory = "INFRASTRUCTURE"
	CategoryNetwork          TicketCategory = "NETWORK"
	CategoryAccounting       TicketCategory = "ACCOUNTING"
	CategoryConsulting       TicketCategory = "CONSULTING"
	CategoryDevelopment      TicketCategory = "DEVELOPMENT"
	CategorySupport          TicketCategory = "SUPPORT"
	CategoryOther            TicketCategory = "OTHER"
)

var knownCategories = map[TicketCategory]struct{}{
	CategoryServiceComplaint: {},
	CategoryInfrastructure:   {},
	CategoryNetwork:          {},
	CategoryAccounting:       {},
	CategoryConsulting:       {},
	CategoryDevelopment:      {},
	CategorySupport:          {},
	CategoryOther:            {},
}

// ParseCategory maps free text onto the closed category set. Unknown values become OTHER.
func ParseCategory(value string) TicketCategory {
	normalized := TicketCategory(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := knownCategories[normalized]; ok {
		return normalized
	}
	return CategoryOther
}

// ParsePriority maps free text onto a priority; ok is false for unknown values.
func ParsePriority(value string) (TicketPriority, bool) {
	switch TicketPriority(strings.ToUpper(strings.TrimSpace(value))) {
	case TicketPriorityLow:
		return TicketPriorityLow, true
	case TicketPriorityMedium:
		return TicketPriorityMedium, true
	case TicketPriorityHigh:
		return TicketPriorityHigh, true
	case TicketPriorityCritical:
		return TicketPriorityCritical, true
	default:
		return "", false
	}
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             string
	Number         string
	RequesterName  string
	RequesterEmail string
	DepartmentID   *string
	AssigneeID     *string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	Sentiment      TicketSentiment
	Category       TicketCategory
	Language       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
}

// IsActive reports whether the ticket counts toward an agent's workload.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}
