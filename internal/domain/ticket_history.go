package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus         TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee       TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority       TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeClassification TicketChangeType = "CLASSIFICATION_CHANGE"
)

// Valid reports whether the change type is known.
func (c TicketChangeType) Valid() bool {
	switch c {
	case ChangeTypeStatus, ChangeTypeAssignee, ChangeTypePriority, ChangeTypeClassification:
		return true
	}
	return false
}

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType MessageAuthorType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
