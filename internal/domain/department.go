package domain

import "time"

// Department groups agents. Tickets reach a department through the static category lookup,
// matched on Name.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}
