package domain

import "time"

// KBArticle is a knowledge-base entry. The triage engine only reads them.
type KBArticle struct {
	ID        string
	Title     string
	Slug      string
	Content   string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
