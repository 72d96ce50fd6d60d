package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// HistoryFilter narrows a ticket's audit trail. Zero values match every entry.
type HistoryFilter struct {
	ChangeTypes []domain.TicketChangeType
	// Method matches the "method" recorded in new_value, such as auto-assignment.
	Method string
	// SystemOnly keeps entries written by the assistant.
	SystemOnly bool
}

// Matches applies the filter to a single entry.
func (f HistoryFilter) Matches(entry domain.TicketHistory) bool {
	if len(f.ChangeTypes) > 0 {
		found := false
		for _, ct := range f.ChangeTypes {
			if ct == entry.ChangeType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SystemOnly && entry.ChangedByType != domain.AuthorTypeSystem {
		return false
	}
	if f.Method != "" {
		method, _ := entry.NewValue["method"].(string)
		return method == f.Method
	}
	return true
}

// TicketHistoryRepository stores the audit trail. Entries are append-only.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	// ListByTicket returns the ticket's matching entries, oldest first.
	ListByTicket(ctx context.Context, ticketID string, filter HistoryFilter) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, changed_by_type, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangedByType,
		entry.ChangedByID,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, filter HistoryFilter) ([]domain.TicketHistory, error) {
	args := []any{ticketID}
	clauses := []string{"ticket_id=$1"}
	if len(filter.ChangeTypes) > 0 {
		placeholders := make([]string, len(filter.ChangeTypes))
		for i, ct := range filter.ChangeTypes {
			args = append(args, ct)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("change_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		clauses = append(clauses, fmt.Sprintf("new_value->>'method' = $%d", len(args)))
	}
	if filter.SystemOnly {
		args = append(args, domain.AuthorTypeSystem)
		clauses = append(clauses, fmt.Sprintf("changed_by_type = $%d", len(args)))
	}
	query := `
        SELECT id, ticket_id, changed_by_type, changed_by_id, change_type, old_value, new_value, created_at
        FROM ticket_history WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trail []domain.TicketHistory
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedByType,
			&entry.ChangedByID,
			&entry.ChangeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		trail = append(trail, entry)
	}
	return trail, rows.Err()
}
