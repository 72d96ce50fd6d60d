package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// AgentRepository handles persistence for agents, including the reserved assistant account.
type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	// GetAssistant returns the active assistant account or pgx.ErrNoRows.
	GetAssistant(ctx context.Context) (*domain.Agent, error)
	// ListWithWorkload returns matching agents with their count of OPEN and IN_PROGRESS tickets,
	// leaving out filter.ExcludeTicketID.
	ListWithWorkload(ctx context.Context, filter AgentFilter) ([]AgentWorkload, error)
}

// AgentFilter defines query params for agent listing. The assistant account is never listed.
type AgentFilter struct {
	Roles        []domain.AgentRole
	DepartmentID *string
	Active       *bool

	// ExcludeTicketID keeps the ticket being routed out of the workload count.
	ExcludeTicketID *string
}

// AgentWorkload pairs an agent with its active ticket count.
type AgentWorkload struct {
	Agent         domain.Agent
	ActiveTickets int
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `a.id, a.name, a.email, a.password_hash, a.role, a.department_id, a.skills,
               a.is_assistant, a.active_flag, a.created_at, a.updated_at`

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents a WHERE a.id=$1`, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	return r.fetchSingle(ctx, `SELECT `+agentColumns+` FROM agents a WHERE LOWER(a.email)=LOWER($1)`, email)
}

func (r *agentRepository) GetAssistant(ctx context.Context) (*domain.Agent, error) {
	const query = `SELECT ` + agentColumns + ` FROM agents a
        WHERE a.is_assistant = TRUE AND a.active_flag = TRUE
        ORDER BY a.created_at ASC LIMIT 1`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	agent, err := scanAgent(rows)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, query, arg))
}

func (r *agentRepository) ListWithWorkload(ctx context.Context, filter AgentFilter) ([]AgentWorkload, error) {
	args := []any{}
	workload := "t.assignee_id = a.id AND t.status IN ('OPEN','IN_PROGRESS')"
	if filter.ExcludeTicketID != nil {
		args = append(args, *filter.ExcludeTicketID)
		workload += fmt.Sprintf(" AND t.id <> $%d", len(args))
	}
	query := `
        SELECT ` + agentColumns + `,
               (SELECT COUNT(*) FROM tickets t WHERE ` + workload + `) AS active_tickets
        FROM agents a`
	clauses := []string{"a.is_assistant = FALSE"}

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("a.role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("a.department_id=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("a.active_flag=$%d", len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY a.created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgentWorkload
	for rows.Next() {
		var w AgentWorkload
		if err := rows.Scan(
			&w.Agent.ID,
			&w.Agent.Name,
			&w.Agent.Email,
			&w.Agent.PasswordHash,
			&w.Agent.Role,
			&w.Agent.DepartmentID,
			&w.Agent.Skills,
			&w.Agent.IsAssistant,
			&w.Agent.Active,
			&w.Agent.CreatedAt,
			&w.Agent.UpdatedAt,
			&w.ActiveTickets,
		); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&agent.DepartmentID,
		&agent.Skills,
		&agent.IsAssistant,
		&agent.Active,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
