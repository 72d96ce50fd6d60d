package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

const ticketNumberPrefix = "TCK-"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	now        Clock
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Clock       Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	RequesterName  string
	RequesterEmail string
	Title          string
	Description    string
}

// TicketDetails is a ticket with its thread and audit trail.
type TicketDetails struct {
	Ticket   *domain.Ticket
	Messages []domain.TicketMessage
	History  []domain.TicketHistory
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		now:        deps.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTicket stores a new OPEN ticket with MEDIUM priority and announces it.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Agent, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	email := strings.TrimSpace(input.RequesterEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperrors.NewValidationError("invalid requester email", map[string]any{"field": "requester_email"})
		}
	}

	ticket := &domain.Ticket{
		Number:         generateTicketKey(),
		RequesterName:  strings.TrimSpace(input.RequesterName),
		RequesterEmail: email,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityMedium,
		Sentiment:      domain.SentimentNeutral,
		Category:       domain.CategoryOther,
		Language:       "es",
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	actorEvt := events.Actor{Type: domain.SubjectTypeSystem}
	if actor != nil {
		actorEvt = staffActor(actor.ID)
	}
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorEvt,
		Payload: events.TicketCreatedPayload{
			Number:        ticket.Number,
			RequesterName: ticket.RequesterName,
			Title:         ticket.Title,
			Description:   ticket.Description,
			Priority:      ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket returns the ticket, by ID or public number, with its messages and history.
func (s *TicketService) GetTicket(ctx context.Context, ticketRef string) (*TicketDetails, error) {
	ticket, err := s.lookupTicket(ctx, ticketRef)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket": ticketRef})
		}
		return nil, apperrors.ToDomainError(err)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID, repository.HistoryFilter{})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return &TicketDetails{Ticket: ticket, Messages: msgs, History: history}, nil
}

// GetHistory returns the ticket's audit trail narrowed by filter, oldest first.
func (s *TicketService) GetHistory(ctx context.Context, ticketRef string, filter repository.HistoryFilter) ([]domain.TicketHistory, error) {
	for _, ct := range filter.ChangeTypes {
		if !ct.Valid() {
			return nil, apperrors.NewValidationError("unknown change type", map[string]any{"change_type": ct})
		}
	}
	ticket, err := s.lookupTicket(ctx, ticketRef)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket": ticketRef})
		}
		return nil, apperrors.ToDomainError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID, filter)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return history, nil
}

// ListTickets returns tickets matching filter. Limit defaults to 20 and is capped at 100.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return tickets, nil
}

// UpdateStatus changes ticket status by staff following the allowed transitions.
func (s *TicketService) UpdateStatus(ctx context.Context, staff *domain.Agent, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	oldStatus := ticket.Status
	if newStatus == domain.TicketStatusClosed {
		now := s.now()
		ticket.ClosedAt = &now
	} else if ticket.ClosedAt != nil {
		ticket.ClosedAt = nil
	}
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	if err := s.recordStatusChange(ctx, staff.ID, ticket.ID, oldStatus, newStatus, comment); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    staffActor(staff.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// lookupTicket accepts the ticket ID or its public number.
func (s *TicketService) lookupTicket(ctx context.Context, ref string) (*domain.Ticket, error) {
	if number := strings.ToUpper(strings.TrimSpace(ref)); strings.HasPrefix(number, ticketNumberPrefix) {
		return s.tickets.GetByNumber(ctx, number)
	}
	return s.tickets.GetByID(ctx, ref)
}

func generateTicketKey() string {
	return ticketNumberPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            {domain.TicketStatusInProgress, domain.TicketStatusWaitingCustomer, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress:      {domain.TicketStatusWaitingCustomer, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusWaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:          {domain.TicketStatusInProgress},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID string, ticketID string, oldStatus, newStatus domain.TicketStatus, comment string) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.AuthorTypeStaff,
		ChangedByID:   &actorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue: map[string]any{
			"status": oldStatus,
		},
		NewValue: map[string]any{
			"status":  newStatus,
			"comment": comment,
		},
	}
	return s.history.Create(ctx, entry)
}
