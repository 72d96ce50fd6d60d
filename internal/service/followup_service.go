package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
)

const methodAutoClose = "auto-close"

// FollowupResult summarizes one sweep.
type FollowupResult struct {
	Disabled  bool `json:"disabled"`
	Reminders int  `json:"reminders"`
	Warnings  int  `json:"warnings"`
	Closed    int  `json:"closed"`
	Errors    int  `json:"errors"`
}

// FollowupService nudges customers on tickets waiting for them and closes abandoned ones.
type FollowupService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	history    repository.TicketHistoryRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	composer   *composer.Composer
	logger     *zap.Logger
	now        Clock
}

// FollowupDependencies bundles repositories for the follow-up sweep.
type FollowupDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	HistoryRepo repository.TicketHistoryRepository
	AgentRepo   repository.AgentRepository
	Dispatcher  events.Dispatcher
	Composer    *composer.Composer
	Logger      *zap.Logger
	Clock       Clock
}

// NewFollowupService builds the service.
func NewFollowupService(deps FollowupDependencies) *FollowupService {
	s := &FollowupService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		history:    deps.HistoryRepo,
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
		composer:   deps.Composer,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ProcessAutoFollowup runs one sweep over WAITING_CUSTOMER tickets. Eligibility is derived from
// ticket idle time and the assistant's recent messages, so repeated sweeps do not repeat work.
func (s *FollowupService) ProcessAutoFollowup(ctx context.Context, cfg config.AssistantConfig) FollowupResult {
	var result FollowupResult
	if !cfg.Enabled {
		result.Disabled = true
		return result
	}

	assistant, err := s.agents.GetAssistant(ctx)
	if err != nil {
		s.logger.Error("assistant account unavailable; follow-up sweep aborted", zap.Error(err))
		result.Errors++
		return result
	}

	waiting, err := s.tickets.ListByStatus(ctx, domain.TicketStatusWaitingCustomer)
	if err != nil {
		s.logger.Error("list waiting tickets", zap.Error(err))
		result.Errors++
		return result
	}

	now := s.now()
	for i := range waiting {
		ticket := &waiting[i]
		if err := ctx.Err(); err != nil {
			s.logger.Warn("follow-up sweep interrupted", zap.Error(err))
			break
		}
		if err := s.followUp(ctx, cfg, assistant, ticket, now, &result); err != nil {
			result.Errors++
			s.logger.Error("follow-up failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.logger.Info("follow-up sweep finished",
		zap.Int("tickets", len(waiting)),
		zap.Int("reminders", result.Reminders),
		zap.Int("warnings", result.Warnings),
		zap.Int("closed", result.Closed),
		zap.Int("errors", result.Errors),
	)
	return result
}

func (s *FollowupService) followUp(ctx context.Context, cfg config.AssistantConfig, assistant *domain.Agent, ticket *domain.Ticket, now time.Time, result *FollowupResult) error {
	idle := now.Sub(ticket.UpdatedAt)
	letter := composer.Followup{
		Language:     ticket.Language,
		CustomerName: ticket.RequesterName,
		TicketNumber: ticket.Number,
		Signature:    cfg.Name,
	}

	switch {
	case idle >= cfg.AutoCloseAfter():
		closed, err := s.autoClose(ctx, cfg, assistant, ticket, letter, now)
		if err != nil {
			return err
		}
		if closed {
			result.Closed++
		}

	case idle >= cfg.WarningAfter():
		// Messages leave updated_at alone, so an assistant message posted after the warning
		// threshold can only be an earlier warning.
		warned, err := s.messages.HasAuthorMessageSince(ctx, ticket.ID, domain.AuthorTypeSystem, assistant.ID, ticket.UpdatedAt.Add(cfg.WarningAfter()).Add(-time.Nanosecond))
		if err != nil || warned {
			return err
		}
		hoursLeft := int(math.Ceil((cfg.AutoCloseAfter() - idle).Hours()))
		body := s.composer.Warning(letter, hoursLeft)
		if err := s.postMessage(ctx, assistant, ticket, body, events.MessageKindWarning); err != nil {
			return err
		}
		result.Warnings++

	case idle >= cfg.ReminderDelay():
		recent, err := s.messages.HasAuthorMessageSince(ctx, ticket.ID, domain.AuthorTypeSystem, assistant.ID, now.Add(-cfg.ReminderDelay()))
		if err != nil || recent {
			return err
		}
		body := s.composer.Reminder(letter)
		if err := s.postMessage(ctx, assistant, ticket, body, events.MessageKindReminder); err != nil {
			return err
		}
		result.Reminders++
	}
	return nil
}

// autoClose closes the ticket unless it changed since the sweep listed it. It reports whether
// the ticket was closed.
func (s *FollowupService) autoClose(ctx context.Context, cfg config.AssistantConfig, assistant *domain.Agent, ticket *domain.Ticket, letter composer.Followup, now time.Time) (bool, error) {
	oldStatus := ticket.Status
	closed, err := s.tickets.CloseIfIdle(ctx, ticket.ID, oldStatus, now.Add(-cfg.AutoCloseAfter()), now)
	if err != nil {
		return false, err
	}
	if !closed {
		s.logger.Info("ticket changed during sweep; not closed", zap.String("ticket_id", ticket.ID))
		return false, nil
	}
	closedAt := now
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &closedAt

	if err := s.history.Create(ctx, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: domain.AuthorTypeSystem,
		ChangedByID:   &assistant.ID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue: map[string]any{
			"status": domain.TicketStatusClosed,
			"method": methodAutoClose,
			"reason": "inactivity",
		},
	}); err != nil {
		return true, err
	}

	body := s.composer.Closure(letter, cfg.AutoCloseDays)
	if err := s.postMessage(ctx, assistant, ticket, body, events.MessageKindClosure); err != nil {
		return true, err
	}

	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    systemActor(assistant.ID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.TicketStatusClosed,
			Method:    methodAutoClose,
			Comment:   "inactivity",
		},
	})
	s.logger.Info("ticket auto-closed", zap.String("ticket_id", ticket.ID))
	return true, nil
}

func (s *FollowupService) postMessage(ctx context.Context, assistant *domain.Agent, ticket *domain.Ticket, body string, kind events.MessageKind) error {
	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		AuthorType:  domain.AuthorTypeSystem,
		AuthorID:    &assistant.ID,
		MessageType: domain.MessageTypePublicReply,
		Body:        body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return err
	}
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    systemActor(assistant.ID),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			MessageType: msg.MessageType,
			AuthorType:  msg.AuthorType,
			AuthorID:    msg.AuthorID,
			Kind:        kind,
			Body:        body,
		},
	})
	return nil
}
