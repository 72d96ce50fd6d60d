package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/composer"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/messaging"
	"github.com/spec-kit/triage-service/internal/repository"
)

// NotificationService turns domain events into outbound email.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     messaging.Mailer
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	composer   *composer.Composer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles collaborators of the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Mailer     messaging.Mailer
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	Composer   *composer.Composer
	Logger     *zap.Logger
	Config     config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		composer:   deps.Composer,
		logger:     deps.Logger,
		cfg:        deps.Config,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID))
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return nil
	}
	if strings.TrimSpace(n.cfg.EscalationEmail) == "" {
		n.logger.Warn("escalation email not configured", zap.String("ticket_id", event.TicketID))
		return nil
	}
	subject, body := n.composer.Escalation(payload.Language, payload.Number, payload.Title, payload.Priority, payload.Sentiment)
	n.send(ctx, messaging.Email{
		To:       n.cfg.EscalationEmail,
		Subject:  subject,
		Body:     body,
		Kind:     "escalation",
		TicketID: event.TicketID,
	})
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	// assistant-driven changes already reach the customer through the assistant's own message
	if payload.Method == methodAutoClose || payload.Method == methodKBAutoAnswer {
		return nil
	}
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if ticket.RequesterEmail == "" {
		return nil
	}
	body := fmt.Sprintf("%s -> %s", payload.OldStatus, payload.NewStatus)
	if payload.Comment != "" {
		body += "\n\n" + payload.Comment
	}
	n.send(ctx, messaging.Email{
		To:       ticket.RequesterEmail,
		Subject:  fmt.Sprintf("[%s] %s", ticket.Number, payload.NewStatus),
		Body:     body,
		Kind:     "status_changed",
		TicketID: ticket.ID,
	})
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	agent, err := n.agents.GetByID(ctx, payload.AssigneeID)
	if err != nil {
		return err
	}
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	n.send(ctx, messaging.Email{
		To:       agent.Email,
		Subject:  fmt.Sprintf("[%s] %s", ticket.Number, ticket.Title),
		Body:     fmt.Sprintf("%s\n\n%s / %s / %s", ticket.Description, ticket.Category, ticket.Priority, payload.Method),
		Kind:     "assigned",
		TicketID: ticket.ID,
	})
	return nil
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok || payload.MessageType != domain.MessageTypePublicReply {
		return nil
	}
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if ticket.RequesterEmail == "" {
		return nil
	}
	n.send(ctx, messaging.Email{
		To:       ticket.RequesterEmail,
		Subject:  fmt.Sprintf("[%s] %s", ticket.Number, ticket.Title),
		Body:     payload.Body,
		Kind:     string(payload.Kind),
		TicketID: ticket.ID,
	})
	return nil
}

// send never fails the caller; delivery problems are logged.
func (n *NotificationService) send(ctx context.Context, email messaging.Email) {
	if n.mailer == nil {
		return
	}
	email.From = n.cfg.EmailFrom
	if err := n.mailer.Send(ctx, email); err != nil {
		n.logger.Error("send email",
			zap.String("kind", email.Kind),
			zap.String("ticket_id", email.TicketID),
			zap.Error(err))
	}
}
