package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/messaging"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []messaging.Email
}

func (c *captureMailer) Send(_ context.Context, email messaging.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, email)
	return nil
}

func (c *captureMailer) Close() error { return nil }

func (c *captureMailer) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, e := range c.sent {
		out[i] = e.Kind
	}
	return out
}

func notificationHarness(t *testing.T, escalationEmail string) (*memStore, events.Dispatcher, *captureMailer) {
	t.Helper()
	store := newMemStore(time.Now)
	store.agents = []domain.Agent{{ID: "agent-1", Email: "agent@example.com", Active: true}}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	mailer := &captureMailer{}
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Mailer:     mailer,
		TicketRepo: fakeTicketRepo{store},
		AgentRepo:  fakeAgentRepo{store},
		Composer:   testComposer(),
		Config:     config.NotificationConfig{EmailFrom: "noreply@example.com", EscalationEmail: escalationEmail},
	}).RegisterHandlers()
	return store, dispatcher, mailer
}

func TestNotificationService_Routing(t *testing.T) {
	store, dispatcher, mailer := notificationHarness(t, "oncall@example.com")
	ticket := store.addTicket(domain.Ticket{Number: "TCK-7", Title: "VPN", RequesterEmail: "client@example.com"})
	ctx := context.Background()

	publish := func(ev events.Event) {
		ev.TicketID = ticket.ID
		require.NoError(t, dispatcher.Publish(ctx, ev))
	}

	publish(events.Event{Type: events.EventTicketEscalated, Payload: events.TicketEscalatedPayload{
		Number: "TCK-7", Title: "VPN", Language: "es", Priority: domain.TicketPriorityCritical, Sentiment: domain.SentimentNeutral,
	}})
	publish(events.Event{Type: events.EventTicketAssigned, Payload: events.TicketAssignedPayload{AssigneeID: "agent-1", Method: "auto-assignment"}})
	publish(events.Event{Type: events.EventTicketMessageAdded, Payload: events.TicketMessageAddedPayload{
		MessageType: domain.MessageTypePublicReply, Kind: events.MessageKindReminder, Body: "hola",
	}})
	publish(events.Event{Type: events.EventTicketMessageAdded, Payload: events.TicketMessageAddedPayload{
		MessageType: domain.MessageTypeInternalNote, Body: "note",
	}})
	publish(events.Event{Type: events.EventTicketStatusChanged, Payload: events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusWaitingCustomer, NewStatus: domain.TicketStatusClosed, Method: "auto-close",
	}})
	publish(events.Event{Type: events.EventTicketStatusChanged, Payload: events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusResolved,
	}})

	assert.Equal(t, []string{"escalation", "assigned", "reminder", "status_changed"}, mailer.kinds())
	assert.Equal(t, "oncall@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "TCK-7")
	assert.Equal(t, "agent@example.com", mailer.sent[1].To)
	assert.Equal(t, "client@example.com", mailer.sent[2].To)
	for _, e := range mailer.sent {
		assert.Equal(t, "noreply@example.com", e.From)
	}
}

func TestNotificationService_EscalationWithoutRecipient(t *testing.T) {
	store, dispatcher, mailer := notificationHarness(t, "")
	ticket := store.addTicket(domain.Ticket{Number: "TCK-8"})

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Payload:  events.TicketEscalatedPayload{Number: "TCK-8"},
	}))
	assert.Empty(t, mailer.kinds())
}
