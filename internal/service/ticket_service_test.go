package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	return domainErr.Code
}

func TestCreateTicket(t *testing.T) {
	h := newHarness(officeHours)
	staff := &domain.Agent{ID: "staff-1", Role: domain.RoleServiceOfficer}

	ticket, err := h.tickets.CreateTicket(context.Background(), staff, TicketCreateInput{
		RequesterName:  " Pedro ",
		RequesterEmail: "pedro@example.com",
		Title:          "  VPN no conecta ",
		Description:    "Desde ayer",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TCK-[0-9A-F]{8}$`), ticket.Number)
	assert.Equal(t, "VPN no conecta", ticket.Title)
	assert.Equal(t, "Pedro", ticket.RequesterName)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.CategoryOther, ticket.Category)

	created := h.recorder.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.ID, created[0].TicketID)
	require.NotNil(t, created[0].Actor.StaffID)
	assert.Equal(t, "staff-1", *created[0].Actor.StaffID)

	t.Run("validation", func(t *testing.T) {
		_, err := h.tickets.CreateTicket(context.Background(), staff, TicketCreateInput{Title: "   "})
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

		_, err = h.tickets.CreateTicket(context.Background(), staff, TicketCreateInput{Title: "x", RequesterEmail: "not-an-email"})
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
	})
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(officeHours)
	staff := &domain.Agent{ID: "staff-1", Role: domain.RoleTeamLead}
	ticket := h.store.addTicket(domain.Ticket{Number: "TCK-1", Status: domain.TicketStatusOpen})

	updated, err := h.tickets.UpdateStatus(context.Background(), staff, ticket.ID, domain.TicketStatusClosed, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedAt)

	audit := h.store.historyFor(ticket.ID, domain.ChangeTypeStatus)
	require.Len(t, audit, 1)
	assert.Equal(t, domain.AuthorTypeStaff, audit[0].ChangedByType)
	assert.Len(t, h.recorder.ofType(events.EventTicketStatusChanged), 1)

	_, err = h.tickets.UpdateStatus(context.Background(), staff, ticket.ID, domain.TicketStatusWaitingCustomer, "")
	assert.Equal(t, "CONFLICT", errorCode(t, err))

	reopened, err := h.tickets.UpdateStatus(context.Background(), staff, ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)

	_, err = h.tickets.UpdateStatus(context.Background(), staff, "missing", domain.TicketStatusClosed, "")
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))

	_, err = h.tickets.UpdateStatus(context.Background(), nil, ticket.ID, domain.TicketStatusClosed, "")
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, err))
}

func TestGetTicket(t *testing.T) {
	h := newHarness(officeHours)
	ticket := h.store.addTicket(domain.Ticket{Number: "TCK-1", Status: domain.TicketStatusOpen, CreatedAt: officeHours.Add(-time.Hour)})
	require.NoError(t, fakeMessageRepo{h.store}.Create(context.Background(), &domain.TicketMessage{
		TicketID: ticket.ID, AuthorType: domain.AuthorTypeSystem, MessageType: domain.MessageTypePublicReply, Body: "hola",
	}))

	details, err := h.tickets.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "TCK-1", details.Ticket.Number)
	assert.Len(t, details.Messages, 1)
	assert.Empty(t, details.History)

	t.Run("by public number", func(t *testing.T) {
		byNumber, err := h.tickets.GetTicket(context.Background(), "tck-1")
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, byNumber.Ticket.ID)
		assert.Len(t, byNumber.Messages, 1)

		_, err = h.tickets.GetTicket(context.Background(), "TCK-404")
		assert.Equal(t, "NOT_FOUND", errorCode(t, err))
	})

	_, err = h.tickets.GetTicket(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestGetHistory(t *testing.T) {
	h := newHarness(officeHours)
	ctx := context.Background()
	ticket := h.store.addTicket(domain.Ticket{Number: "TCK-7", Status: domain.TicketStatusClosed})
	audit := fakeHistoryRepo{h.store}
	entries := []domain.TicketHistory{
		{TicketID: ticket.ID, ChangedByType: domain.AuthorTypeSystem, ChangedByID: strPtr(assistantID), ChangeType: domain.ChangeTypeAssignee,
			NewValue: map[string]any{"assignee_id": "so-1", "method": "auto-assignment"}},
		{TicketID: ticket.ID, ChangedByType: domain.AuthorTypeStaff, ChangedByID: strPtr("agent-1"), ChangeType: domain.ChangeTypeStatus,
			NewValue: map[string]any{"status": domain.TicketStatusWaitingCustomer}},
		{TicketID: ticket.ID, ChangedByType: domain.AuthorTypeSystem, ChangedByID: strPtr(assistantID), ChangeType: domain.ChangeTypeStatus,
			NewValue: map[string]any{"status": domain.TicketStatusClosed, "method": "auto-close"}},
		{TicketID: "other", ChangedByType: domain.AuthorTypeSystem, ChangeType: domain.ChangeTypeStatus,
			NewValue: map[string]any{"method": "auto-close"}},
	}
	for i := range entries {
		require.NoError(t, audit.Create(ctx, &entries[i]))
	}

	all, err := h.tickets.GetHistory(ctx, ticket.ID, repository.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	statuses, err := h.tickets.GetHistory(ctx, "TCK-7", repository.HistoryFilter{ChangeTypes: []domain.TicketChangeType{domain.ChangeTypeStatus}})
	require.NoError(t, err)
	assert.Len(t, statuses, 2)

	closes, err := h.tickets.GetHistory(ctx, ticket.ID, repository.HistoryFilter{Method: "auto-close"})
	require.NoError(t, err)
	require.Len(t, closes, 1)
	assert.Equal(t, domain.TicketStatusClosed, closes[0].NewValue["status"])

	system, err := h.tickets.GetHistory(ctx, ticket.ID, repository.HistoryFilter{SystemOnly: true})
	require.NoError(t, err)
	assert.Len(t, system, 2)

	t.Run("unknown change type", func(t *testing.T) {
		_, err := h.tickets.GetHistory(ctx, ticket.ID, repository.HistoryFilter{ChangeTypes: []domain.TicketChangeType{"RENAME"}})
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := h.tickets.GetHistory(ctx, "TCK-404", repository.HistoryFilter{})
		assert.Equal(t, "NOT_FOUND", errorCode(t, err))
	})
}
