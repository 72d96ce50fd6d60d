package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// TicketsHandler manages staff ticket endpoints.
type TicketsHandler struct {
	service   *service.TicketService
	assistant *service.AssistantService
	settings  *service.SettingsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assistant *service.AssistantService, settings *service.SettingsService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, assistant: assistant, settings: settings}
}

// CreateTicket POST /api/tickets. Triage runs in the background.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), staff, service.TicketCreateInput{
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Title:          req.Title,
		Description:    req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id. The id may also be the ticket number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	details, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(details)})
}

// GetHistory GET /api/tickets/:id/history?change_type=STATUS_CHANGE,ASSIGNEE_CHANGE&method=auto-close&system=true.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	filter := repository.HistoryFilter{
		Method:     strings.TrimSpace(c.Query("method")),
		SystemOnly: c.QueryBool("system"),
	}
	for _, part := range splitQuery(c.Query("change_type")) {
		filter.ChangeTypes = append(filter.ChangeTypes, domain.TicketChangeType(strings.ToUpper(part)))
	}
	history, err := h.service.GetHistory(c.UserContext(), c.Params("id"), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", map[string]any{"field": "status"})
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), staff, c.Params("id"), req.Status, strings.TrimSpace(req.Comment))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Triage POST /api/tickets/:id/triage runs the pipeline synchronously and returns its result.
func (h *TicketsHandler) Triage(c *fiber.Ctx) error {
	cfg := h.settings.Current(c.UserContext())
	res := h.assistant.ProcessTicketCreation(c.UserContext(), cfg, service.TicketCreation{TicketID: c.Params("id")})
	if res.Outcome == service.OutcomeFailed && res.Reason == "ticket not found" {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": res})
}

func staffPrincipal(c *fiber.Ctx) (*domain.Agent, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Agent, nil
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if deptID := c.Query("department_id"); deptID != "" {
		filter.DepartmentID = &deptID
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	for _, part := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(part)))
	}
	for _, part := range splitQuery(c.Query("priority")) {
		if p, ok := domain.ParsePriority(part); ok {
			filter.Priorities = append(filter.Priorities, p)
		}
	}
	for _, part := range splitQuery(c.Query("category")) {
		filter.Categories = append(filter.Categories, domain.ParseCategory(part))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func splitQuery(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:           ticket.ID,
		Number:       ticket.Number,
		DepartmentID: ticket.DepartmentID,
		AssigneeID:   ticket.AssigneeID,
		Title:        ticket.Title,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		Sentiment:    ticket.Sentiment,
		Category:     ticket.Category,
		Language:     ticket.Language,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func ticketDetail(details *service.TicketDetails) dto.TicketDetailResponse {
	ticket := details.Ticket
	msgs := make([]dto.TicketMessageResponse, 0, len(details.Messages))
	for _, msg := range details.Messages {
		msgs = append(msgs, dto.TicketMessageResponse{
			ID:          msg.ID,
			MessageType: msg.MessageType,
			AuthorType:  msg.AuthorType,
			AuthorID:    msg.AuthorID,
			Body:        msg.Body,
			CreatedAt:   msg.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary:  ticketSummary(ticket),
		RequesterName:  ticket.RequesterName,
		RequesterEmail: ticket.RequesterEmail,
		Description:    ticket.Description,
		ClosedAt:       ticket.ClosedAt,
		Messages:       msgs,
		History:        historyResponses(details.History),
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}
