package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/service"
	"github.com/spec-kit/triage-service/internal/worker"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// AssistantHandler exposes previews and administration of the triage assistant.
type AssistantHandler struct {
	assistant *service.AssistantService
	knowledge *service.KnowledgeService
	settings  *service.SettingsService
	followups *worker.FollowupScheduler
	metrics   *observability.Metrics
}

// NewAssistantHandler constructs handler.
func NewAssistantHandler(assistant *service.AssistantService, knowledge *service.KnowledgeService, settings *service.SettingsService, followups *worker.FollowupScheduler, metrics *observability.Metrics) *AssistantHandler {
	return &AssistantHandler{
		assistant: assistant,
		knowledge: knowledge,
		settings:  settings,
		followups: followups,
		metrics:   metrics,
	}
}

// Analyze POST /api/assistant/analyze.
func (h *AssistantHandler) Analyze(c *fiber.Ctx) error {
	var req dto.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title+req.Description) == "" {
		return apperrors.NewValidationError("title or description required", nil)
	}
	return c.JSON(fiber.Map{"data": h.assistant.Analyze(req.Title, req.Description)})
}

// SearchKB POST /api/assistant/kb/suggestions previews article matching without touching any ticket.
func (h *AssistantHandler) SearchKB(c *fiber.Ctx) error {
	var req dto.KBSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cfg := h.settings.Current(c.UserContext())
	if req.Limit > 0 {
		return c.JSON(fiber.Map{"data": h.knowledge.SuggestArticles(c.UserContext(), cfg, req.Title, req.Description, req.Limit)})
	}
	res := h.knowledge.GenerateKBResponse(c.UserContext(), cfg, service.KBRequest{
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
	})
	return c.JSON(fiber.Map{"data": res})
}

// GetArticle GET /api/assistant/kb/articles/:slug.
func (h *AssistantHandler) GetArticle(c *fiber.Ctx) error {
	article, err := h.knowledge.GetArticle(c.UserContext(), h.settings.Current(c.UserContext()), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": article})
}

// RunFollowups POST /api/assistant/followups/run triggers a sweep immediately.
func (h *AssistantHandler) RunFollowups(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.followups.RunOnce(c.UserContext())})
}

// GetSettings GET /api/assistant/settings.
func (h *AssistantHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.settings.Current(c.UserContext())})
}

// UpdateSettings PUT /api/assistant/settings.
func (h *AssistantHandler) UpdateSettings(c *fiber.Ctx) error {
	var patch service.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cfg, err := h.settings.Update(c.UserContext(), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cfg})
}

// Metrics GET /api/metrics.
func (h *AssistantHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
