package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Assistant      *handlers.AssistantHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	api.Get("/metrics", cfg.Assistant.Metrics)

	leads := auth.RequireStaffRole(domain.RoleTeamLead, domain.RoleTechnicalLead)
	teamLead := auth.RequireStaffRole(domain.RoleTeamLead)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/triage", leads, cfg.Tickets.Triage)

	assistant := api.Group("/assistant")
	assistant.Post("/analyze", cfg.Assistant.Analyze)
	assistant.Post("/kb/suggestions", cfg.Assistant.SearchKB)
	assistant.Get("/kb/articles/:slug", cfg.Assistant.GetArticle)
	assistant.Post("/followups/run", teamLead, cfg.Assistant.RunFollowups)
	assistant.Get("/settings", teamLead, cfg.Assistant.GetSettings)
	assistant.Put("/settings", teamLead, cfg.Assistant.UpdateSettings)
}
