package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Prefix            string
	Health            *handlers.HealthHandler
	Tickets           *handlers.TicketsHandler
	Sessions          *handlers.SessionsHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes. Probes and metrics sit at the root; the
// API lives under cfg.Prefix with the session loaded on every request.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group(cfg.Prefix, cfg.SessionMiddleware.Handle)
	requireUser := auth.RequireAuthenticated()

	api.Post("/sessions", cfg.Sessions.Login)
	api.Get("/sessions/current", requireUser, cfg.Sessions.Current)
	api.Delete("/sessions/current", cfg.Sessions.Logout)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", requireUser, cfg.Tickets.CreateTicket)
	api.Get("/tickets/:id", requireUser, cfg.Tickets.GetTicket)
	api.Put("/tickets/:id", requireUser, cfg.Tickets.UpdateTicket)
	api.Get("/tickets/:id/textblocks", requireUser, cfg.Tickets.ListTextBlocks)
	api.Post("/tickets/:id/textblocks", requireUser, cfg.Tickets.AddTextBlock)
}
