package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
)

// RegisterOrganizer registers event administration under /v1/organizer,
// restricted to the ORGANIZER role.
func RegisterOrganizer(e *echo.Echo, h *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/organizer",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOrganizer),
	)

	g.POST("/events", h.CreateEvent)
	g.PUT("/events/:id/capacity", h.UpdateCapacity)
	g.POST("/events/:id/cancel", h.CancelEvent)
	g.POST("/events/:id/materialize", h.MaterializeSeats)
	g.GET("/events/:id/sales", h.Sales)

	g.POST("/seating-plans", h.CreatePlan)
	g.POST("/seating-plans/template", h.CreatePlanFromTemplate)
	g.GET("/seating-plans/templates", h.ListTemplates)

	g.PATCH("/tickets/:id/status", h.UpdateTicketStatus)
}
