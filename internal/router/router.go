// Package router registers the HTTP routes on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/handler"
)

// RegisterRoutes registers health checks.  db backs the readiness probe.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers unauthenticated browse endpoints.  cache wraps
// the seating plan lookup, whose payload never changes once stored.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", p.ListEvents)
	e.GET("/v1/events/:id", p.GetEvent)
	e.GET("/v1/events/:id/availability", p.Availability)
	e.GET("/v1/events/:id/seats", p.SeatMap)
	e.GET("/v1/seating-plans/:id", p.GetPlan, cache)
}
