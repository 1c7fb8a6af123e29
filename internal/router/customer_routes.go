package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
)

// RegisterCustomer registers customer endpoints under /v1.  All routes
// require a valid JWT with the CUSTOMER or ORGANIZER role; limit guards the
// endpoints that mutate reservations.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RoleOrganizer),
	)

	g.POST("/events/:id/queue", h.JoinQueue, limit)
	g.GET("/events/:id/queue/position", h.QueuePosition)
	g.POST("/events/:id/queue/:entryId/release", h.ReleaseOffer)
	g.POST("/events/:id/queue/:entryId/purchase", h.PurchaseOffer, limit)
	g.GET("/my-queue", h.MyQueue)

	g.POST("/events/:id/holds", h.HoldSeats, limit)
	g.GET("/events/:id/holds/active", h.ActiveHold)
	g.DELETE("/holds/:id", h.ReleaseHold)
	g.POST("/holds/:id/confirm", h.ConfirmHold, limit)

	g.GET("/my-tickets", h.MyTickets)
	g.GET("/events/:id/my-ticket", h.MyEventTickets)
}
