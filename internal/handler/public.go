package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// PublicHandler serves unauthenticated browse endpoints.
type PublicHandler struct {
	Engine *service.Engine
}

// NewPublicHandler panics when eng is nil.
func NewPublicHandler(eng *service.Engine) *PublicHandler {
	if eng == nil {
		panic("nil engine passed to NewPublicHandler")
	}
	return &PublicHandler{Engine: eng}
}

// ListEvents handles GET /v1/events.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.Engine.Catalog.ListEvents(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// GetEvent handles GET /v1/events/:id.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	e, err := h.Engine.Catalog.GetEvent(c.Request().Context(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Availability handles GET /v1/events/:id/availability.
func (h *PublicHandler) Availability(c echo.Context) error {
	av, err := h.Engine.Availability.Compute(c.Request().Context(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

// SeatMap handles GET /v1/events/:id/seats.
func (h *PublicHandler) SeatMap(c echo.Context) error {
	m, err := h.Engine.Holds.SeatMap(c.Request().Context(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// GetPlan handles GET /v1/seating-plans/:id.  Plans never change once
// stored, so the route is served through the response cache.
func (h *PublicHandler) GetPlan(c echo.Context) error {
	p, err := h.Engine.Catalog.GetPlan(c.Request().Context(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"plan": p, "capacity": p.Capacity()})
}
