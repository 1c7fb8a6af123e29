package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// OrganizerHandler serves event administration.  Routes must be guarded by
// JWTAuth and RequireRole(ORGANIZER).
type OrganizerHandler struct {
	Engine *service.Engine
}

// NewOrganizerHandler panics when eng is nil.
func NewOrganizerHandler(eng *service.Engine) *OrganizerHandler {
	if eng == nil {
		panic("nil engine passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Engine: eng}
}

// CreateEvent handles POST /v1/organizer/events.  A body with
// seating_plan_id creates a seated event whose seats are materialized
// immediately; otherwise total_tickets is required.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	var in service.CreateEventInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	e, err := h.Engine.Catalog.CreateEvent(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// UpdateCapacity handles PUT /v1/organizer/events/:id/capacity with
// {"total_tickets": n}.
func (h *OrganizerHandler) UpdateCapacity(c echo.Context) error {
	var body struct {
		TotalTickets *int `json:"total_tickets"`
	}
	if err := c.Bind(&body); err != nil || body.TotalTickets == nil {
		return badRequest(c, "total_tickets is required")
	}
	e, err := h.Engine.Catalog.UpdateCapacity(c.Request().Context(), param(c, "id"), *body.TotalTickets)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// CancelEvent handles POST /v1/organizer/events/:id/cancel.
func (h *OrganizerHandler) CancelEvent(c echo.Context) error {
	if err := h.Engine.Catalog.CancelEvent(c.Request().Context(), param(c, "id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MaterializeSeats handles POST /v1/organizer/events/:id/materialize with
// {"seating_plan_id": "..."}.
func (h *OrganizerHandler) MaterializeSeats(c echo.Context) error {
	var body struct {
		SeatingPlanID string `json:"seating_plan_id"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.SeatingPlanID) == "" {
		return badRequest(c, "seating_plan_id is required")
	}
	n, err := h.Engine.Catalog.MaterializeSeats(c.Request().Context(), param(c, "id"), body.SeatingPlanID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": n})
}

// Sales handles GET /v1/organizer/events/:id/sales.
func (h *OrganizerHandler) Sales(c echo.Context) error {
	s, err := h.Engine.Ledger.SalesSummary(c.Request().Context(), param(c, "id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// CreatePlan handles POST /v1/organizer/seating-plans.
func (h *OrganizerHandler) CreatePlan(c echo.Context) error {
	var body struct {
		Name     string          `json:"name"`
		Sections []model.Section `json:"sections"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Engine.Catalog.CreatePlan(c.Request().Context(), body.Name, body.Sections)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// CreatePlanFromTemplate handles POST /v1/organizer/seating-plans/template
// with {"name", "template"}.
func (h *OrganizerHandler) CreatePlanFromTemplate(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Template string `json:"template"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.Engine.Catalog.CreatePlanFromTemplate(c.Request().Context(), body.Name, strings.ToLower(strings.TrimSpace(body.Template)))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListTemplates handles GET /v1/organizer/seating-plans/templates.
func (h *OrganizerHandler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"templates": service.TemplateNames()})
}

// UpdateTicketStatus handles PATCH /v1/organizer/tickets/:id/status with
// {"status": "used" | "refunded" | "cancelled"}.
func (h *OrganizerHandler) UpdateTicketStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return badRequest(c, "status is required")
	}
	t, err := h.Engine.Ledger.UpdateStatus(c.Request().Context(), param(c, "id"), strings.ToLower(body.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
