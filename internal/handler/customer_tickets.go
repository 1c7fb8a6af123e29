package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// MyTickets handles GET /v1/my-tickets.
func (h *CustomerHandler) MyTickets(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	tickets, err := h.Engine.Ledger.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// MyEventTickets handles GET /v1/events/:id/my-ticket.  has_ticket is true
// when any of the tickets is valid or used.
func (h *CustomerHandler) MyEventTickets(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	eventID := param(c, "id")
	tickets, err := h.Engine.Ledger.ListByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return writeError(c, err)
	}
	has, err := h.Engine.Ledger.HasTicket(ctx, userID, eventID)
	if err != nil {
		return writeError(c, err)
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"has_ticket": has, "tickets": tickets})
}
