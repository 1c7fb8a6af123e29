package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// HoldSeats handles POST /v1/events/:id/holds with a body of
// {"seats": [{"section_id", "row", "seat_number"}, ...]}.  All seats are
// held or none; 409 means at least one was taken.
func (h *CustomerHandler) HoldSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		Seats []model.SeatRef `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(body.Seats) == 0 {
		return badRequest(c, "seats is required")
	}
	hold, err := h.Engine.Holds.Hold(c.Request().Context(), param(c, "id"), userID, body.Seats)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, hold)
}

// ActiveHold handles GET /v1/events/:id/holds/active.
func (h *CustomerHandler) ActiveHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	hold, err := h.Engine.Holds.ActiveHold(c.Request().Context(), param(c, "id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	if hold == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active hold"})
	}
	return c.JSON(http.StatusOK, hold)
}

// ReleaseHold handles DELETE /v1/holds/:id.
func (h *CustomerHandler) ReleaseHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Engine.Holds.ReleaseOwnHold(c.Request().Context(), param(c, "id"), userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ConfirmHold handles POST /v1/holds/:id/confirm.  Repeating a successful
// confirmation returns the same tickets.
func (h *CustomerHandler) ConfirmHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	payment, err := bindPayment(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	tickets, err := h.Engine.Holds.ConfirmSeats(c.Request().Context(), param(c, "id"), userID, payment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}
