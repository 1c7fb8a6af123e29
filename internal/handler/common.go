package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

var errUnauthorized = errors.New("unauthorized")

// getUserID returns the authenticated user id set by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return "", errUnauthorized
	}
	return id, nil
}

// param returns a trimmed path parameter.
func param(c echo.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}

// writeError maps engine errors to HTTP statuses:
//
//	invalid input      400
//	not found          404
//	conflict           409
//	capacity exceeded  409
//	invalid state      422
//
// Anything else is logged and reported as 500.
func writeError(c echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, errUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrCapacityExceeded):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// bindPayment reads the payment collaborator's capture report.
func bindPayment(c echo.Context) (model.PaymentFact, error) {
	var p model.PaymentFact
	if err := c.Bind(&p); err != nil {
		return p, errors.New("invalid request body")
	}
	p.ExternalReference = strings.TrimSpace(p.ExternalReference)
	if p.ExternalReference == "" {
		return p, errors.New("external_reference is required")
	}
	if p.AmountCents < 0 {
		return p, errors.New("amount_cents must not be negative")
	}
	return p, nil
}
