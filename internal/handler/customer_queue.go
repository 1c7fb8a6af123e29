package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// CustomerHandler serves the authenticated customer endpoints: the waiting
// list, seat holds and the customer's own tickets.  JWTAuth must run first.
type CustomerHandler struct {
	Engine *service.Engine
}

// NewCustomerHandler panics when eng is nil.
func NewCustomerHandler(eng *service.Engine) *CustomerHandler {
	if eng == nil {
		panic("nil engine passed to NewCustomerHandler")
	}
	return &CustomerHandler{Engine: eng}
}

// JoinQueue handles POST /v1/events/:id/queue.  It answers 201 with the
// entry, which is already offered when capacity was free.
func (h *CustomerHandler) JoinQueue(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Engine.Queue.Join(c.Request().Context(), param(c, "id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// QueuePosition handles GET /v1/events/:id/queue/position.  A user with
// no live entry gets 404.
func (h *CustomerHandler) QueuePosition(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	pos, err := h.Engine.Queue.Position(c.Request().Context(), param(c, "id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	if pos == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not in queue"})
	}
	return c.JSON(http.StatusOK, pos)
}

// ReleaseOffer handles POST /v1/events/:id/queue/:entryId/release.
func (h *CustomerHandler) ReleaseOffer(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	entry, err := h.Engine.Offers.Release(c.Request().Context(), param(c, "entryId"), param(c, "id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// PurchaseOffer handles POST /v1/events/:id/queue/:entryId/purchase.  The
// body is the payment capture report: {"amount_cents", "external_reference"}.
func (h *CustomerHandler) PurchaseOffer(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	payment, err := bindPayment(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	t, err := h.Engine.Offers.Purchase(c.Request().Context(), param(c, "entryId"), param(c, "id"), userID, payment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// MyQueue handles GET /v1/my-queue.
func (h *CustomerHandler) MyQueue(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	entries, err := h.Engine.Queue.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	if entries == nil {
		entries = []model.WaitingListEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}
