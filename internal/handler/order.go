package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-station/internal/middleware"
	"github.com/iliyamo/train-station/internal/model"
	"github.com/iliyamo/train-station/internal/repository"
	"github.com/iliyamo/train-station/internal/service"
)

// OrderPlacer creates an order and its tickets atomically.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID uint64, reqs []service.TicketRequest) (*model.Order, error)
}

// OrderReader reads and deletes orders scoped to their owner.
type OrderReader interface {
	ListByUser(ctx context.Context, userID uint64) ([]repository.OrderSummary, error)
	GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Order, error)
	DeleteForUser(ctx context.Context, id, userID uint64) error
}

// OrderHandler exposes the caller's own orders.  Orders of other users
// answer 404 exactly like missing ones.
type OrderHandler struct {
	Booking OrderPlacer
	Orders  OrderReader
}

func NewOrderHandler(b OrderPlacer, o OrderReader) *OrderHandler {
	return &OrderHandler{Booking: b, Orders: o}
}

type createOrderReq struct {
	Tickets []service.TicketRequest `json:"tickets"`
}

// Create places an order.  A ticket failing the capacity rule yields 400
// with a per-ticket error list; a taken slot yields 400 "seat_conflict".
func (h *OrderHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req createOrderReq
	if err := bindBody(c, &req); err != nil {
		return invalidBody(c)
	}

	order, err := h.Booking.PlaceOrder(c.Request().Context(), uid, req.Tickets)
	if err != nil {
		var (
			te *service.TicketError
			ce *service.ConflictError
		)
		switch {
		case errors.Is(err, service.ErrEmptyOrder):
			return c.JSON(http.StatusBadRequest, echo.Map{"tickets": service.ErrEmptyOrder.Error()})
		case errors.As(err, &te):
			tickets := make([]fieldErrors, len(req.Tickets))
			for i := range tickets {
				tickets[i] = fieldErrors{}
			}
			if te.Index < len(tickets) {
				tickets[te.Index] = fieldErrors{te.Field.Field: te.Field.Message}
			}
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":        "validation_error",
				"ticket_index": te.Index,
				"tickets":      tickets,
			})
		case errors.As(err, &ce):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":        "seat_conflict",
				"message":      "seat is already booked",
				"ticket_index": ce.Index,
				"journey":      ce.JourneyID,
				"cargo":        ce.Cargo,
				"seat":         ce.Seat,
			})
		}
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) List(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	out, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) Get(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	o, err := h.Orders.GetByIDForUser(ctx, id, uid)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Delete is mounted behind the admin role and still only sees the
// caller's own orders.
func (h *OrderHandler) Delete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Orders.DeleteForUser(ctx, id, uid); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
