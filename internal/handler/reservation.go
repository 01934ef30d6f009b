package handler

import (
    "net/http"

    "github.com/iliyamo/cinema-booking-engine/internal/model"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// ReservationHandler exposes finalized reservations: detail, payment,
// ticket issuance and cancellation.  Every route first checks that the
// caller owns the reservation.
type ReservationHandler struct {
    base
    workflow *service.Workflow
    payments *service.PaymentService
}

// NewReservationHandler wires a ReservationHandler.
func NewReservationHandler(workflow *service.Workflow, payments *service.PaymentService, log *logrus.Logger) *ReservationHandler {
    return &ReservationHandler{base: base{log: log}, workflow: workflow, payments: payments}
}

type paymentRequest struct {
    Method model.PaymentMethod `json:"method" validate:"required"`
}

// load reads the reservation in the path and authorizes the caller.
func (h *ReservationHandler) load(c echo.Context) (*model.Reservation, error) {
    id, err := parseID(c, "id")
    if err != nil {
        return nil, err
    }
    res, err := h.workflow.Reservation(c.Request().Context(), id)
    if err != nil {
        return nil, err
    }
    if err := service.Authorize(res, actor(c)); err != nil {
        return nil, err
    }
    return res, nil
}

// GetReservation returns the reservation with its tickets and payment
// attempts.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
    res, err := h.load(c)
    if err != nil {
        return h.fail(c, err)
    }
    ctx := c.Request().Context()
    tickets, err := h.payments.Tickets(ctx, res.ID)
    if err != nil {
        return h.fail(c, err)
    }
    payments, err := h.payments.Payments(ctx, res.ID)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": res, "tickets": tickets, "payments": payments})
}

// Pay charges the reservation.  A declined charge answers 409 with the
// stored attempt's id in the details; the client may retry.
func (h *ReservationHandler) Pay(c echo.Context) error {
    res, err := h.load(c)
    if err != nil {
        return h.fail(c, err)
    }
    var req paymentRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    out, err := h.payments.ProcessPayment(c.Request().Context(), res.ID, req.Method)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"payment": out.Payment, "tickets": out.Tickets})
}

// IssueTickets issues (or returns the already issued) tickets of a paid
// reservation.
func (h *ReservationHandler) IssueTickets(c echo.Context) error {
    res, err := h.load(c)
    if err != nil {
        return h.fail(c, err)
    }
    tickets, err := h.payments.IssueTickets(c.Request().Context(), res.ID)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}

// CancelReservation releases the seats and deletes the reservation.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
    res, err := h.load(c)
    if err != nil {
        return h.fail(c, err)
    }
    if err := h.workflow.CancelReservation(c.Request().Context(), res.ID); err != nil {
        return h.fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
