package handler

import (
    "net/http"

    "github.com/iliyamo/cinema-booking-engine/internal/middleware"
    "github.com/iliyamo/cinema-booking-engine/internal/model"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// BookingHandler drives the booking session state machine over HTTP.  The
// session id returned at start is what the client passes on every later
// call; sessions opened by a customer additionally require that customer's
// token.
type BookingHandler struct {
    base
    workflow *service.Workflow
}

// NewBookingHandler wires a BookingHandler.
func NewBookingHandler(workflow *service.Workflow, log *logrus.Logger) *BookingHandler {
    return &BookingHandler{base: base{log: log}, workflow: workflow}
}

type guestRequest struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Phone string `json:"phone"`
}

type startSessionRequest struct {
    ScreeningID uint64        `json:"screening_id" validate:"required"`
    Guest       *guestRequest `json:"guest"`
}

type selectSeatsRequest struct {
    SeatIDs []uint64 `json:"seat_ids" validate:"required,min=1"`
}

type selectConcessionsRequest struct {
    Items []model.ConcessionLine `json:"items"`
}

type finalizeRequest struct {
    PromoCode string `json:"promo_code" validate:"max=64"`
}

// session loads the session named in the path and checks the caller may
// use it.  A customer's session is invisible to everyone but that customer
// and admins.
func (h *BookingHandler) session(c echo.Context) (*service.Session, error) {
    sess, err := h.workflow.Session(c.Request().Context(), c.Param("sid"))
    if err != nil {
        return nil, err
    }
    if p, ok := sess.Purchaser.(model.RegisteredUser); ok {
        a := actor(c)
        if !a.Admin && a.UserID != p.UserID {
            return nil, service.NotFound("session not found")
        }
    }
    return sess, nil
}

// StartSession opens a session.  An authenticated customer books under
// their account; anyone else must supply guest contact details.
func (h *BookingHandler) StartSession(c echo.Context) error {
    var req startSessionRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    ctx := c.Request().Context()
    var (
        sess *service.Session
        err  error
    )
    if uid, ok := middleware.UserID(c); ok {
        sess, err = h.workflow.StartForUser(ctx, uid, req.ScreeningID)
    } else {
        if req.Guest == nil {
            return h.fail(c, service.Validation(service.CodeInvalidInput, "guest contact details are required"))
        }
        sess, err = h.workflow.StartForGuest(ctx, req.Guest.Name, req.Guest.Email, req.Guest.Phone, req.ScreeningID)
    }
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, sess)
}

// GetSession returns the session.  Once seats are selected the response
// also carries a price quote, computed with ?promo_code= when given.
func (h *BookingHandler) GetSession(c echo.Context) error {
    sess, err := h.session(c)
    if err != nil {
        return h.fail(c, err)
    }
    if sess.State != service.StateSeatsSelected && sess.State != service.StateItemsSelected {
        return c.JSON(http.StatusOK, echo.Map{"session": sess})
    }
    q, err := h.workflow.Quote(c.Request().Context(), sess.ID, c.QueryParam("promo_code"))
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, q)
}

// SelectSeats replaces the session's seat selection.
func (h *BookingHandler) SelectSeats(c echo.Context) error {
    sess, err := h.session(c)
    if err != nil {
        return h.fail(c, err)
    }
    var req selectSeatsRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    sess, err = h.workflow.SelectSeats(c.Request().Context(), sess.ID, req.SeatIDs)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, sess)
}

// SelectConcessions replaces the session's concession lines.
func (h *BookingHandler) SelectConcessions(c echo.Context) error {
    sess, err := h.session(c)
    if err != nil {
        return h.fail(c, err)
    }
    var req selectConcessionsRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    sess, err = h.workflow.SelectConcessions(c.Request().Context(), sess.ID, req.Items)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, sess)
}

// Finalize persists the reservation.  Guests receive their access token in
// this response only.
func (h *BookingHandler) Finalize(c echo.Context) error {
    sess, err := h.session(c)
    if err != nil {
        return h.fail(c, err)
    }
    var req finalizeRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    res, err := h.workflow.Finalize(c.Request().Context(), sess.ID, req.PromoCode)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// CancelSession abandons the session.  Nothing was reserved, so nothing is
// released.
func (h *BookingHandler) CancelSession(c echo.Context) error {
    sess, err := h.session(c)
    if err != nil {
        return h.fail(c, err)
    }
    sess, err = h.workflow.Cancel(c.Request().Context(), sess.ID)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, sess)
}
