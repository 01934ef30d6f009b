package handler

import (
    "net/http"
    "time"

    "github.com/iliyamo/cinema-booking-engine/internal/model"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"
)

// AdminHandler lets administrators schedule screenings and issue promo
// codes.
type AdminHandler struct {
    base
    screenings *service.ScreeningAdmin
    promos     *service.PromoLedger
}

// NewAdminHandler wires an AdminHandler.
func NewAdminHandler(screenings *service.ScreeningAdmin, promos *service.PromoLedger, log *logrus.Logger) *AdminHandler {
    return &AdminHandler{base: base{log: log}, screenings: screenings, promos: promos}
}

type createScreeningRequest struct {
    MovieID       uint64          `json:"movie_id" validate:"required"`
    CinemaID      uint64          `json:"cinema_id" validate:"required"`
    StartTime     time.Time       `json:"start_time" validate:"required"`
    StandardPrice decimal.Decimal `json:"standard_price"`
    DeluxePrice   decimal.Decimal `json:"deluxe_price"`
}

type createPromoRequest struct {
    Code              string             `json:"code" validate:"required"`
    Description       string             `json:"description"`
    DiscountType      model.DiscountType `json:"discount_type" validate:"required"`
    DiscountAmount    decimal.Decimal    `json:"discount_amount"`
    ValidFrom         time.Time          `json:"valid_from" validate:"required"`
    ValidUntil        time.Time          `json:"valid_until" validate:"required"`
    MaxUses           *int               `json:"max_uses"`
    MinPurchaseAmount decimal.Decimal    `json:"min_purchase_amount"`
}

// CreateScreening schedules a screening and generates its seats from the
// cinema layout.
func (h *AdminHandler) CreateScreening(c echo.Context) error {
    var req createScreeningRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    s, seats, err := h.screenings.Create(c.Request().Context(), service.NewScreening{
        MovieID:       req.MovieID,
        CinemaID:      req.CinemaID,
        StartTime:     req.StartTime,
        StandardPrice: req.StandardPrice,
        DeluxePrice:   req.DeluxePrice,
    })
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"screening": s, "seat_count": seats})
}

// DeleteScreening removes a screening that has no reserved seats.
func (h *AdminHandler) DeleteScreening(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return h.fail(c, err)
    }
    if err := h.screenings.Delete(c.Request().Context(), id); err != nil {
        return h.fail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// CreatePromoCode stores a new active promo code.
func (h *AdminHandler) CreatePromoCode(c echo.Context) error {
    var req createPromoRequest
    if err := bind(c, &req); err != nil {
        return h.fail(c, err)
    }
    p, err := h.promos.Create(c.Request().Context(), service.NewPromoCode{
        Code:              req.Code,
        Description:       req.Description,
        DiscountType:      req.DiscountType,
        DiscountAmount:    req.DiscountAmount,
        ValidFrom:         req.ValidFrom,
        ValidUntil:        req.ValidUntil,
        MaxUses:           req.MaxUses,
        MinPurchaseAmount: req.MinPurchaseAmount,
    })
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}
