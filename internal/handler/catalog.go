package handler

import (
    "net/http"
    "time"

    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// CatalogHandler serves the public, cacheable catalog reads: screenings,
// their seat maps and the concession menu.
type CatalogHandler struct {
    base
    catalog   service.Catalog
    inventory *service.SeatInventory
    now       func() time.Time
}

// NewCatalogHandler wires a CatalogHandler.
func NewCatalogHandler(catalog service.Catalog, inventory *service.SeatInventory, log *logrus.Logger) *CatalogHandler {
    return &CatalogHandler{base: base{log: log}, catalog: catalog, inventory: inventory, now: time.Now}
}

// ListScreenings returns active screenings that have not started yet.
func (h *CatalogHandler) ListScreenings(c echo.Context) error {
    list, err := h.catalog.UpcomingScreenings(c.Request().Context(), h.now())
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// GetScreening returns one screening with its seat prices.
func (h *CatalogHandler) GetScreening(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return h.fail(c, err)
    }
    s, err := h.catalog.Screening(c.Request().Context(), id)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, s)
}

// ListSeats returns the seat map of a screening ordered by row and column,
// with the number of seats still available.
func (h *CatalogHandler) ListSeats(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return h.fail(c, err)
    }
    ctx := c.Request().Context()
    if _, err := h.catalog.Screening(ctx, id); err != nil {
        return h.fail(c, err)
    }
    seats, err := h.inventory.ListSeats(ctx, id)
    if err != nil {
        return h.fail(c, err)
    }
    available := 0
    for _, s := range seats {
        if !s.Reserved {
            available++
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"screening_id": id, "available": available, "items": seats})
}

// ListConcessions returns the concession items currently on sale.
func (h *CatalogHandler) ListConcessions(c echo.Context) error {
    list, err := h.catalog.AvailableConcessions(c.Request().Context())
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list})
}
