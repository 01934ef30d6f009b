package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/iliyamo/cinema-booking-engine/internal/middleware"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// ReservationTokenHeader carries the guest access token issued at finalize.
const ReservationTokenHeader = "X-Reservation-Token"

// genericFailure is the only message a client sees for storage failures.
const genericFailure = "something went wrong, please try again"

// base holds what every handler needs to report failures.
type base struct {
    log *logrus.Logger
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(k service.Kind) int {
    switch k {
    case service.KindValidation:
        return http.StatusBadRequest
    case service.KindConflict:
        return http.StatusConflict
    case service.KindNotFound:
        return http.StatusNotFound
    }
    return http.StatusInternalServerError
}

// fail writes err as a flat JSON error body.  Integrity failures are logged
// with their cause and answered with a generic message.
func (b base) fail(c echo.Context, err error) error {
    var e *service.Error
    if !errors.As(err, &e) {
        e = service.Integrity("request", err)
    }
    status := statusFor(e.Kind)
    if status == http.StatusInternalServerError {
        b.log.WithFields(logrus.Fields{
            "route":      c.Path(),
            "request_id": c.Response().Header().Get(echo.HeaderXRequestID),
            "code":       e.Code,
        }).WithError(err).Error("request failed")
        return c.JSON(status, echo.Map{"error": genericFailure, "code": e.Code})
    }
    body := echo.Map{"error": e.Message, "code": e.Code}
    if len(e.Details) > 0 {
        body["details"] = e.Details
    }
    return c.JSON(status, body)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, service.Validation(service.CodeInvalidInput, "invalid "+name)
    }
    return id, nil
}

// actor describes the caller from the JWT claims (if any) and the guest
// reservation token header.
func actor(c echo.Context) service.Actor {
    uid, _ := middleware.UserID(c)
    return service.Actor{
        UserID: uid,
        Admin:  middleware.Role(c) == middleware.RoleAdmin,
        Token:  c.Request().Header.Get(ReservationTokenHeader),
    }
}
