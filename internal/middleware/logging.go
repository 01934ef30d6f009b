package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestLogger writes one logrus entry per request.  Server errors log at
// error level, client errors at warn, everything else at info.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // Let echo's error handler decide the status before logging.
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            fields := logrus.Fields{
                "method":     req.Method,
                "route":      c.Path(),
                "uri":        req.RequestURI,
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "remote_ip":  c.RealIP(),
                "request_id": res.Header().Get(echo.HeaderXRequestID),
            }
            if id, ok := UserID(c); ok {
                fields["user_id"] = id
            }
            entry := log.WithFields(fields)
            switch {
            case res.Status >= 500:
                entry.Error("request failed")
            case res.Status >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request served")
            }
            return nil
        }
    }
}
