package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// subject converts a decoded "sub" claim into a user id.  JSON numbers
// decode as float64; some issuers send the id as a string.
func subject(v any) (uint64, bool) {
    switch t := v.(type) {
    case float64:
        if t > 0 && t == float64(uint64(t)) {
            return uint64(t), true
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
            return n, true
        }
    }
    return 0, false
}

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id > 0
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// identityKey names the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func identityKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
