package middleware // reusable HTTP middleware for the booking API

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// Context keys set by the JWT middlewares.
const (
    ctxUserID = "user_id" // uint64
    ctxRole   = "role"    // string
)

// JWTAuth returns an Echo middleware that requires a valid Bearer access
// token and stores its subject and role in the request context.  The
// secret must match the one used to issue tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            if msg := authenticate(c, secret, strings.TrimPrefix(auth, "Bearer ")); msg != "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }
            return next(c)
        }
    }
}

// OptionalJWT lets anonymous requests through so guests can book, but a
// request that does carry a token must carry a valid one.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if auth == "" {
                return next(c)
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "malformed authorization header"})
            }
            if msg := authenticate(c, secret, strings.TrimPrefix(auth, "Bearer ")); msg != "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }
            return next(c)
        }
    }
}

// authenticate parses raw and fills the context.  It returns a client
// message when the token is unusable.
func authenticate(c echo.Context, secret, raw string) string {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Only HMAC-signed tokens are accepted.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return "invalid token"
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return "invalid claims"
    }
    uid, ok := subject(claims["sub"])
    if !ok {
        return "invalid subject"
    }
    role, _ := claims["role"].(string)
    c.Set(ctxUserID, uid)
    c.Set(ctxRole, role)
    return ""
}
