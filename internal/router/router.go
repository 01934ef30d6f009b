package router

import (
    "database/sql"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
    "github.com/iliyamo/cinema-booking-engine/internal/handler"
    "github.com/iliyamo/cinema-booking-engine/internal/middleware"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
    Catalog     *handler.CatalogHandler
    Booking     *handler.BookingHandler
    Reservation *handler.ReservationHandler
    Admin       *handler.AdminHandler
}

// Options carries the cross-cutting settings the routes are registered
// with.  A nil Redis client turns rate limiting into a no-op and a nil
// Cache serves every catalog read fresh.
type Options struct {
    JWTSecret string
    Redis     *redis.Client
    Cache     *middleware.ResponseCache
    RateLimit config.RateLimitConfig
}

// RegisterRoutes registers the probes, which need no authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
    e.GET("/healthz", handler.Health)
    e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers the catalog reads.  They are anonymous and
// served through the Redis response cache.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, opt Options) {
    g := e.Group("/v1", opt.Cache.Middleware())
    g.GET("/screenings", h.ListScreenings)
    g.GET("/screenings/:id", h.GetScreening)
    g.GET("/screenings/:id/seats", h.ListSeats)
    g.GET("/concessions", h.ListConcessions)
}

// RegisterBooking registers the session and reservation routes.  A bearer
// token is optional so guests can book; when present it must be valid.
// Routes that hold seats or move money draw from the tighter write bucket.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, r *handler.ReservationHandler, opt Options) {
    write := middleware.NewTokenBucket(opt.RateLimit.Write(), opt.Redis)
    g := e.Group("/v1",
        middleware.OptionalJWT(opt.JWTSecret),
        middleware.NewTokenBucket(opt.RateLimit, opt.Redis),
    )

    g.POST("/sessions", b.StartSession)
    g.GET("/sessions/:sid", b.GetSession)
    g.PUT("/sessions/:sid/seats", b.SelectSeats, write)
    g.PUT("/sessions/:sid/concessions", b.SelectConcessions)
    g.POST("/sessions/:sid/finalize", b.Finalize, write)
    g.DELETE("/sessions/:sid", b.CancelSession)

    g.GET("/reservations/:id", r.GetReservation)
    g.POST("/reservations/:id/payments", r.Pay, write)
    g.POST("/reservations/:id/tickets", r.IssueTickets)
    g.DELETE("/reservations/:id", r.CancelReservation)
}

// RegisterAdmin registers catalog management routes.  All require a valid
// JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, opt Options) {
    g := e.Group("/v1/admin",
        middleware.JWTAuth(opt.JWTSecret),
        middleware.RequireRole(middleware.RoleAdmin),
    )
    g.POST("/screenings", a.CreateScreening)
    g.DELETE("/screenings/:id", a.DeleteScreening)
    g.POST("/promo-codes", a.CreatePromoCode)
}

// Register wires every route group.
func Register(e *echo.Echo, db *sql.DB, h Handlers, opt Options) {
    RegisterRoutes(e, db)
    RegisterPublic(e, h.Catalog, opt)
    RegisterBooking(e, h.Booking, h.Reservation, opt)
    RegisterAdmin(e, h.Admin, opt)
}
