package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
    "github.com/iliyamo/cinema-booking-engine/internal/database"
    "github.com/iliyamo/cinema-booking-engine/internal/handler"
    "github.com/iliyamo/cinema-booking-engine/internal/logger"
    "github.com/iliyamo/cinema-booking-engine/internal/middleware"
    "github.com/iliyamo/cinema-booking-engine/internal/queue"
    "github.com/iliyamo/cinema-booking-engine/internal/router"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
)

func main() {
    _ = godotenv.Load() // a missing .env is fine; the environment wins

    cfg := config.Load()
    log := logger.New(cfg.Env, cfg.LogLevel)
    eng, err := config.LoadEngine()
    if err != nil {
        log.WithError(err).Fatal("invalid engine config")
    }

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.WithError(err).Fatal("database connection failed")
    }
    defer db.Close()

    if cfg.AutoMigrate {
        applied, err := database.Migrate(context.Background(), db)
        if err != nil {
            log.WithError(err).Fatal("migration failed")
        }
        log.WithField("applied", applied).Info("migrations up to date")
    }

    // Redis backs sessions, the response cache and the rate limiter.
    // Without it the server still runs on in-memory sessions.
    rdb, err := config.NewRedisClient()
    if err != nil {
        log.WithError(err).Warn("redis unavailable; cache and rate limiting disabled")
        rdb = nil
    } else {
        defer rdb.Close()
    }
    sessions := sessionStore(eng, rdb, log)

    var publisher service.FulfillmentPublisher
    if eng.FulfillmentEnabled {
        publisher = queue.NewPublisher(eng.RabbitMQURL, eng.FulfillmentQueue, log)
    }

    catalog := service.NewSQLCatalog(db)
    inventory := service.NewSeatInventory(db, log)
    promos := service.NewPromoLedger(db, log)
    payments := service.NewPaymentService(db, catalog, inventory,
        service.SimulatedGateway{DeclineAbove: eng.PaymentDeclineAbove}, publisher, log)
    cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
    workflow := service.NewWorkflow(db, catalog, inventory, promos, payments, sessions, log,
        service.WorkflowConfig{
            GuestTokenCost: eng.GuestTokenCost,
            SeatsChanged: func(ctx context.Context, screeningID uint64) {
                if err := cache.InvalidateScreening(ctx, screeningID); err != nil {
                    log.WithError(err).WithField("screening_id", screeningID).Warn("seat map cache not invalidated")
                }
            },
        })
    admin := service.NewScreeningAdmin(db, inventory, log)

    e := echo.New()
    e.HideBanner = true
    e.Validator = handler.NewValidator()
    e.Use(echomw.RequestID())
    e.Use(middleware.RequestLogger(log))
    e.Use(echomw.Recover())

    router.Register(e, db, router.Handlers{
        Catalog:     handler.NewCatalogHandler(catalog, inventory, log),
        Booking:     handler.NewBookingHandler(workflow, log),
        Reservation: handler.NewReservationHandler(workflow, payments, log),
        Admin:       handler.NewAdminHandler(admin, promos, log),
    }, router.Options{
        JWTSecret: cfg.JWTSecret,
        Redis:     rdb,
        Cache:     cache,
        RateLimit: config.LoadRateLimitConfig(),
    })

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    addr := ":" + cfg.Port
    go func() {
        log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "sessions": eng.SessionStore}).Info("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.WithError(err).Fatal("server failed")
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.WithError(err).Error("shutdown failed")
    }
    log.Info("server stopped")
}

// sessionStore picks the configured store, falling back to memory when
// Redis was requested but is unavailable.
func sessionStore(eng config.EngineConfig, rdb *redis.Client, log *logrus.Logger) service.SessionStore {
    if eng.SessionStore == "redis" && rdb != nil {
        return service.NewRedisSessionStore(rdb, eng.SessionPrefix, eng.SessionTTL)
    }
    if eng.SessionStore == "redis" {
        log.Warn("falling back to in-memory sessions")
    }
    return service.NewMemorySessionStore(eng.SessionTTL)
}
