package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
    "github.com/iliyamo/cinema-booking-engine/internal/logger"
    "github.com/iliyamo/cinema-booking-engine/internal/queue"
)

// fulfillment consumes tickets.issued events and writes the audit log.
func main() {
    _ = godotenv.Load()

    log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
    eng, err := config.LoadEngine()
    if err != nil {
        log.WithError(err).Fatal("invalid engine config")
    }
    if err := os.MkdirAll(eng.FulfillmentLogDir, 0o755); err != nil {
        log.WithError(err).Fatal("cannot create log dir")
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    c := &queue.Consumer{
        URL:    eng.RabbitMQURL,
        Queue:  eng.FulfillmentQueue,
        LogDir: eng.FulfillmentLogDir,
        Log:    log,
    }
    log.WithField("queue", eng.FulfillmentQueue).Info("fulfillment consumer starting")
    if err := c.Run(ctx); err != nil && ctx.Err() == nil {
        log.WithError(err).Fatal("consumer stopped")
    }
    log.Info("fulfillment consumer stopped")
}
