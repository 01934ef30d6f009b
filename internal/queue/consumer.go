package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer reads fulfillment events and appends one audit line per event
// to <LogDir>/fulfillment.log.
type Consumer struct {
    URL    string
    Queue  string
    LogDir string
    Log    *logrus.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s; a
// message that cannot be handled is rejected without requeue so one bad
// payload cannot stall the queue.
func (c *Consumer) Run(ctx context.Context) error {
    if c.Queue == "" {
        c.Queue = DefaultQueue
    }
    if c.LogDir == "" {
        c.LogDir = "logs"
    }
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.WithError(err).Warnf("fulfillment-consumer: dial failed; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.WithError(err).Warn("fulfillment-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("fulfillment-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.HandleMessage(d.Body); err != nil {
                c.Log.WithError(err).Warn("fulfillment-consumer: handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one event and appends its audit line.
func (c *Consumer) HandleMessage(body []byte) error {
    var ev TicketsIssuedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ReservationID == 0 {
        return errors.New("event has no reservation id")
    }
    if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.LogDir, "fulfillment.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(auditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    c.Log.WithFields(logrus.Fields{
        "reservation_id": ev.ReservationID,
        "tickets":        len(ev.TicketCodes),
    }).Info("tickets fulfilled")
    return nil
}

func auditLine(ev TicketsIssuedEvent) string {
    who := fmt.Sprintf("user_id=%d", ev.UserID)
    if ev.PurchaserKind == "guest" {
        who = fmt.Sprintf("guest=%q <%s>", ev.GuestName, ev.GuestEmail)
    }
    return fmt.Sprintf("[%s] Tickets issued | reservation_id=%d | %s | screening_id=%d | starts_at=%s | total=%s | txn=%s | seats=[%s] | tickets=[%s]\n",
        ev.IssuedAt, ev.ReservationID, who, ev.ScreeningID, ev.StartsAt, ev.TotalAmount, ev.TransactionRef,
        strings.Join(ev.SeatLabels, ","), strings.Join(ev.TicketCodes, ","))
}
