package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// DefaultQueue is the durable queue fulfillment events are routed to.
const DefaultQueue = "tickets.issued"

// Publisher sends fulfillment events to RabbitMQ.  It dials per publish:
// events are rare (one per paid reservation) and a broker outage must
// never affect the booking itself.
type Publisher struct {
    url   string
    queue string
    log   *logrus.Logger
}

// NewPublisher returns a Publisher for the broker at url.  An empty queue
// name means DefaultQueue.
func NewPublisher(url, queue string, log *logrus.Logger) *Publisher {
    if queue == "" {
        queue = DefaultQueue
    }
    return &Publisher{url: url, queue: queue, log: log}
}

// PublishTicketsIssued publishes ev as a persistent JSON message.  Errors
// are logged and returned so the caller can decide to ignore them.
func (p *Publisher) PublishTicketsIssued(ctx context.Context, ev TicketsIssuedEvent) error {
    entry := p.log.WithFields(logrus.Fields{"queue": p.queue, "reservation_id": ev.ReservationID})
    conn, err := amqp.Dial(p.url)
    if err != nil {
        entry.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        entry.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        entry.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        MessageId:    ev.TransactionRef,
        Body:         body,
    }
    // Default exchange, routing key = queue name.
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        entry.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    entry.Debug("tickets issued event published")
    return nil
}
