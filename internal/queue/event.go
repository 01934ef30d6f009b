// Package queue defines the fulfillment messages exchanged over RabbitMQ
// and the publisher and consumer that carry them.
package queue

// TicketsIssuedEvent is published once a paid reservation has its tickets.
// It carries enough for the fulfillment side (delivery, audit) to work
// without querying the booking database.
type TicketsIssuedEvent struct {
    ReservationID  uint64   `json:"reservation_id"`
    ScreeningID    uint64   `json:"screening_id"`
    StartsAt       string   `json:"starts_at"`
    PurchaserKind  string   `json:"purchaser_kind"` // "registered" or "guest"
    UserID         uint64   `json:"user_id,omitempty"`
    GuestName      string   `json:"guest_name,omitempty"`
    GuestEmail     string   `json:"guest_email,omitempty"`
    SeatLabels     []string `json:"seats"`
    TicketCodes    []string `json:"ticket_codes"`
    TotalAmount    string   `json:"total_amount"`
    TransactionRef string   `json:"transaction_ref"`
    IssuedAt       string   `json:"issued_at"`
}
