package model

import "time"

// Ticket admits one person to one seat.  Code is printed on the ticket
// and checked at the door.
type Ticket struct {
    ID            uint64    `json:"id"`
    ReservationID uint64    `json:"reservation_id"`
    SeatID        uint64    `json:"seat_id"`
    Code          string    `json:"code"`
    Used          bool      `json:"used"`
    IssuedAt      time.Time `json:"issued_at"`
}
