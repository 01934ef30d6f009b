package model

import (
    "encoding/json"
    "time"

    "github.com/shopspring/decimal"
)

// Reservation is a finalized booking.  It only exists once finalize has
// reserved its seats; the seat set stored in reservation_seats is exactly
// the set of seats flipped to reserved on its behalf.
//
// Fields:
//  ID             – primary key identifier.
//  Purchaser      – RegisteredUser or Guest.
//  ScreeningID    – screening being booked.
//  SeatIDs        – reserved seats.
//  Concessions    – attached concession lines (quantity >= 1).
//  PromoCodeID    – redeemed promo, if any.
//  DiscountAmount – discount taken off the pre-tax subtotal.
//  TotalAmount    – grand total frozen at finalize time.
//  Paid           – flipped by a successful payment.
//  CreatedAt      – creation timestamp.
type Reservation struct {
    ID             uint64           // reservations.id
    Purchaser      Purchaser        // reservations.user_id | guest_*
    ScreeningID    uint64           // reservations.screening_id
    SeatIDs        []uint64         // reservation_seats.seat_id
    Concessions    []ConcessionLine // reservation_concessions
    PromoCodeID    *uint64          // reservations.promo_code_id
    DiscountAmount decimal.Decimal  // reservations.discount_amount
    TotalAmount    decimal.Decimal  // reservations.total_amount
    Paid           bool             // reservations.paid
    CreatedAt      time.Time        // reservations.created_at

    // AccessTokenHash is the bcrypt hash of the guest access token.  Never
    // serialised.
    AccessTokenHash string
}

// MarshalJSON renders the purchaser with its kind tag and hides the
// access token hash.
func (r Reservation) MarshalJSON() ([]byte, error) {
    p, err := MarshalPurchaser(r.Purchaser)
    if err != nil {
        return nil, err
    }
    return json.Marshal(struct {
        ID             uint64           `json:"id"`
        Purchaser      json.RawMessage  `json:"purchaser"`
        ScreeningID    uint64           `json:"screening_id"`
        SeatIDs        []uint64         `json:"seat_ids"`
        Concessions    []ConcessionLine `json:"concessions"`
        PromoCodeID    *uint64          `json:"promo_code_id,omitempty"`
        DiscountAmount string           `json:"discount_amount"`
        TotalAmount    string           `json:"total_amount"`
        Paid           bool             `json:"paid"`
        CreatedAt      time.Time        `json:"created_at"`
    }{
        ID:             r.ID,
        Purchaser:      p,
        ScreeningID:    r.ScreeningID,
        SeatIDs:        r.SeatIDs,
        Concessions:    r.Concessions,
        PromoCodeID:    r.PromoCodeID,
        DiscountAmount: r.DiscountAmount.StringFixed(2),
        TotalAmount:    r.TotalAmount.StringFixed(2),
        Paid:           r.Paid,
        CreatedAt:      r.CreatedAt,
    })
}
