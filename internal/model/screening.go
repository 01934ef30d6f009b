package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Screening is a scheduled showing of a movie in a cinema.  Prices are
// read at finalize time and frozen into the reservation total, so later
// price edits never affect existing reservations.
//
// Fields:
//  ID            – primary key identifier.
//  MovieID       – movie being shown.
//  CinemaID      – cinema whose seat grid the screening uses.
//  StartTime     – scheduled start (UTC).
//  StandardPrice – price of a STANDARD seat.
//  DeluxePrice   – price of a DELUXE seat.
//  Active        – inactive screenings cannot be booked.
type Screening struct {
    ID            uint64          `json:"id"`             // screenings.id
    MovieID       uint64          `json:"movie_id"`       // screenings.movie_id
    CinemaID      uint64          `json:"cinema_id"`      // screenings.cinema_id
    StartTime     time.Time       `json:"start_time"`     // screenings.start_time
    StandardPrice decimal.Decimal `json:"standard_price"` // screenings.standard_price
    DeluxePrice   decimal.Decimal `json:"deluxe_price"`   // screenings.deluxe_price
    Active        bool            `json:"active"`         // screenings.active
}

// SeatPrice returns the price this screening charges for a seat class.
func (s Screening) SeatPrice(class SeatClass) decimal.Decimal {
    if class == SeatClassDeluxe {
        return s.DeluxePrice
    }
    return s.StandardPrice
}
