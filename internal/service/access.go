package service

import (
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// Actor is whoever is asking to see or act on a reservation.
type Actor struct {
	UserID uint64 // from the customer's JWT; zero for guests
	Admin  bool
	Token  string // guest reservation access token
}

// Authorize checks that a may act on res.  Customers own the reservations
// booked under their user id; guests prove ownership with the access
// token handed out at finalize.  A refusal looks exactly like a missing
// reservation.
func Authorize(res *model.Reservation, a Actor) error {
	if a.Admin {
		return nil
	}
	switch p := res.Purchaser.(type) {
	case model.RegisteredUser:
		if a.UserID != 0 && a.UserID == p.UserID {
			return nil
		}
	case model.Guest:
		if utils.VerifySecret(res.AccessTokenHash, a.Token) {
			return nil
		}
	}
	return NotFound("reservation not found")
}
