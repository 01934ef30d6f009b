package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PaymentMethod is how the customer settled the reservation.
type PaymentMethod string

const (
    PaymentCash    PaymentMethod = "CASH"
    PaymentCard    PaymentMethod = "CARD"
    PaymentEWallet PaymentMethod = "E_WALLET"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
    switch m {
    case PaymentCash, PaymentCard, PaymentEWallet:
        return true
    }
    return false
}

// Payment is an attempt to settle a reservation.  Failed attempts are
// kept too; only a successful one flips the reservation's paid flag.
type Payment struct {
    ID             uint64          `json:"id"`              // payments.id
    ReservationID  uint64          `json:"reservation_id"`  // payments.reservation_id
    Amount         decimal.Decimal `json:"amount"`          // payments.amount
    Method         PaymentMethod   `json:"method"`          // payments.method
    TransactionRef string          `json:"transaction_ref"` // payments.transaction_reference
    PaidAt         time.Time       `json:"paid_at"`         // payments.paid_at
    Successful     bool            `json:"successful"`      // payments.successful
}
