package model

import "github.com/shopspring/decimal"

// Concession is a purchasable item such as popcorn or a drink.
type Concession struct {
    ID        uint64          `json:"id"`
    Name      string          `json:"name"`
    Price     decimal.Decimal `json:"price"`
    Category  string          `json:"category"`
    Available bool            `json:"available"`
}

// ConcessionLine is a concession attached to a reservation.  Quantity is
// at least one for every persisted line.
type ConcessionLine struct {
    ConcessionID uint64 `json:"concession_id"`
    Quantity     int    `json:"quantity"`
}
