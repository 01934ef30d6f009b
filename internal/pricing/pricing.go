// Package pricing computes reservation totals.  Everything here is pure:
// no I/O, no clocks, and no rounding until a caller asks for a rounded
// view.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// TaxRate is the flat tax applied to the discounted pre-tax amount.
var TaxRate = decimal.RequireFromString("0.12")

// Item is a concession with the quantity being bought.
type Item struct {
	Concession model.Concession
	Quantity   int
}

// Total is the breakdown of a priced selection.  Values carry full
// precision; use Rounded for display or persistence.
type Total struct {
	SeatSubtotal       decimal.Decimal `json:"seat_subtotal"`
	ConcessionSubtotal decimal.Decimal `json:"concession_subtotal"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Discount           decimal.Decimal `json:"discount"`
	PreTax             decimal.Decimal `json:"pre_tax"`
	Tax                decimal.Decimal `json:"tax"`
	Grand              decimal.Decimal `json:"grand_total"`
}

// Price totals seats and concessions for a screening and applies promo
// when it is non-nil.  The discount is computed against the pre-tax
// subtotal and the result is floored at zero before tax.
func Price(screening model.Screening, seats []model.Seat, items []Item, promo *model.PromoCode) Total {
	var t Total
	for _, s := range seats {
		t.SeatSubtotal = t.SeatSubtotal.Add(screening.SeatPrice(s.Class))
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		t.ConcessionSubtotal = t.ConcessionSubtotal.Add(it.Concession.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	t.Subtotal = t.SeatSubtotal.Add(t.ConcessionSubtotal)
	t.Discount = promo.Discount(t.Subtotal)
	t.PreTax = t.Subtotal.Sub(t.Discount)
	if t.PreTax.IsNegative() {
		t.PreTax = decimal.Zero
	}
	t.Tax = t.PreTax.Mul(TaxRate)
	t.Grand = t.PreTax.Add(t.Tax)
	return t
}

// Rounded returns a copy with every component rounded to two places.
func (t Total) Rounded() Total {
	return Total{
		SeatSubtotal:       Money(t.SeatSubtotal),
		ConcessionSubtotal: Money(t.ConcessionSubtotal),
		Subtotal:           Money(t.Subtotal),
		Discount:           Money(t.Discount),
		PreTax:             Money(t.PreTax),
		Tax:                Money(t.Tax),
		Grand:              Money(t.Grand),
	}
}

// Money rounds d half away from zero to two decimal places.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
