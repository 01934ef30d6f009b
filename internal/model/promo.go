package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// DiscountType selects how a promo code's DiscountAmount is applied.
type DiscountType string

const (
    DiscountPercentage DiscountType = "PERCENTAGE"
    DiscountFixed      DiscountType = "FIXED"
)

// PromoCode is a discount code with a validity window and an optional
// usage cap.
//
// Fields:
//  ID                – primary key identifier.
//  Code              – unique code string entered by the customer.
//  Description       – free text shown to staff.
//  DiscountType      – PERCENTAGE or FIXED.
//  DiscountAmount    – percent in (0, 100] or a flat amount.
//  ValidFrom         – first calendar day the code is usable (inclusive).
//  ValidUntil        – last calendar day the code is usable (inclusive).
//  MaxUses           – nil means unlimited.
//  CurrentUses       – successful redemptions so far.
//  MinPurchaseAmount – minimum pre-discount subtotal.
//  Active            – inactive codes are always rejected.
type PromoCode struct {
    ID                uint64          `json:"id"`
    Code              string          `json:"code"`
    Description       string          `json:"description"`
    DiscountType      DiscountType    `json:"discount_type"`
    DiscountAmount    decimal.Decimal `json:"discount_amount"`
    ValidFrom         time.Time       `json:"valid_from"`
    ValidUntil        time.Time       `json:"valid_until"`
    MaxUses           *int            `json:"max_uses,omitempty"`
    CurrentUses       int             `json:"current_uses"`
    MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
    Active            bool            `json:"active"`
}

var hundred = decimal.NewFromInt(100)

// Discount returns how much the code takes off amount.  The result is
// never negative and never larger than amount.
func (p *PromoCode) Discount(amount decimal.Decimal) decimal.Decimal {
    if p == nil || !amount.IsPositive() {
        return decimal.Zero
    }
    var d decimal.Decimal
    switch p.DiscountType {
    case DiscountPercentage:
        d = amount.Mul(p.DiscountAmount).Div(hundred)
    case DiscountFixed:
        d = p.DiscountAmount
    default:
        return decimal.Zero
    }
    if d.IsNegative() {
        return decimal.Zero
    }
    if d.GreaterThan(amount) {
        return amount
    }
    return d
}

// UsesExhausted reports whether the usage cap has been reached.
func (p *PromoCode) UsesExhausted() bool {
    return p.MaxUses != nil && p.CurrentUses >= *p.MaxUses
}

// Day truncates t to its UTC calendar date.  Promo validity windows are
// compared on whole days.
func Day(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
