package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPromoCodeDiscount(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name   string
		promo  *PromoCode
		amount string
		want   string
	}{
		{"nil promo", nil, "100", "0"},
		{"percentage", &PromoCode{DiscountType: DiscountPercentage, DiscountAmount: d("10")}, "880", "88"},
		{"full percentage", &PromoCode{DiscountType: DiscountPercentage, DiscountAmount: d("100")}, "250.50", "250.50"},
		{"fixed below amount", &PromoCode{DiscountType: DiscountFixed, DiscountAmount: d("50")}, "120", "50"},
		{"fixed floored at amount", &PromoCode{DiscountType: DiscountFixed, DiscountAmount: d("500")}, "120", "120"},
		{"zero amount", &PromoCode{DiscountType: DiscountFixed, DiscountAmount: d("50")}, "0", "0"},
		{"unknown type", &PromoCode{DiscountType: "BOGUS", DiscountAmount: d("50")}, "120", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.promo.Discount(d(tc.amount))
			if !got.Equal(d(tc.want)) {
				t.Fatalf("Discount(%s) = %s, want %s", tc.amount, got, tc.want)
			}
		})
	}
}

func TestPromoCodeUsesExhausted(t *testing.T) {
	two := 2
	p := &PromoCode{MaxUses: &two, CurrentUses: 1}
	if p.UsesExhausted() {
		t.Fatal("1 of 2 uses should not be exhausted")
	}
	p.CurrentUses = 2
	if !p.UsesExhausted() {
		t.Fatal("2 of 2 uses should be exhausted")
	}
	unlimited := &PromoCode{CurrentUses: 1000}
	if unlimited.UsesExhausted() {
		t.Fatal("unlimited code reported exhausted")
	}
}

func TestDayTruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	in := time.Date(2026, 3, 2, 5, 30, 0, 0, loc) // 2026-03-01 21:30 UTC
	got := Day(in)
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Day() = %v, want %v", got, want)
	}
}

func TestPurchaserEncoding(t *testing.T) {
	for _, p := range []Purchaser{
		RegisteredUser{UserID: 42},
		Guest{Name: "Ana", Email: "ana@example.com", Phone: "+63 900 000 0000"},
	} {
		b, err := MarshalPurchaser(p)
		if err != nil {
			t.Fatalf("marshal %T: %v", p, err)
		}
		got, err := UnmarshalPurchaser(b)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != p {
			t.Fatalf("decoded %#v, want %#v", got, p)
		}
	}
	if _, err := UnmarshalPurchaser([]byte(`{"kind":"robot"}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
