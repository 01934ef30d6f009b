package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

func TestPromoValidateRejectionOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.promo("OPEN", "PERCENTAGE", "10", nil, "0")
	h.promo("USEDUP", "FIXED", "50", intPtr(1), "0")
	h.promo("BIGSPEND", "FIXED", "50", nil, "1000")
	h.promo("OFF", "FIXED", "50", nil, "0")
	h.promo("CAPPED", "FIXED", "20", intPtr(5), "0")
	if _, err := h.promos.Redeem(ctx, "USEDUP", decimal.NewFromInt(100), testNow); err != nil {
		t.Fatalf("redeem USEDUP: %v", err)
	}
	if _, err := h.promos.Redeem(ctx, "CAPPED", decimal.NewFromInt(100), testNow); err != nil {
		t.Fatalf("redeem CAPPED: %v", err)
	}
	if _, err := h.db.Exec(`UPDATE promo_codes SET active = 0 WHERE code = 'OFF'`); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	tests := []struct {
		name   string
		code   string
		amount int64
		asOf   time.Time
		want   Rejection
	}{
		{"unknown", "NOPE", 500, testNow, RejectNotFound},
		{"inactive wins over expired", "OFF", 500, testNow.AddDate(1, 0, 0), RejectInactive},
		{"not yet valid", "OPEN", 500, testNow.AddDate(0, 0, -2), RejectNotYetValid},
		{"expired", "OPEN", 500, testNow.AddDate(0, 0, 31), RejectExpired},
		{"expired with uses left", "CAPPED", 500, testNow.AddDate(0, 0, 31), RejectExpired},
		{"max uses", "USEDUP", 500, testNow, RejectMaxUsesReached},
		{"below minimum", "BIGSPEND", 999, testNow, RejectBelowMinimumPurchase},
		{"expired wins over minimum", "BIGSPEND", 1, testNow.AddDate(0, 0, 31), RejectExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.promos.Validate(ctx, tt.code, decimal.NewFromInt(tt.amount), tt.asOf)
			wantCode(t, err, CodePromoCodeRejected)
			if got, _ := RejectionReason(err); got != tt.want {
				t.Fatalf("reason = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPromoValidateBoundaryDaysAndCase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.promo("Summer10", "PERCENTAGE", "10", nil, "1000")

	lastDay := time.Date(2030, 7, 1, 23, 59, 0, 0, time.UTC)
	for _, asOf := range []time.Time{testNow.AddDate(0, 0, -1), lastDay} {
		p, err := h.promos.Validate(ctx, " summer10 ", decimal.NewFromInt(1000), asOf)
		if err != nil {
			t.Fatalf("Validate on %s: %v", asOf, err)
		}
		if p.Code != "SUMMER10" {
			t.Fatalf("code = %q, want SUMMER10", p.Code)
		}
	}
	var uses int
	if err := h.db.QueryRow(`SELECT current_uses FROM promo_codes WHERE code = 'SUMMER10'`).Scan(&uses); err != nil {
		t.Fatalf("read uses: %v", err)
	}
	if uses != 0 {
		t.Fatalf("Validate consumed %d uses", uses)
	}
}

// TestPromoRedeemSerializedLastUse races redemptions of a single-use code
// over the single SQLite connection; the MySQL variant interleaves real
// transactions.
func TestPromoRedeemSerializedLastUse(t *testing.T) {
	checkLastUseRedeemedOnce(t, newHarness(t), 6)
}

func checkLastUseRedeemedOnce(t *testing.T, h *harness, workers int) {
	t.Helper()
	h.promo("ONCE", "FIXED", "25", intPtr(1), "0")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.promos.Redeem(context.Background(), "ONCE", decimal.NewFromInt(100), testNow)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			if reason, _ := RejectionReason(err); reason != RejectMaxUsesReached {
				t.Errorf("unexpected error: %v", err)
			}
			rejected++
		}()
	}
	wg.Wait()
	if wins != 1 || rejected != workers-1 {
		t.Fatalf("wins = %d rejected = %d", wins, rejected)
	}
	p, err := h.promos.Get(context.Background(), "once")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.CurrentUses != 1 {
		t.Fatalf("current_uses = %d, want 1", p.CurrentUses)
	}
}

func TestPromoCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := func() NewPromoCode {
		return NewPromoCode{
			Code:           "VALID",
			DiscountType:   model.DiscountPercentage,
			DiscountAmount: decimal.NewFromInt(15),
			ValidFrom:      testNow,
			ValidUntil:     testNow.AddDate(0, 1, 0),
		}
	}
	tests := []struct {
		name   string
		mutate func(*NewPromoCode)
	}{
		{"missing code", func(p *NewPromoCode) { p.Code = "  " }},
		{"space in code", func(p *NewPromoCode) { p.Code = "TWO WORDS" }},
		{"bad type", func(p *NewPromoCode) { p.DiscountType = "BOGO" }},
		{"percentage over 100", func(p *NewPromoCode) { p.DiscountAmount = decimal.NewFromInt(101) }},
		{"zero percentage", func(p *NewPromoCode) { p.DiscountAmount = decimal.Zero }},
		{"negative fixed", func(p *NewPromoCode) {
			p.DiscountType = model.DiscountFixed
			p.DiscountAmount = decimal.NewFromInt(-5)
		}},
		{"window reversed", func(p *NewPromoCode) { p.ValidUntil = testNow.AddDate(0, 0, -1) }},
		{"zero max uses", func(p *NewPromoCode) { p.MaxUses = intPtr(0) }},
		{"negative minimum", func(p *NewPromoCode) { p.MinPurchaseAmount = decimal.NewFromInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := h.promos.Create(ctx, in)
			e := wantCode(t, err, CodeInvalidInput)
			if e.Kind != KindValidation {
				t.Fatalf("kind = %s", e.Kind)
			}
		})
	}

	if _, err := h.promos.Create(ctx, base()); err != nil {
		t.Fatalf("create valid promo: %v", err)
	}
	dup := base()
	dup.Code = "valid"
	_, err := h.promos.Create(ctx, dup)
	wantCode(t, err, CodeDuplicate)
}
