package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

var d = decimal.RequireFromString

func screening() model.Screening {
	return model.Screening{ID: 1, StandardPrice: d("180"), DeluxePrice: d("280"), Active: true}
}

func seats(classes ...model.SeatClass) []model.Seat {
	out := make([]model.Seat, len(classes))
	for i, c := range classes {
		out[i] = model.Seat{ID: uint64(i + 1), Class: c}
	}
	return out
}

func TestPriceWithPercentagePromo(t *testing.T) {
	popcorn := model.Concession{ID: 1, Name: "Popcorn", Price: d("120"), Available: true}
	promo := &model.PromoCode{DiscountType: model.DiscountPercentage, DiscountAmount: d("10")}

	got := Price(screening(),
		seats(model.SeatClassStandard, model.SeatClassStandard, model.SeatClassDeluxe),
		[]Item{{Concession: popcorn, Quantity: 2}},
		promo,
	)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"seat subtotal", got.SeatSubtotal, "640"},
		{"concession subtotal", got.ConcessionSubtotal, "240"},
		{"subtotal", got.Subtotal, "880"},
		{"discount", got.Discount, "88"},
		{"pre-tax", got.PreTax, "792"},
		{"tax", got.Tax, "95.04"},
		{"grand", got.Grand, "887.04"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	items := []Item{{Concession: model.Concession{Price: d("75.50")}, Quantity: 3}}
	a := Price(screening(), seats(model.SeatClassDeluxe), items, nil)
	b := Price(screening(), seats(model.SeatClassDeluxe), items, nil)
	if !a.Grand.Equal(b.Grand) {
		t.Fatalf("same inputs priced differently: %s vs %s", a.Grand, b.Grand)
	}
}

func TestPriceFixedPromoFloorsAtZero(t *testing.T) {
	promo := &model.PromoCode{DiscountType: model.DiscountFixed, DiscountAmount: d("1000")}
	got := Price(screening(), seats(model.SeatClassStandard), nil, promo)
	if !got.Discount.Equal(d("180")) {
		t.Fatalf("discount = %s, want 180", got.Discount)
	}
	if !got.PreTax.IsZero() || !got.Tax.IsZero() || !got.Grand.IsZero() {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestPriceSkipsNonPositiveQuantities(t *testing.T) {
	soda := model.Concession{Price: d("60")}
	got := Price(screening(), nil, []Item{{Concession: soda, Quantity: 0}, {Concession: soda, Quantity: -2}}, nil)
	if !got.ConcessionSubtotal.IsZero() {
		t.Fatalf("concession subtotal = %s, want 0", got.ConcessionSubtotal)
	}
}

func TestRoundingHappensOnlyInRounded(t *testing.T) {
	// 3 x 33.335 = 100.005; rounding each line first would give 100.02.
	item := model.Concession{Price: d("33.335")}
	got := Price(screening(), nil, []Item{{Concession: item, Quantity: 3}}, nil)
	if !got.Subtotal.Equal(d("100.005")) {
		t.Fatalf("subtotal = %s, want unrounded 100.005", got.Subtotal)
	}
	r := got.Rounded()
	if !r.Subtotal.Equal(d("100.01")) {
		t.Fatalf("rounded subtotal = %s, want 100.01", r.Subtotal)
	}
	// 100.005 * 1.12 = 112.0056
	if !r.Grand.Equal(d("112.01")) {
		t.Fatalf("rounded grand = %s, want 112.01", r.Grand)
	}
}
