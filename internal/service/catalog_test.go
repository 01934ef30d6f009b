package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/storetest"
)

func TestScreeningAdminLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := NewScreeningAdmin(h.db, h.inventory, quietLogger())

	cinema := &model.Cinema{Name: "Hall 7", SeatRows: 3, SeatCols: 4, DeluxeRows: 1}
	if err := repository.NewCinemaRepo(h.db).Create(ctx, cinema); err != nil {
		t.Fatalf("create cinema: %v", err)
	}
	in := NewScreening{
		MovieID:       1,
		CinemaID:      cinema.ID,
		StartTime:     testNow.Add(24 * time.Hour),
		StandardPrice: decimal.NewFromInt(150),
		DeluxePrice:   decimal.NewFromInt(250),
	}

	bad := in
	bad.CinemaID = 999
	_, _, err := admin.Create(ctx, bad)
	wantCode(t, err, CodeNotFound)
	bad = in
	bad.DeluxePrice = decimal.Zero
	_, _, err = admin.Create(ctx, bad)
	wantCode(t, err, CodeInvalidInput)

	s, n, err := admin.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n != 12 {
		t.Fatalf("seat count = %d, want 12", n)
	}
	seats, err := h.inventory.ListSeats(ctx, s.ID)
	if err != nil {
		t.Fatalf("ListSeats: %v", err)
	}
	deluxe := 0
	for _, seat := range seats {
		if seat.Class == model.SeatClassDeluxe {
			deluxe++
			if seat.Label[0] != 'C' {
				t.Fatalf("deluxe seat %s is not in the rear row", seat.Label)
			}
		}
	}
	if deluxe != 4 {
		t.Fatalf("deluxe seats = %d, want 4", deluxe)
	}

	if err := h.inventory.ReserveSeats(ctx, []uint64{seats[0].ID}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	wantCode(t, admin.Delete(ctx, s.ID), CodeScreeningHasReservations)
	if err := h.inventory.ReleaseSeats(ctx, []uint64{seats[0].ID}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := admin.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.catalog.Screening(ctx, s.ID); KindOf(err) != KindNotFound {
		t.Fatalf("screening still there: %v", err)
	}
	wantCode(t, admin.Delete(ctx, s.ID), CodeNotFound)
	if n := storetest.Count(t, h.db, "seats"); n != 20 {
		t.Fatalf("seats = %d, want only the fixture's 20", n)
	}
}

func TestCatalogListsUpcomingAndAvailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	storetest.SeedScreening(t, h.db, testNow.Add(-time.Hour), 1, 1, 0)
	storetest.SeedConcession(t, h.db, "Nachos", "120")
	gone := storetest.SeedConcession(t, h.db, "Hotdog", "80")
	if _, err := h.db.Exec(`UPDATE concessions SET available = 0 WHERE id = ?`, gone.ID); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := h.catalog.UpcomingScreenings(ctx, testNow)
	if err != nil {
		t.Fatalf("UpcomingScreenings: %v", err)
	}
	if len(list) != 1 || list[0].ID != h.fixture.Screening.ID {
		t.Fatalf("upcoming = %+v", list)
	}
	items, err := h.catalog.AvailableConcessions(ctx)
	if err != nil {
		t.Fatalf("AvailableConcessions: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Nachos" {
		t.Fatalf("available = %+v", items)
	}
}
