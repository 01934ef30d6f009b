package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/storetest"
)

func TestReserveTxIsConditional(t *testing.T) {
	db := storetest.Open(t)
	f := storetest.SeedScreening(t, db, time.Now().Add(time.Hour), 1, 3, 0)
	repo := NewSeatRepo(db)
	ctx := context.Background()
	a, b, c := f.Seats[0].ID, f.Seats[1].ID, f.Seats[2].ID

	if err := WithTx(ctx, db, func(tx *sql.Tx) error { return repo.ReserveTx(ctx, tx, []uint64{a}) }); err != nil {
		t.Fatalf("reserve a: %v", err)
	}
	err := WithTx(ctx, db, func(tx *sql.Tx) error { return repo.ReserveTx(ctx, tx, []uint64{a, b, c}) })
	if !errors.Is(err, ErrSeatsUnavailable) {
		t.Fatalf("err = %v, want ErrSeatsUnavailable", err)
	}
	seats, err := repo.ListByIDs(ctx, []uint64{a, b, c})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	for _, s := range seats {
		if s.Reserved != (s.ID == a) {
			t.Fatalf("seat %s reserved = %v after rolled back attempt", s.Label, s.Reserved)
		}
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cinemas (name, seat_rows, seat_cols) VALUES ('X', 1, 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := storetest.Count(t, db, "cinemas"); n != 0 {
		t.Fatalf("cinemas = %d, want 0 after rollback", n)
	}
}

func TestIsDuplicate(t *testing.T) {
	db := storetest.Open(t)
	ctx := context.Background()
	repo := NewCinemaRepo(db)
	if err := repo.Create(ctx, &model.Cinema{Name: "Main", SeatRows: 1, SeatCols: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &model.Cinema{Name: "Main", SeatRows: 1, SeatCols: 1})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if IsDuplicate(nil) || IsDuplicate(errors.New("syntax error")) {
		t.Fatalf("IsDuplicate matched a non-duplicate")
	}
}
