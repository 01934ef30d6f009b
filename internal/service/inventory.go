package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// SeatInventory is the only writer of seat rows.  Everything that reserves
// or frees a seat goes through it, standalone or inside a caller's
// transaction via the ...Tx methods.
type SeatInventory struct {
	db    *sql.DB
	seats *repository.SeatRepo
	log   *logrus.Logger
}

// NewSeatInventory wires a SeatInventory to an open database handle.
func NewSeatInventory(db *sql.DB, log *logrus.Logger) *SeatInventory {
	return &SeatInventory{db: db, seats: repository.NewSeatRepo(db), log: log}
}

// ListSeats returns every seat of a screening ordered by row then column.
func (s *SeatInventory) ListSeats(ctx context.Context, screeningID uint64) ([]model.Seat, error) {
	seats, err := s.seats.ListByScreening(ctx, screeningID)
	if err != nil {
		return nil, Integrity("list seats", err)
	}
	return seats, nil
}

// Seats looks up seats by id.  Unknown ids are absent from the result.
func (s *SeatInventory) Seats(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	seats, err := s.seats.ListByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, Integrity("load seats", err)
	}
	return seats, nil
}

// ReserveSeats marks every seat reserved or none of them.  A conflict
// carries the ids that could not be reserved.
func (s *SeatInventory) ReserveSeats(ctx context.Context, ids []uint64) error {
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.ReserveSeatsTx(ctx, tx, ids)
	})
	if err == nil {
		return nil
	}
	if HasCode(err, CodeSeatsNoLongerAvailable) {
		return s.describeConflict(ctx, ids, err)
	}
	if KindOf(err) == KindValidation {
		return err
	}
	return Integrity("reserve seats", err)
}

// ReserveSeatsTx is the all-or-nothing reservation step for callers that
// own a larger transaction.  On conflict the caller must roll back and may
// then ask UnavailableSeats which ids were taken.
func (s *SeatInventory) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return Validation(CodeInvalidInput, "at least one seat is required")
	}
	if err := s.seats.ReserveTx(ctx, tx, ids); err != nil {
		if errors.Is(err, repository.ErrSeatsUnavailable) {
			return seatsUnavailable(nil)
		}
		return err
	}
	return nil
}

// ReleaseSeats frees the given seats.  Already free seats are fine.
func (s *SeatInventory) ReleaseSeats(ctx context.Context, ids []uint64) error {
	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.ReleaseSeatsTx(ctx, tx, ids)
	})
	if err != nil {
		return Integrity("release seats", err)
	}
	return nil
}

// ReleaseSeatsTx frees seats inside the caller's transaction.
func (s *SeatInventory) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	return s.seats.ReleaseTx(ctx, tx, uniqueIDs(ids))
}

// UnavailableSeats returns the ids among ids that are reserved or do not
// exist, ascending.
func (s *SeatInventory) UnavailableSeats(ctx context.Context, ids []uint64) ([]uint64, error) {
	ids = uniqueIDs(ids)
	seats, err := s.seats.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	free := make(map[uint64]bool, len(seats))
	for _, seat := range seats {
		if !seat.Reserved {
			free[seat.ID] = true
		}
	}
	var out []uint64
	for _, id := range ids {
		if !free[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// GenerateSeatsTx builds the seat grid of a new screening from its
// cinema's layout.  The rearmost DeluxeRows rows are DELUXE.
func (s *SeatInventory) GenerateSeatsTx(ctx context.Context, tx *sql.Tx, screeningID uint64, cinema model.Cinema) (int, error) {
	if cinema.SeatRows <= 0 || cinema.SeatCols <= 0 {
		return 0, Validation(CodeInvalidInput, "cinema has no seats configured")
	}
	if cinema.DeluxeRows < 0 || cinema.DeluxeRows > cinema.SeatRows {
		return 0, Validation(CodeInvalidInput, "deluxe rows exceed cinema rows")
	}
	seats := make([]model.Seat, 0, cinema.SeatRows*cinema.SeatCols)
	for r := 0; r < cinema.SeatRows; r++ {
		class := model.SeatClassStandard
		if r >= cinema.SeatRows-cinema.DeluxeRows {
			class = model.SeatClassDeluxe
		}
		for c := 1; c <= cinema.SeatCols; c++ {
			seats = append(seats, model.Seat{
				ScreeningID: screeningID,
				Label:       utils.SeatLabel(r, c),
				RowNo:       r,
				ColNo:       c,
				Class:       class,
			})
		}
	}
	if err := s.seats.CreateBulkTx(ctx, tx, seats); err != nil {
		return 0, err
	}
	return len(seats), nil
}

// HasReservedSeatsTx reports whether any seat of the screening is reserved.
func (s *SeatInventory) HasReservedSeatsTx(ctx context.Context, tx *sql.Tx, screeningID uint64) (bool, error) {
	n, err := s.seats.CountReservedTx(ctx, tx, screeningID)
	return n > 0, err
}

// DeleteSeatsTx removes a screening's seat grid.
func (s *SeatInventory) DeleteSeatsTx(ctx context.Context, tx *sql.Tx, screeningID uint64) error {
	return s.seats.DeleteByScreeningTx(ctx, tx, screeningID)
}

// describeConflict fills in which seats were taken once the failed
// transaction is gone.
func (s *SeatInventory) describeConflict(ctx context.Context, ids []uint64, cause error) error {
	taken, err := s.UnavailableSeats(ctx, ids)
	if err != nil {
		s.log.WithError(err).Warn("seat inventory: could not list unavailable seats")
		return cause
	}
	return seatsUnavailable(taken)
}

func seatsUnavailable(ids []uint64) *Error {
	e := Conflict(CodeSeatsNoLongerAvailable, "some seats are no longer available")
	if ids != nil {
		e.WithDetail("unavailable_seat_ids", ids)
	}
	return e
}

// uniqueIDs drops zeros and duplicates and sorts ascending so that
// concurrent transactions touch rows in the same order.
func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
