package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ErrSeatsUnavailable is returned by ReserveTx when at least one of the
// requested seats is already reserved or does not exist.  Nothing has been
// written when it is returned, but the caller must still roll back.
var ErrSeatsUnavailable = errors.New("seats unavailable")

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *SeatRepo) DB() *sql.DB { return r.db }

const seatColumns = `id, screening_id, label, row_no, col_no, class, reserved`

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScreeningID, &s.Label, &s.RowNo, &s.ColNo, &s.Class, &s.Reserved); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBulkTx inserts the seat grid of a screening in a single statement.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (screening_id, label, row_no, col_no, class, reserved) VALUES `
	args := make([]any, 0, len(seats)*6)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, s.ScreeningID, s.Label, s.RowNo, s.ColNo, string(s.Class), s.Reserved)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapDuplicate(err)
}

// ListByScreening returns every seat of a screening ordered by row then
// column.
func (r *SeatRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + `
	           FROM seats
	           WHERE screening_id = ?
	           ORDER BY row_no, col_no`
	rows, err := r.db.QueryContext(ctx, q, screeningID)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// ListByIDs returns the seats that exist among ids, ordered by row then
// column.  Missing ids are silently absent from the result.
func (r *SeatRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	return r.listByIDs(ctx, r.db, ids)
}

// ListByIDsTx is ListByIDs inside the caller's transaction.
func (r *SeatRepo) ListByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Seat, error) {
	return r.listByIDs(ctx, tx, ids)
}

func (r *SeatRepo) listByIDs(ctx context.Context, q querier, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := q.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id IN (`+in+`) ORDER BY row_no, col_no`, args...)
	if err != nil {
		return nil, err
	}
	return scanSeats(rows)
}

// ReserveTx flips reserved to true for every id, but only for seats that
// are currently free.  When the number of rows changed differs from the
// number of ids the whole request is refused with ErrSeatsUnavailable; the
// partial update is undone when the caller rolls back.  ids must not
// contain duplicates.
func (r *SeatRepo) ReserveTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET reserved = 1 WHERE id IN (`+in+`) AND reserved = 0`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return ErrSeatsUnavailable
	}
	return nil
}

// ReleaseTx marks the seats free.  Seats that are already free are left
// alone and are not an error.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	_, err := tx.ExecContext(ctx, `UPDATE seats SET reserved = 0 WHERE id IN (`+in+`)`, args...)
	return err
}

// CountReservedTx counts reserved seats of a screening.
func (r *SeatRepo) CountReservedTx(ctx context.Context, tx *sql.Tx, screeningID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE screening_id = ? AND reserved = 1`, screeningID).Scan(&n)
	return n, err
}

// DeleteByScreeningTx removes the whole seat grid of a screening.
func (r *SeatRepo) DeleteByScreeningTx(ctx context.Context, tx *sql.Tx, screeningID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE screening_id = ?`, screeningID)
	return err
}
