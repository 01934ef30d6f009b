package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ErrCinemaNotFound is returned when a cinema lookup yields no rows.
var ErrCinemaNotFound = errors.New("cinema not found")

// CinemaRepo reads and writes cinema layouts.
type CinemaRepo struct {
	db *sql.DB
}

// NewCinemaRepo constructs a CinemaRepo with the given DB handle.
func NewCinemaRepo(db *sql.DB) *CinemaRepo {
	return &CinemaRepo{db: db}
}

// Create inserts a cinema.  On success the new ID is populated.
func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema) error {
	const q = `INSERT INTO cinemas (name, seat_rows, seat_cols, deluxe_rows) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.SeatRows, c.SeatCols, c.DeluxeRows)
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByIDTx loads a cinema inside the caller's transaction.
func (r *CinemaRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Cinema, error) {
	const q = `SELECT id, name, seat_rows, seat_cols, deluxe_rows FROM cinemas WHERE id = ?`
	var c model.Cinema
	if err := tx.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.SeatRows, &c.SeatCols, &c.DeluxeRows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCinemaNotFound
		}
		return nil, err
	}
	return &c, nil
}
