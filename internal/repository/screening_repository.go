// Package repository contains data access logic for screenings. A screening
// is a scheduled showing of a movie in a cinema; its seats are generated once
// from the cinema layout when it is created.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel definitions
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ErrScreeningNotFound indicates that a screening was not located in the DB.
var ErrScreeningNotFound = errors.New("screening not found")

// ScreeningRepo manages persistence for screenings.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo creates a new ScreeningRepo bound to the provided DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo {
	return &ScreeningRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *ScreeningRepo) DB() *sql.DB {
	return r.db
}

const screeningColumns = `id, movie_id, cinema_id, start_time, standard_price, deluxe_price, active`

func scanScreening(row interface{ Scan(...any) error }) (*model.Screening, error) {
	var s model.Screening
	if err := row.Scan(&s.ID, &s.MovieID, &s.CinemaID, &s.StartTime, &s.StandardPrice, &s.DeluxePrice, &s.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreeningNotFound
		}
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	return &s, nil
}

// CreateTx inserts a new screening using the provided transaction.  On
// success the generated ID is populated on s.
func (r *ScreeningRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Screening) error {
	const q = `INSERT INTO screenings (movie_id, cinema_id, start_time, standard_price, deluxe_price, active)
	           VALUES (?, ?, ?, ?, ?, ?)`
	// Execute the insert using the provided transaction so the seat grid
	// written afterwards commits together with the screening.
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.CinemaID, s.StartTime.UTC(),
		s.StandardPrice.Round(2), s.DeluxePrice.Round(2), s.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a screening by primary key.  Returns
// ErrScreeningNotFound when no row matches.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	return scanScreening(r.db.QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *ScreeningRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Screening, error) {
	return scanScreening(tx.QueryRowContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings WHERE id = ?`, id))
}

// ListUpcoming returns active screenings starting at or after from, soonest
// first.
func (r *ScreeningRepo) ListUpcoming(ctx context.Context, from time.Time) ([]model.Screening, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings WHERE active = 1 AND start_time >= ? ORDER BY start_time, id`,
		from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Screening
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeleteTx removes the screening row.  Seats must be removed first.
func (r *ScreeningRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM screenings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScreeningNotFound
	}
	return nil
}
