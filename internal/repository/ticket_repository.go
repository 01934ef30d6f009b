package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// TicketRepo persists issued tickets.
type TicketRepo struct{ db *sql.DB }

// NewTicketRepo constructs a TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CreateBulkTx inserts tickets in one statement.  Either a repeated ticket
// code or a second ticket for the same reservation seat yields
// ErrDuplicate.
func (r *TicketRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (reservation_id, seat_id, ticket_code, used, issued_at) VALUES `
	args := make([]any, 0, len(tickets)*5)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, t.ReservationID, t.SeatID, t.Code, t.Used, t.IssuedAt.UTC())
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapDuplicate(err)
}

// ListByReservation returns the tickets of a reservation ordered by seat.
func (r *TicketRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Ticket, error) {
	return r.list(ctx, r.db, reservationID)
}

// ListByReservationTx is ListByReservation inside the caller's transaction.
func (r *TicketRepo) ListByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.Ticket, error) {
	return r.list(ctx, tx, reservationID)
}

func (r *TicketRepo) list(ctx context.Context, q querier, reservationID uint64) ([]model.Ticket, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, reservation_id, seat_id, ticket_code, used, issued_at
		 FROM tickets WHERE reservation_id = ? ORDER BY seat_id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.ReservationID, &t.SeatID, &t.Code, &t.Used, &t.IssuedAt); err != nil {
			return nil, err
		}
		t.IssuedAt = t.IssuedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteByReservationTx removes the tickets of a reservation.
func (r *TicketRepo) DeleteByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE reservation_id = ?`, reservationID)
	return err
}
