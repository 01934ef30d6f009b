package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// PaymentRepo persists payment attempts.
type PaymentRepo struct{ db *sql.DB }

// NewPaymentRepo constructs a PaymentRepo.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx records a payment attempt.  A transaction reference that is
// already taken yields ErrDuplicate.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, amount, method, transaction_reference, paid_at, successful)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.ReservationID, p.Amount.Round(2), string(p.Method), p.TransactionRef,
		p.PaidAt.UTC(), p.Successful)
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByReservation returns every payment attempt for a reservation,
// oldest first.
func (r *PaymentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reservation_id, amount, method, transaction_reference, paid_at, successful
		 FROM payments WHERE reservation_id = ? ORDER BY id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Method, &p.TransactionRef, &p.PaidAt, &p.Successful); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteByReservationTx removes every payment of a reservation.
func (r *PaymentRepo) DeleteByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE reservation_id = ?`, reservationID)
	return err
}
