package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ErrReservationNotFound is returned when a reservation lookup yields no rows.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo handles persistence for reservations and their seat and
// concession junction rows.
type ReservationRepo struct{ db *sql.DB }

// NewReservationRepo constructs a new ReservationRepo.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts the reservation row plus its seat and concession
// associations within the provided transaction.  On success res.ID is set.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	var (
		userID                any
		guestName, guestEmail any
		guestPhone, promoID   any
		accessHash            any
	)
	switch p := res.Purchaser.(type) {
	case model.RegisteredUser:
		userID = p.UserID
	case model.Guest:
		guestName, guestEmail, guestPhone = p.Name, p.Email, p.Phone
	default:
		return fmt.Errorf("reservation: unsupported purchaser %T", res.Purchaser)
	}
	if res.PromoCodeID != nil {
		promoID = *res.PromoCodeID
	}
	if res.AccessTokenHash != "" {
		accessHash = res.AccessTokenHash
	}
	const q = `INSERT INTO reservations (user_id, guest_name, guest_email, guest_phone, screening_id,
	           promo_code_id, discount_amount, total_amount, paid, access_token_hash, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, userID, guestName, guestEmail, guestPhone, res.ScreeningID,
		promoID, res.DiscountAmount.Round(2), res.TotalAmount.Round(2), res.Paid, accessHash, res.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	if len(res.SeatIDs) > 0 {
		query := `INSERT INTO reservation_seats (reservation_id, seat_id) VALUES `
		args := make([]any, 0, len(res.SeatIDs)*2)
		for i, sid := range res.SeatIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, res.ID, sid)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapDuplicate(err)
		}
	}
	if len(res.Concessions) > 0 {
		query := `INSERT INTO reservation_concessions (reservation_id, concession_id, quantity) VALUES `
		args := make([]any, 0, len(res.Concessions)*3)
		for i, line := range res.Concessions {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, res.ID, line.ConcessionID, line.Quantity)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapDuplicate(err)
		}
	}
	return nil
}

// GetByID loads a reservation with its seats and concessions.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx loads a reservation inside the caller's transaction.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	return r.get(ctx, tx, id)
}

func (r *ReservationRepo) get(ctx context.Context, q querier, id uint64) (*model.Reservation, error) {
	const head = `SELECT id, user_id, guest_name, guest_email, guest_phone, screening_id, promo_code_id,
	              discount_amount, total_amount, paid, access_token_hash, created_at
	              FROM reservations WHERE id = ?`
	var (
		res                               model.Reservation
		userID, promoID                   sql.NullInt64
		guestName, guestEmail, guestPhone sql.NullString
		accessHash                        sql.NullString
	)
	err := q.QueryRowContext(ctx, head, id).Scan(&res.ID, &userID, &guestName, &guestEmail, &guestPhone,
		&res.ScreeningID, &promoID, &res.DiscountAmount, &res.TotalAmount, &res.Paid, &accessHash, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if userID.Valid {
		res.Purchaser = model.RegisteredUser{UserID: uint64(userID.Int64)}
	} else {
		res.Purchaser = model.Guest{Name: guestName.String, Email: guestEmail.String, Phone: guestPhone.String}
	}
	if promoID.Valid {
		pid := uint64(promoID.Int64)
		res.PromoCodeID = &pid
	}
	res.AccessTokenHash = accessHash.String
	res.CreatedAt = res.CreatedAt.UTC()

	if res.SeatIDs, err = r.seatIDs(ctx, q, id); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT concession_id, quantity FROM reservation_concessions WHERE reservation_id = ? ORDER BY concession_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line model.ConcessionLine
		if err := rows.Scan(&line.ConcessionID, &line.Quantity); err != nil {
			return nil, err
		}
		res.Concessions = append(res.Concessions, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &res, nil
}

// SeatIDsTx lists the seats held by a reservation.
func (r *ReservationRepo) SeatIDsTx(ctx context.Context, tx *sql.Tx, id uint64) ([]uint64, error) {
	return r.seatIDs(ctx, tx, id)
}

func (r *ReservationRepo) seatIDs(ctx context.Context, q querier, id uint64) ([]uint64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seat_id FROM reservation_seats WHERE reservation_id = ? ORDER BY seat_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		ids = append(ids, sid)
	}
	return ids, rows.Err()
}

// MarkPaidTx flips paid from false to true.  It reports false when the
// reservation was already paid (or no longer exists).
func (r *ReservationRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET paid = 1 WHERE id = ? AND paid = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteTx removes the reservation and its junction rows.  Tickets and
// payments must be removed first by their own repositories.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_concessions WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_seats WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
