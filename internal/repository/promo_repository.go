package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ErrPromoNotFound is returned when no promo code matches.
var ErrPromoNotFound = errors.New("promo code not found")

// PromoRepo stores promo codes and their usage counters.
type PromoRepo struct {
	db *sql.DB
	// lockClause is appended to locking reads.  SQLite serializes writers
	// and has no row locks, so it stays empty there.
	lockClause string
}

// NewPromoRepo constructs a PromoRepo with the given DB handle.
func NewPromoRepo(db *sql.DB) *PromoRepo {
	r := &PromoRepo{db: db}
	if _, ok := db.Driver().(*mysql.MySQLDriver); ok {
		r.lockClause = " FOR UPDATE"
	}
	return r
}

// DB exposes the underlying handle for transactions.
func (r *PromoRepo) DB() *sql.DB { return r.db }

const promoColumns = `id, code, description, discount_type, discount_amount, valid_from, valid_until,
	max_uses, current_uses, min_purchase_amount, active`

func scanPromo(row *sql.Row) (*model.PromoCode, error) {
	var (
		p       model.PromoCode
		maxUses sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Code, &p.Description, &p.DiscountType, &p.DiscountAmount,
		&p.ValidFrom, &p.ValidUntil, &maxUses, &p.CurrentUses, &p.MinPurchaseAmount, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromoNotFound
		}
		return nil, err
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		p.MaxUses = &n
	}
	p.ValidFrom = model.Day(p.ValidFrom)
	p.ValidUntil = model.Day(p.ValidUntil)
	return &p, nil
}

// Create inserts a promo code.  A code that already exists yields
// ErrDuplicate.
func (r *PromoRepo) Create(ctx context.Context, p *model.PromoCode) error {
	const q = `INSERT INTO promo_codes (code, description, discount_type, discount_amount, valid_from, valid_until,
	           max_uses, current_uses, min_purchase_amount, active)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var maxUses any
	if p.MaxUses != nil {
		maxUses = *p.MaxUses
	}
	res, err := r.db.ExecContext(ctx, q, p.Code, p.Description, string(p.DiscountType), p.DiscountAmount.Round(2),
		model.Day(p.ValidFrom), model.Day(p.ValidUntil), maxUses, p.CurrentUses, p.MinPurchaseAmount.Round(2), p.Active)
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

// GetByCode loads a promo code by its code string.
func (r *PromoRepo) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return scanPromo(r.db.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`, code))
}

// GetByCodeTx loads a promo code inside the caller's transaction.
func (r *PromoRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.PromoCode, error) {
	return scanPromo(tx.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`, code))
}

// GetByCodeForUpdateTx loads a promo code with a locking read.  On MySQL
// this returns the latest committed row rather than the transaction's
// snapshot and holds the row until the transaction ends.
func (r *PromoRepo) GetByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, code string) (*model.PromoCode, error) {
	return scanPromo(tx.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`+r.lockClause, code))
}

// IncrementUsesTx adds one use to the code, but only while it is active and
// below its cap.  It reports whether the row was updated; false means a
// concurrent redemption took the last use or the code was deactivated.
func (r *PromoRepo) IncrementUsesTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE promo_codes SET current_uses = current_uses + 1
		 WHERE id = ? AND active = 1 AND (max_uses IS NULL OR current_uses < max_uses)`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
