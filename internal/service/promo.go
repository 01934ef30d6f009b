package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// Rejection is why a promo code cannot be applied.
type Rejection string

// Rejections in the order Validate checks them.
const (
	RejectNotFound             Rejection = "NOT_FOUND"
	RejectInactive             Rejection = "INACTIVE"
	RejectNotYetValid          Rejection = "NOT_YET_VALID"
	RejectExpired              Rejection = "EXPIRED"
	RejectMaxUsesReached       Rejection = "MAX_USES_REACHED"
	RejectBelowMinimumPurchase Rejection = "BELOW_MINIMUM_PURCHASE"
)

var rejectionMessages = map[Rejection]string{
	RejectNotFound:             "promo code does not exist",
	RejectInactive:             "promo code is no longer active",
	RejectNotYetValid:          "promo code is not valid yet",
	RejectExpired:              "promo code has expired",
	RejectMaxUsesReached:       "promo code has reached its usage limit",
	RejectBelowMinimumPurchase: "purchase amount is below the promo code minimum",
}

// PromoRejection is the cause attached to every PROMO_CODE_REJECTED error.
type PromoRejection struct {
	Code   string
	Reason Rejection
}

func (r *PromoRejection) Error() string {
	return fmt.Sprintf("promo code %q rejected: %s", r.Code, r.Reason)
}

// RejectionReason extracts the rejection reason from err, if any.
func RejectionReason(err error) (Rejection, bool) {
	var r *PromoRejection
	if errors.As(err, &r) {
		return r.Reason, true
	}
	return "", false
}

func rejectPromo(code string, reason Rejection) *Error {
	kind := KindValidation
	switch reason {
	case RejectNotFound:
		kind = KindNotFound
	case RejectMaxUsesReached:
		kind = KindConflict
	}
	return &Error{
		Kind:    kind,
		Code:    CodePromoCodeRejected,
		Message: rejectionMessages[reason],
		Details: map[string]any{"reason": reason},
		Cause:   &PromoRejection{Code: code, Reason: reason},
	}
}

// NormalizeCode trims and upper-cases a promo code.  Codes are matched
// case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoLedger owns promo codes and their usage counters.
type PromoLedger struct {
	db     *sql.DB
	promos *repository.PromoRepo
	log    *logrus.Logger
}

// NewPromoLedger wires a PromoLedger to an open database handle.
func NewPromoLedger(db *sql.DB, log *logrus.Logger) *PromoLedger {
	return &PromoLedger{db: db, promos: repository.NewPromoRepo(db), log: log}
}

// checkPromo applies the rejection rules in their fixed order and returns
// the first that fails.
func checkPromo(p *model.PromoCode, amount decimal.Decimal, asOf time.Time) *Error {
	day := model.Day(asOf)
	switch {
	case !p.Active:
		return rejectPromo(p.Code, RejectInactive)
	case day.Before(p.ValidFrom):
		return rejectPromo(p.Code, RejectNotYetValid)
	case day.After(p.ValidUntil):
		return rejectPromo(p.Code, RejectExpired)
	case p.UsesExhausted():
		return rejectPromo(p.Code, RejectMaxUsesReached)
	case amount.LessThan(p.MinPurchaseAmount):
		return rejectPromo(p.Code, RejectBelowMinimumPurchase)
	}
	return nil
}

// Validate checks whether code can be applied to a purchase of amount on
// asOf without consuming a use.
func (l *PromoLedger) Validate(ctx context.Context, code string, amount decimal.Decimal, asOf time.Time) (*model.PromoCode, error) {
	code = NormalizeCode(code)
	p, err := l.promos.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return nil, rejectPromo(code, RejectNotFound)
		}
		return nil, Integrity("load promo code", err)
	}
	if e := checkPromo(p, amount, asOf); e != nil {
		return nil, e
	}
	return p, nil
}

// Redeem validates and consumes one use of code in its own transaction.
func (l *PromoLedger) Redeem(ctx context.Context, code string, amount decimal.Decimal, asOf time.Time) (*model.PromoCode, error) {
	var p *model.PromoCode
	err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		var err error
		p, err = l.RedeemTx(ctx, tx, code, amount, asOf)
		return err
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, Integrity("redeem promo code", err)
	}
	return p, nil
}

// RedeemTx re-validates code and increments its usage counter inside the
// caller's transaction.  The increment is conditional on the cap, so two
// concurrent redemptions of the last use cannot both succeed.
func (l *PromoLedger) RedeemTx(ctx context.Context, tx *sql.Tx, code string, amount decimal.Decimal, asOf time.Time) (*model.PromoCode, error) {
	code = NormalizeCode(code)
	p, err := l.promos.GetByCodeTx(ctx, tx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return nil, rejectPromo(code, RejectNotFound)
		}
		return nil, err
	}
	if e := checkPromo(p, amount, asOf); e != nil {
		return nil, e
	}
	ok, err := l.promos.IncrementUsesTx(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The plain read above may be a stale snapshot; the failed update
		// saw the committed row, so read that one to name the reason.
		latest, err := l.promos.GetByCodeForUpdateTx(ctx, tx, code)
		if err != nil {
			return nil, err
		}
		if !latest.Active {
			return nil, rejectPromo(code, RejectInactive)
		}
		return nil, rejectPromo(code, RejectMaxUsesReached)
	}
	p.CurrentUses++
	l.log.WithFields(logrus.Fields{"promo_code": code, "current_uses": p.CurrentUses}).Debug("promo code redeemed")
	return p, nil
}

// Get returns a promo code for display.
func (l *PromoLedger) Get(ctx context.Context, code string) (*model.PromoCode, error) {
	p, err := l.promos.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return nil, NotFound("promo code not found")
		}
		return nil, Integrity("load promo code", err)
	}
	return p, nil
}

// NewPromoCode describes a promo code to create.
type NewPromoCode struct {
	Code              string             `validate:"required,max=64,printascii"`
	Description       string             `validate:"max=255"`
	DiscountType      model.DiscountType `validate:"required,oneof=PERCENTAGE FIXED"`
	DiscountAmount    decimal.Decimal
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int `validate:"omitempty,min=1"`
	MinPurchaseAmount decimal.Decimal
}

// Create validates and stores a new, active promo code.  Percentage
// discounts must lie in (0, 100]; fixed discounts must be positive.
func (l *PromoLedger) Create(ctx context.Context, in NewPromoCode) (*model.PromoCode, error) {
	in.Code = NormalizeCode(in.Code)
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if strings.ContainsAny(in.Code, " \t") {
		return nil, Validation(CodeInvalidInput, "promo code cannot contain spaces")
	}
	switch in.DiscountType {
	case model.DiscountPercentage:
		if !in.DiscountAmount.IsPositive() || in.DiscountAmount.GreaterThan(decimal.NewFromInt(100)) {
			return nil, Validation(CodeInvalidInput, "percentage discount must be greater than 0 and at most 100")
		}
	case model.DiscountFixed:
		if !in.DiscountAmount.IsPositive() {
			return nil, Validation(CodeInvalidInput, "fixed discount must be greater than 0")
		}
	}
	if in.ValidFrom.IsZero() || in.ValidUntil.IsZero() {
		return nil, Validation(CodeInvalidInput, "validity window is required")
	}
	if model.Day(in.ValidUntil).Before(model.Day(in.ValidFrom)) {
		return nil, Validation(CodeInvalidInput, "valid_until is before valid_from")
	}
	if in.MinPurchaseAmount.IsNegative() {
		return nil, Validation(CodeInvalidInput, "minimum purchase amount cannot be negative")
	}
	p := &model.PromoCode{
		Code:              in.Code,
		Description:       in.Description,
		DiscountType:      in.DiscountType,
		DiscountAmount:    in.DiscountAmount,
		ValidFrom:         model.Day(in.ValidFrom),
		ValidUntil:        model.Day(in.ValidUntil),
		MaxUses:           in.MaxUses,
		MinPurchaseAmount: in.MinPurchaseAmount,
		Active:            true,
	}
	if err := l.promos.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict(CodeDuplicate, "promo code already exists")
		}
		return nil, Integrity("create promo code", err)
	}
	l.log.WithField("promo_code", p.Code).Info("promo code created")
	return p, nil
}
