package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/storetest"
)

func TestPromoRepoLockClausePerDriver(t *testing.T) {
	// sql.Open does not dial, so no server is needed.
	my, err := sql.Open("mysql", "user:pass@tcp(127.0.0.1:1)/booking")
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	defer my.Close()
	if got := NewPromoRepo(my).lockClause; got != " FOR UPDATE" {
		t.Fatalf("mysql lock clause = %q", got)
	}
	if got := NewPromoRepo(storetest.Open(t)).lockClause; got != "" {
		t.Fatalf("sqlite lock clause = %q", got)
	}
}

func TestIncrementUsesTxAndLockingReread(t *testing.T) {
	db := storetest.Open(t)
	repo := NewPromoRepo(db)
	ctx := context.Background()
	maxUses := 1
	p := &model.PromoCode{
		Code:              "ONE",
		DiscountType:      model.DiscountFixed,
		DiscountAmount:    decimal.NewFromInt(10),
		ValidFrom:         time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:        time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxUses:           &maxUses,
		MinPurchaseAmount: decimal.Zero,
		Active:            true,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var first, second bool
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		if first, err = repo.IncrementUsesTx(ctx, tx, p.ID); err != nil {
			return err
		}
		second, err = repo.IncrementUsesTx(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if !first || second {
		t.Fatalf("increments = %v, %v; want true, false", first, second)
	}

	if _, err := db.Exec(`UPDATE promo_codes SET active = 0 WHERE id = ?`, p.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		latest, err := repo.GetByCodeForUpdateTx(ctx, tx, "ONE")
		if err != nil {
			return err
		}
		if latest.Active || latest.CurrentUses != 1 {
			t.Fatalf("locking read = active %v uses %d", latest.Active, latest.CurrentUses)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("locking read: %v", err)
	}
}
