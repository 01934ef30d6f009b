package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/storetest"
)

var testNow = time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TicketsIssuedEvent
	err    error
}

func (p *recordingPublisher) PublishTicketsIssued(_ context.Context, ev queue.TicketsIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type harness struct {
	t         *testing.T
	db        *sql.DB
	now       time.Time
	fixture   storetest.Fixture
	inventory *SeatInventory
	promos    *PromoLedger
	catalog   *SQLCatalog
	payments  *PaymentService
	publisher *recordingPublisher
	sessions  *MemorySessionStore
	workflow  *Workflow
}

// newHarness seeds one screening two days out with a 4x5 grid whose last
// row is DELUXE.
func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, storetest.Open(t))
}

// newHarnessOn seeds the same fixture into an already opened database.
func newHarnessOn(t *testing.T, db *sql.DB) *harness {
	t.Helper()
	h := &harness{t: t, db: db, now: testNow}
	h.fixture = storetest.SeedScreening(t, db, testNow.Add(48*time.Hour), 4, 5, 1)
	log := quietLogger()
	clock := func() time.Time { return h.now }

	h.inventory = NewSeatInventory(db, log)
	h.promos = NewPromoLedger(db, log)
	h.catalog = NewSQLCatalog(db)
	h.publisher = &recordingPublisher{}
	h.payments = NewPaymentService(db, h.catalog, h.inventory, SimulatedGateway{}, h.publisher, log)
	h.payments.now = clock
	h.sessions = NewMemorySessionStore(0)
	h.workflow = NewWorkflow(db, h.catalog, h.inventory, h.promos, h.payments, h.sessions, log, WorkflowConfig{
		GuestTokenCost: 4,
		Now:            clock,
	})
	return h
}

// seat returns the id of the seat with the given label.
func (h *harness) seat(label string) uint64 {
	for _, s := range h.fixture.Seats {
		if s.Label == label {
			return s.ID
		}
	}
	h.t.Fatalf("no seat %s in fixture", label)
	return 0
}

func (h *harness) promo(code, typ, amount string, maxUses *int, minPurchase string) {
	h.t.Helper()
	_, err := h.promos.Create(context.Background(), NewPromoCode{
		Code:              code,
		DiscountType:      model.DiscountType(typ),
		DiscountAmount:    decimal.RequireFromString(amount),
		ValidFrom:         testNow.AddDate(0, 0, -1),
		ValidUntil:        testNow.AddDate(0, 0, 30),
		MaxUses:           maxUses,
		MinPurchaseAmount: decimal.RequireFromString(minPurchase),
	})
	if err != nil {
		h.t.Fatalf("create promo %s: %v", code, err)
	}
}

// book runs a registered user through to a finalized reservation.
func (h *harness) book(userID uint64, labels ...string) *FinalizeResult {
	h.t.Helper()
	ctx := context.Background()
	sess, err := h.workflow.StartForUser(ctx, userID, h.fixture.Screening.ID)
	if err != nil {
		h.t.Fatalf("StartForUser: %v", err)
	}
	ids := make([]uint64, len(labels))
	for i, l := range labels {
		ids[i] = h.seat(l)
	}
	if _, err := h.workflow.SelectSeats(ctx, sess.ID, ids); err != nil {
		h.t.Fatalf("SelectSeats: %v", err)
	}
	res, err := h.workflow.Finalize(ctx, sess.ID, "")
	if err != nil {
		h.t.Fatalf("Finalize: %v", err)
	}
	return res
}

func wantCode(t *testing.T, err error, code Code) *Error {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *Error with code %s", err, code)
	}
	if e.Code != code {
		t.Fatalf("code = %s, want %s (err: %v)", e.Code, code, err)
	}
	return e
}

func intPtr(v int) *int { return &v }
