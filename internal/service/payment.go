package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// insertAttempts bounds retries on a colliding transaction reference or
// ticket code.
const insertAttempts = 3

// ChargeRequest is what the gateway is asked to collect.
type ChargeRequest struct {
	ReservationID uint64
	Amount        decimal.Decimal
	Method        model.PaymentMethod
	Reference     string
}

// ChargeResult is the gateway's answer.
type ChargeResult struct {
	Approved bool
	Reason   string
}

// Gateway collects money.  An error means the gateway could not be
// reached; a decline is a normal ChargeResult.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedGateway approves every charge up to DeclineAbove.  A zero
// DeclineAbove approves everything.
type SimulatedGateway struct {
	DeclineAbove decimal.Decimal
}

func (g SimulatedGateway) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if g.DeclineAbove.IsPositive() && req.Amount.GreaterThan(g.DeclineAbove) {
		return ChargeResult{Reason: "amount exceeds limit"}, nil
	}
	return ChargeResult{Approved: true}, nil
}

// FulfillmentPublisher hands issued tickets to the fulfillment side.
type FulfillmentPublisher interface {
	PublishTicketsIssued(ctx context.Context, ev queue.TicketsIssuedEvent) error
}

// PaymentService records payments, flips the paid flag and issues
// tickets.  It only ever touches reservations that are already
// persisted.
type PaymentService struct {
	db           *sql.DB
	reservations *repository.ReservationRepo
	payments     *repository.PaymentRepo
	tickets      *repository.TicketRepo
	catalog      Catalog
	inventory    *SeatInventory
	gateway      Gateway
	publisher    FulfillmentPublisher
	log          *logrus.Logger
	now          func() time.Time
}

// NewPaymentService wires the payment handoff.  publisher may be nil, in
// which case no fulfillment events are sent.
func NewPaymentService(db *sql.DB, catalog Catalog, inventory *SeatInventory, gateway Gateway,
	publisher FulfillmentPublisher, log *logrus.Logger) *PaymentService {
	return &PaymentService{
		db:           db,
		reservations: repository.NewReservationRepo(db),
		payments:     repository.NewPaymentRepo(db),
		tickets:      repository.NewTicketRepo(db),
		catalog:      catalog,
		inventory:    inventory,
		gateway:      gateway,
		publisher:    publisher,
		log:          log,
		now:          time.Now,
	}
}

// PaymentResult is the outcome of ProcessPayment.
type PaymentResult struct {
	Payment *model.Payment `json:"payment"`
	Tickets []model.Ticket `json:"tickets,omitempty"`
}

func (s *PaymentService) reservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, NotFound("reservation not found")
		}
		return nil, Integrity("load reservation", err)
	}
	return res, nil
}

// ProcessPayment charges the reservation's total.  The attempt is stored
// either way; on approval the reservation is marked paid in the same
// transaction and tickets are issued.  A declined charge returns the
// stored attempt together with a PAYMENT_DECLINED error.  An approved
// charge that loses to a concurrent payment is stored as unsuccessful and
// reported as ALREADY_PAID.
func (s *PaymentService) ProcessPayment(ctx context.Context, reservationID uint64, method model.PaymentMethod) (*PaymentResult, error) {
	if !method.Valid() {
		return nil, Validation(CodeInvalidInput, "unsupported payment method").WithDetail("method", method)
	}
	res, err := s.reservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Paid {
		return nil, Conflict(CodeAlreadyPaid, "reservation is already paid")
	}

	now := s.now().UTC()
	payment := &model.Payment{
		ReservationID:  res.ID,
		Amount:         res.TotalAmount,
		Method:         method,
		TransactionRef: utils.TransactionRef(now),
		PaidAt:         now,
	}
	charge, err := s.gateway.Charge(ctx, ChargeRequest{
		ReservationID: res.ID,
		Amount:        res.TotalAmount,
		Method:        method,
		Reference:     payment.TransactionRef,
	})
	if err != nil {
		return nil, Integrity("charge payment", err)
	}
	// lostRace is set when a concurrent payment marked the reservation paid
	// between our check and our commit.  The approved charge is then kept
	// as an unsuccessful attempt so it can be refunded.
	var lostRace bool
	for attempt := 0; attempt < insertAttempts; attempt++ {
		lostRace = false
		payment.Successful = charge.Approved
		err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			if charge.Approved {
				ok, err := s.reservations.MarkPaidTx(ctx, tx, res.ID)
				if err != nil {
					return err
				}
				if !ok {
					lostRace = true
					payment.Successful = false
				}
			}
			return s.payments.CreateTx(ctx, tx, payment)
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		payment.TransactionRef = utils.TransactionRef(now)
	}
	if err != nil {
		s.log.WithError(err).WithField("reservation_id", res.ID).Error("record payment failed")
		return nil, Integrity("record payment", err)
	}
	if lostRace {
		s.log.WithFields(logrus.Fields{
			"reservation_id":  res.ID,
			"payment_id":      payment.ID,
			"transaction_ref": payment.TransactionRef,
		}).Warn("charge approved for a reservation paid concurrently; refund required")
		return &PaymentResult{Payment: payment}, Conflict(CodeAlreadyPaid, "reservation is already paid").
			WithDetail("payment_id", payment.ID).
			WithDetail("transaction_ref", payment.TransactionRef)
	}

	entry := s.log.WithFields(logrus.Fields{
		"reservation_id":  res.ID,
		"payment_id":      payment.ID,
		"method":          method,
		"transaction_ref": payment.TransactionRef,
	})
	if !payment.Successful {
		entry.WithField("reason", charge.Reason).Info("payment declined")
		return &PaymentResult{Payment: payment}, Conflict(CodePaymentDeclined, "payment was declined").
			WithDetail("payment_id", payment.ID).
			WithDetail("transaction_ref", payment.TransactionRef)
	}
	entry.Info("payment recorded")

	out := &PaymentResult{Payment: payment}
	tickets, err := s.IssueTickets(ctx, res.ID)
	if err != nil {
		// Payment stands; tickets can be issued again on request.
		entry.WithError(err).Warn("ticket issuance after payment failed")
		return out, nil
	}
	out.Tickets = tickets
	res.Paid = true
	s.publish(ctx, res, payment, tickets)
	return out, nil
}

// IssueTickets creates one ticket per reserved seat of a paid
// reservation.  Calling it again returns the tickets already issued.
func (s *PaymentService) IssueTickets(ctx context.Context, reservationID uint64) ([]model.Ticket, error) {
	res, err := s.reservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !res.Paid {
		return nil, Conflict(CodeNotPaid, "reservation has not been paid")
	}

	var issued []model.Ticket
	for attempt := 0; attempt < insertAttempts; attempt++ {
		err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			existing, err := s.tickets.ListByReservationTx(ctx, tx, reservationID)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				issued = existing
				return nil
			}
			seatIDs, err := s.reservations.SeatIDsTx(ctx, tx, reservationID)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			tickets := make([]model.Ticket, 0, len(seatIDs))
			for _, sid := range seatIDs {
				code, err := utils.TicketCode()
				if err != nil {
					return err
				}
				tickets = append(tickets, model.Ticket{ReservationID: reservationID, SeatID: sid, Code: code, IssuedAt: now})
			}
			if err := s.tickets.CreateBulkTx(ctx, tx, tickets); err != nil {
				return err
			}
			issued, err = s.tickets.ListByReservationTx(ctx, tx, reservationID)
			return err
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		s.log.WithError(err).WithField("reservation_id", reservationID).Error("issue tickets failed")
		return nil, Integrity("issue tickets", err)
	}
	return issued, nil
}

// Tickets lists the tickets of a reservation.
func (s *PaymentService) Tickets(ctx context.Context, reservationID uint64) ([]model.Ticket, error) {
	list, err := s.tickets.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, Integrity("list tickets", err)
	}
	return list, nil
}

// Payments lists every payment attempt of a reservation.
func (s *PaymentService) Payments(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
	list, err := s.payments.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, Integrity("list payments", err)
	}
	return list, nil
}

// PurgeTx deletes the tickets and payments of a reservation that is being
// cancelled.
func (s *PaymentService) PurgeTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	if err := s.tickets.DeleteByReservationTx(ctx, tx, reservationID); err != nil {
		return err
	}
	return s.payments.DeleteByReservationTx(ctx, tx, reservationID)
}

// publish is best effort: a broker failure is logged and never undoes the
// payment.
func (s *PaymentService) publish(ctx context.Context, res *model.Reservation, payment *model.Payment, tickets []model.Ticket) {
	if s.publisher == nil {
		return
	}
	ev := queue.TicketsIssuedEvent{
		ReservationID:  res.ID,
		ScreeningID:    res.ScreeningID,
		TotalAmount:    res.TotalAmount.StringFixed(2),
		TransactionRef: payment.TransactionRef,
		IssuedAt:       s.now().UTC().Format(time.RFC3339),
	}
	switch p := res.Purchaser.(type) {
	case model.RegisteredUser:
		ev.PurchaserKind, ev.UserID = "registered", p.UserID
	case model.Guest:
		ev.PurchaserKind, ev.GuestName, ev.GuestEmail = "guest", p.Name, p.Email
	}
	if screening, err := s.catalog.Screening(ctx, res.ScreeningID); err == nil {
		ev.StartsAt = screening.StartTime.UTC().Format(time.RFC3339)
	}
	if seats, err := s.inventory.Seats(ctx, res.SeatIDs); err == nil {
		for _, seat := range seats {
			ev.SeatLabels = append(ev.SeatLabels, seat.Label)
		}
	}
	for _, t := range tickets {
		ev.TicketCodes = append(ev.TicketCodes, t.Code)
	}
	if err := s.publisher.PublishTicketsIssued(ctx, ev); err != nil {
		s.log.WithError(err).WithField("reservation_id", res.ID).Warn("could not publish tickets issued event")
	}
}
