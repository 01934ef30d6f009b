package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// WorkflowConfig holds the tunables of a Workflow.
type WorkflowConfig struct {
	// GuestTokenCost is the bcrypt cost used to hash guest access tokens.
	GuestTokenCost int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// SeatsChanged, when set, is called after a screening's seat map
	// changed, e.g. to drop cached seat maps.
	SeatsChanged func(ctx context.Context, screeningID uint64)
	// LockTTL bounds how long finalize or cancel may hold a session.
	LockTTL time.Duration
}

// Workflow drives a booking session from seat selection to a persisted
// reservation.  It never writes seat or promo rows itself: those go
// through SeatInventory and PromoLedger.
type Workflow struct {
	db           *sql.DB
	catalog      Catalog
	inventory    *SeatInventory
	promos       *PromoLedger
	payments     *PaymentService
	sessions     SessionStore
	reservations *repository.ReservationRepo
	log          *logrus.Logger
	cfg          WorkflowConfig
}

// NewWorkflow wires the workflow to its collaborators.
func NewWorkflow(db *sql.DB, catalog Catalog, inventory *SeatInventory, promos *PromoLedger,
	payments *PaymentService, sessions SessionStore, log *logrus.Logger, cfg WorkflowConfig) *Workflow {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GuestTokenCost == 0 {
		cfg.GuestTokenCost = 10
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Workflow{
		db:           db,
		catalog:      catalog,
		inventory:    inventory,
		promos:       promos,
		payments:     payments,
		sessions:     sessions,
		reservations: repository.NewReservationRepo(db),
		log:          log,
		cfg:          cfg,
	}
}

// StartForUser opens a session for a registered customer.
func (w *Workflow) StartForUser(ctx context.Context, userID, screeningID uint64) (*Session, error) {
	if userID == 0 {
		return nil, Validation(CodeInvalidInput, "user id is required")
	}
	return w.start(ctx, model.RegisteredUser{UserID: userID}, screeningID)
}

// StartForGuest opens a session for a customer without an account.
func (w *Workflow) StartForGuest(ctx context.Context, name, email, phone string, screeningID uint64) (*Session, error) {
	contact := guestContact{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
		Phone: strings.TrimSpace(phone),
	}
	if err := validate.Struct(contact); err != nil {
		return nil, validationError(err)
	}
	return w.start(ctx, model.Guest{Name: contact.Name, Email: contact.Email, Phone: contact.Phone}, screeningID)
}

func (w *Workflow) start(ctx context.Context, p model.Purchaser, screeningID uint64) (*Session, error) {
	if screeningID == 0 {
		return nil, Validation(CodeInvalidInput, "screening id is required")
	}
	screening, err := w.catalog.Screening(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	if err := w.bookable(screening); err != nil {
		return nil, err
	}
	now := w.cfg.Now().UTC()
	sess := &Session{
		ID:          uuid.NewString(),
		ScreeningID: screeningID,
		Purchaser:   p,
		State:       StateEmpty,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.sessions.Save(ctx, sess); err != nil {
		return nil, Integrity("save session", err)
	}
	w.log.WithFields(logrus.Fields{"session_id": sess.ID, "screening_id": screeningID}).Debug("booking session started")
	return sess, nil
}

func (w *Workflow) bookable(s *model.Screening) error {
	if !s.Active {
		return Validation(CodeScreeningInactive, "screening is not open for booking")
	}
	if !w.cfg.Now().Before(s.StartTime) {
		return Validation(CodeScreeningStarted, "screening has already started")
	}
	return nil
}

// Session returns the current state of a session.
func (w *Workflow) Session(ctx context.Context, sid string) (*Session, error) {
	return w.load(ctx, sid)
}

func (w *Workflow) load(ctx context.Context, sid string) (*Session, error) {
	sess, err := w.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, NotFound("booking session not found")
		}
		return nil, Integrity("load session", err)
	}
	return sess, nil
}

func (w *Workflow) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = w.cfg.Now().UTC()
	if err := w.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, ErrSessionStale) {
			return Conflict(CodeSessionChanged, "booking session was changed by another request, reload it")
		}
		return Integrity("save session", err)
	}
	return nil
}

// lock takes the session's exclusive hold for finalize and cancel.
func (w *Workflow) lock(ctx context.Context, sid string) (func(), error) {
	unlock, err := w.sessions.Lock(ctx, sid, w.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, ErrSessionLocked) {
			return nil, Conflict(CodeSessionBusy, "booking session is being finalized or cancelled")
		}
		return nil, Integrity("lock session", err)
	}
	return unlock, nil
}

func invalidTransition(from State, op string) *Error {
	return Validation(CodeInvalidTransition, op+" is not allowed in state "+string(from)).
		WithDetail("state", from)
}

// SelectSeats replaces the session's seat selection.  Seats must belong to
// the session's screening and be free right now; the binding check happens
// again at finalize.
func (w *Workflow) SelectSeats(ctx context.Context, sid string, seatIDs []uint64) (*Session, error) {
	sess, err := w.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return nil, invalidTransition(sess.State, "select seats")
	}
	ids := uniqueIDs(seatIDs)
	if len(ids) == 0 {
		return nil, Validation(CodeInvalidInput, "at least one seat is required")
	}
	seats, err := w.inventory.Seats(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Seat, len(seats))
	for _, s := range seats {
		byID[s.ID] = s
	}
	var foreign, taken []uint64
	for _, id := range ids {
		s, ok := byID[id]
		switch {
		case !ok || s.ScreeningID != sess.ScreeningID:
			foreign = append(foreign, id)
		case s.Reserved:
			taken = append(taken, id)
		}
	}
	if len(foreign) > 0 {
		return nil, Validation(CodeInvalidInput, "seats do not belong to this screening").
			WithDetail("invalid_seat_ids", foreign)
	}
	if len(taken) > 0 {
		return nil, seatsUnavailable(taken)
	}
	sess.SeatIDs = ids
	sess.State = StateSeatsSelected
	if err := w.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectConcessions replaces the session's concession selection.  Lines
// with quantity zero are dropped and repeated ids are merged; an empty
// selection is valid.
func (w *Workflow) SelectConcessions(ctx context.Context, sid string, items []model.ConcessionLine) (*Session, error) {
	sess, err := w.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State != StateSeatsSelected && sess.State != StateItemsSelected {
		return nil, invalidTransition(sess.State, "select concessions")
	}
	qty := make(map[uint64]int)
	for _, it := range items {
		if it.ConcessionID == 0 || it.Quantity < 0 {
			return nil, Validation(CodeInvalidInput, "concession lines need an id and a non-negative quantity")
		}
		if it.Quantity > 0 {
			qty[it.ConcessionID] += it.Quantity
		}
	}
	lines := make([]model.ConcessionLine, 0, len(qty))
	for id, q := range qty {
		lines = append(lines, model.ConcessionLine{ConcessionID: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ConcessionID < lines[j].ConcessionID })
	if _, err := w.concessionItems(ctx, lines); err != nil {
		return nil, err
	}
	sess.Concessions = lines
	sess.State = StateItemsSelected
	if err := w.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// concessionItems resolves lines against the catalog.  Every concession
// must exist and be on sale.
func (w *Workflow) concessionItems(ctx context.Context, lines []model.ConcessionLine) ([]pricing.Item, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	ids := make([]uint64, len(lines))
	for i, l := range lines {
		ids[i] = l.ConcessionID
	}
	found, err := w.catalog.Concessions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Concession, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	items := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		c, ok := byID[l.ConcessionID]
		if !ok {
			return nil, NotFound("concession not found").WithDetail("concession_id", l.ConcessionID)
		}
		if !c.Available {
			return nil, Validation(CodeInvalidInput, c.Name+" is not available").WithDetail("concession_id", c.ID)
		}
		items = append(items, pricing.Item{Concession: c, Quantity: l.Quantity})
	}
	return items, nil
}

// priceInputs gathers everything pricing needs for the session.  Prices
// come from the catalog as of now.
func (w *Workflow) priceInputs(ctx context.Context, sess *Session) (*model.Screening, []model.Seat, []pricing.Item, error) {
	screening, err := w.catalog.Screening(ctx, sess.ScreeningID)
	if err != nil {
		return nil, nil, nil, err
	}
	seats, err := w.inventory.Seats(ctx, sess.SeatIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(seats) != len(sess.SeatIDs) {
		return nil, nil, nil, Validation(CodeInvalidInput, "some selected seats no longer exist")
	}
	items, err := w.concessionItems(ctx, sess.Concessions)
	if err != nil {
		return nil, nil, nil, err
	}
	return screening, seats, items, nil
}

// Quote is a price preview for the current selection.
type Quote struct {
	Session   *Session         `json:"session"`
	Total     pricing.Total    `json:"total"`
	PromoCode *model.PromoCode `json:"promo_code,omitempty"`
}

// Quote prices the session's selection, optionally with a promo code,
// without reserving or redeeming anything.
func (w *Workflow) Quote(ctx context.Context, sid, promoCode string) (*Quote, error) {
	sess, err := w.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State != StateSeatsSelected && sess.State != StateItemsSelected {
		return nil, invalidTransition(sess.State, "quote")
	}
	screening, seats, items, err := w.priceInputs(ctx, sess)
	if err != nil {
		return nil, err
	}
	total := pricing.Price(*screening, seats, items, nil)
	q := &Quote{Session: sess}
	if strings.TrimSpace(promoCode) != "" {
		p, err := w.promos.Validate(ctx, promoCode, total.Subtotal, w.cfg.Now())
		if err != nil {
			return nil, err
		}
		total = pricing.Price(*screening, seats, items, p)
		q.PromoCode = p
	}
	q.Total = total.Rounded()
	return q, nil
}

// FinalizeResult is what a successful finalize hands back.
type FinalizeResult struct {
	Reservation *model.Reservation `json:"reservation"`
	Total       pricing.Total      `json:"total"`
	// AccessToken is only set for guests and is shown exactly once.
	AccessToken string `json:"access_token,omitempty"`
}

// Finalize turns the session into a persisted reservation.  Seats are
// reserved, the promo code (if any) is redeemed and the reservation rows
// are written in one transaction; if any step fails nothing is kept.  A
// seat conflict sends the session back to SEATS_SELECTED so the customer
// can pick again.  Only one finalize or cancel runs per session at a time.
func (w *Workflow) Finalize(ctx context.Context, sid, promoCode string) (*FinalizeResult, error) {
	unlock, err := w.lock(ctx, sid)
	if err != nil {
		return nil, err
	}
	defer unlock()
	sess, err := w.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State != StateSeatsSelected && sess.State != StateItemsSelected {
		return nil, invalidTransition(sess.State, "finalize")
	}
	screening, seats, items, err := w.priceInputs(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := w.bookable(screening); err != nil {
		return nil, err
	}
	now := w.cfg.Now().UTC()
	base := pricing.Price(*screening, seats, items, nil)

	res := &model.Reservation{
		Purchaser:   sess.Purchaser,
		ScreeningID: sess.ScreeningID,
		SeatIDs:     sess.SeatIDs,
		Concessions: sess.Concessions,
		CreatedAt:   now,
	}
	var token string
	if _, ok := sess.Purchaser.(model.Guest); ok {
		if token, err = utils.RandomToken(24); err != nil {
			return nil, Integrity("generate access token", err)
		}
		if res.AccessTokenHash, err = utils.HashSecret(token, w.cfg.GuestTokenCost); err != nil {
			return nil, Integrity("hash access token", err)
		}
	}

	total := base
	err = repository.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		if err := w.inventory.ReserveSeatsTx(ctx, tx, sess.SeatIDs); err != nil {
			return err
		}
		if strings.TrimSpace(promoCode) != "" {
			p, err := w.promos.RedeemTx(ctx, tx, promoCode, base.Subtotal, now)
			if err != nil {
				return err
			}
			res.PromoCodeID = &p.ID
			total = pricing.Price(*screening, seats, items, p)
		}
		res.DiscountAmount = pricing.Money(total.Discount)
		res.TotalAmount = pricing.Money(total.Grand)
		return w.reservations.CreateTx(ctx, tx, res)
	})
	if err != nil {
		return nil, w.finalizeFailed(ctx, sess, err)
	}

	w.markFinalized(ctx, sess, res.ID)
	w.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"screening_id":   res.ScreeningID,
		"seat_count":     len(res.SeatIDs),
		"total":          res.TotalAmount.StringFixed(2),
	}).Info("reservation finalized")
	w.seatsChanged(ctx, res.ScreeningID)
	return &FinalizeResult{Reservation: res, Total: total.Rounded(), AccessToken: token}, nil
}

// markFinalized records the committed reservation on the session.  The
// reservation is final, so a save that lost to a concurrent selection is
// retried on the fresh copy instead of being dropped.
func (w *Workflow) markFinalized(ctx context.Context, sess *Session, reservationID uint64) {
	cur := sess
	for attempt := 0; attempt < 3; attempt++ {
		cur.State = StateFinalized
		cur.ReservationID = reservationID
		err := w.save(ctx, cur)
		if err == nil {
			*sess = *cur
			return
		}
		if !HasCode(err, CodeSessionChanged) {
			w.log.WithError(err).WithField("session_id", sess.ID).Warn("could not mark session finalized")
			return
		}
		fresh, lerr := w.sessions.Get(ctx, sess.ID)
		if lerr != nil {
			w.log.WithError(lerr).WithField("session_id", sess.ID).Warn("could not reload session to mark it finalized")
			return
		}
		cur = fresh
	}
	w.log.WithField("session_id", sess.ID).Warn("gave up marking session finalized")
}

func (w *Workflow) finalizeFailed(ctx context.Context, sess *Session, err error) error {
	fields := logrus.Fields{"session_id": sess.ID, "screening_id": sess.ScreeningID}
	switch {
	case HasCode(err, CodeSeatsNoLongerAvailable):
		taken, lerr := w.inventory.UnavailableSeats(ctx, sess.SeatIDs)
		if lerr != nil {
			w.log.WithError(lerr).WithFields(fields).Warn("could not list unavailable seats")
		}
		// A stale save leaves whatever the newer writer stored in place.
		sess.State = StateSeatsSelected
		if serr := w.save(ctx, sess); serr != nil {
			w.log.WithError(serr).WithFields(fields).Warn("could not reset session after seat conflict")
		}
		w.log.WithFields(fields).WithField("unavailable_seat_ids", taken).Info("finalize lost seats to another booking")
		return seatsUnavailable(taken)
	case HasCode(err, CodePromoCodeRejected):
		reason, _ := RejectionReason(err)
		w.log.WithFields(fields).WithField("reason", reason).Info("finalize rejected promo code")
		return err
	case KindOf(err) != KindIntegrity:
		return err
	}
	w.log.WithError(err).WithFields(fields).Error("finalize failed")
	return Integrity("finalize reservation", err)
}

// Cancel abandons a session that has not been finalized.  Nothing was
// reserved yet, so only the session itself is discarded.
func (w *Workflow) Cancel(ctx context.Context, sid string) (*Session, error) {
	unlock, err := w.lock(ctx, sid)
	if err != nil {
		return nil, err
	}
	defer unlock()
	sess, err := w.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return nil, invalidTransition(sess.State, "cancel")
	}
	sess.State = StateAborted
	if err := w.sessions.Delete(ctx, sid); err != nil {
		return nil, Integrity("delete session", err)
	}
	return sess, nil
}

// Reservation loads a finalized reservation.
func (w *Workflow) Reservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := w.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, NotFound("reservation not found")
		}
		return nil, Integrity("load reservation", err)
	}
	return res, nil
}

// CancelReservation undoes a finalized reservation: its seats are freed
// and its tickets, payments, junction rows and the reservation itself are
// deleted, all in one transaction.  Reservations for screenings that have
// already started cannot be cancelled.
func (w *Workflow) CancelReservation(ctx context.Context, reservationID uint64) error {
	res, err := w.Reservation(ctx, reservationID)
	if err != nil {
		return err
	}
	screening, err := w.catalog.Screening(ctx, res.ScreeningID)
	if err != nil && KindOf(err) != KindNotFound {
		return err
	}
	if screening != nil && !w.cfg.Now().Before(screening.StartTime) {
		return Conflict(CodeScreeningStarted, "screening has already started")
	}

	var released []uint64
	err = repository.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		seatIDs, err := w.reservations.SeatIDsTx(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if err := w.payments.PurgeTx(ctx, tx, reservationID); err != nil {
			return err
		}
		if err := w.reservations.DeleteTx(ctx, tx, reservationID); err != nil {
			return err
		}
		released = seatIDs
		return w.inventory.ReleaseSeatsTx(ctx, tx, seatIDs)
	})
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return NotFound("reservation not found")
		}
		w.log.WithError(err).WithField("reservation_id", reservationID).Error("cancel reservation failed")
		return Integrity("cancel reservation", err)
	}
	w.log.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"released_seats": len(released),
	}).Info("reservation cancelled")
	w.seatsChanged(ctx, res.ScreeningID)
	return nil
}

func (w *Workflow) seatsChanged(ctx context.Context, screeningID uint64) {
	if w.cfg.SeatsChanged != nil {
		w.cfg.SeatsChanged(ctx, screeningID)
	}
}
