package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// Catalog is the read-only view of movies, screenings and concessions that
// the booking engine depends on.
type Catalog interface {
	Screening(ctx context.Context, id uint64) (*model.Screening, error)
	UpcomingScreenings(ctx context.Context, from time.Time) ([]model.Screening, error)
	Concessions(ctx context.Context, ids []uint64) ([]model.Concession, error)
	AvailableConcessions(ctx context.Context) ([]model.Concession, error)
}

// SQLCatalog reads the catalog tables directly.
type SQLCatalog struct {
	screenings  *repository.ScreeningRepo
	concessions *repository.ConcessionRepo
}

// NewSQLCatalog returns a Catalog backed by db.
func NewSQLCatalog(db *sql.DB) *SQLCatalog {
	return &SQLCatalog{
		screenings:  repository.NewScreeningRepo(db),
		concessions: repository.NewConcessionRepo(db),
	}
}

func (c *SQLCatalog) Screening(ctx context.Context, id uint64) (*model.Screening, error) {
	s, err := c.screenings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScreeningNotFound) {
			return nil, NotFound("screening not found")
		}
		return nil, Integrity("load screening", err)
	}
	return s, nil
}

func (c *SQLCatalog) UpcomingScreenings(ctx context.Context, from time.Time) ([]model.Screening, error) {
	list, err := c.screenings.ListUpcoming(ctx, from)
	if err != nil {
		return nil, Integrity("list screenings", err)
	}
	return list, nil
}

func (c *SQLCatalog) Concessions(ctx context.Context, ids []uint64) ([]model.Concession, error) {
	list, err := c.concessions.ListByIDs(ctx, ids)
	if err != nil {
		return nil, Integrity("load concessions", err)
	}
	return list, nil
}

func (c *SQLCatalog) AvailableConcessions(ctx context.Context) ([]model.Concession, error) {
	list, err := c.concessions.ListAvailable(ctx)
	if err != nil {
		return nil, Integrity("list concessions", err)
	}
	return list, nil
}

// NewScreening describes a screening to schedule.
type NewScreening struct {
	MovieID       uint64 `validate:"required"`
	CinemaID      uint64 `validate:"required"`
	StartTime     time.Time
	StandardPrice decimal.Decimal
	DeluxePrice   decimal.Decimal
}

// ScreeningAdmin schedules and removes screenings together with their seat
// grids.
type ScreeningAdmin struct {
	db         *sql.DB
	screenings *repository.ScreeningRepo
	cinemas    *repository.CinemaRepo
	inventory  *SeatInventory
	log        *logrus.Logger
}

// NewScreeningAdmin wires a ScreeningAdmin.
func NewScreeningAdmin(db *sql.DB, inventory *SeatInventory, log *logrus.Logger) *ScreeningAdmin {
	return &ScreeningAdmin{
		db:         db,
		screenings: repository.NewScreeningRepo(db),
		cinemas:    repository.NewCinemaRepo(db),
		inventory:  inventory,
		log:        log,
	}
}

// Create inserts the screening and generates every seat from the cinema
// layout in one transaction.
func (a *ScreeningAdmin) Create(ctx context.Context, in NewScreening) (*model.Screening, int, error) {
	if err := validate.Struct(in); err != nil {
		return nil, 0, validationError(err)
	}
	if in.StartTime.IsZero() {
		return nil, 0, Validation(CodeInvalidInput, "start_time is required")
	}
	if !in.StandardPrice.IsPositive() || !in.DeluxePrice.IsPositive() {
		return nil, 0, Validation(CodeInvalidInput, "seat prices must be positive")
	}
	s := &model.Screening{
		MovieID:       in.MovieID,
		CinemaID:      in.CinemaID,
		StartTime:     in.StartTime.UTC(),
		StandardPrice: in.StandardPrice,
		DeluxePrice:   in.DeluxePrice,
		Active:        true,
	}
	var seatCount int
	err := repository.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		cinema, err := a.cinemas.GetByIDTx(ctx, tx, in.CinemaID)
		if err != nil {
			return err
		}
		if err := a.screenings.CreateTx(ctx, tx, s); err != nil {
			return err
		}
		seatCount, err = a.inventory.GenerateSeatsTx(ctx, tx, s.ID, *cinema)
		return err
	})
	if err != nil {
		var e *Error
		switch {
		case errors.As(err, &e):
			return nil, 0, e
		case errors.Is(err, repository.ErrCinemaNotFound):
			return nil, 0, NotFound("cinema not found")
		}
		return nil, 0, Integrity("create screening", err)
	}
	a.log.WithFields(logrus.Fields{"screening_id": s.ID, "seat_count": seatCount}).Info("screening created")
	return s, seatCount, nil
}

// Delete removes a screening and its seats.  It is refused while any seat
// is reserved.
func (a *ScreeningAdmin) Delete(ctx context.Context, id uint64) error {
	err := repository.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		if _, err := a.screenings.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		reserved, err := a.inventory.HasReservedSeatsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if reserved {
			return Conflict(CodeScreeningHasReservations, "screening has reserved seats")
		}
		if err := a.inventory.DeleteSeatsTx(ctx, tx, id); err != nil {
			return err
		}
		return a.screenings.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		var e *Error
		switch {
		case errors.As(err, &e):
			return e
		case errors.Is(err, repository.ErrScreeningNotFound):
			return NotFound("screening not found")
		}
		return Integrity("delete screening", err)
	}
	a.log.WithField("screening_id", id).Info("screening deleted")
	return nil
}
