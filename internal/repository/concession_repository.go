package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ConcessionRepo reads the concession catalog.
type ConcessionRepo struct {
	db *sql.DB
}

// NewConcessionRepo constructs a ConcessionRepo with the given DB handle.
func NewConcessionRepo(db *sql.DB) *ConcessionRepo {
	return &ConcessionRepo{db: db}
}

// Create inserts a concession and populates its ID.
func (r *ConcessionRepo) Create(ctx context.Context, c *model.Concession) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO concessions (name, price, category, available) VALUES (?, ?, ?, ?)`,
		c.Name, c.Price.Round(2), c.Category, c.Available)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListAvailable returns every concession currently on sale, grouped by
// category.
func (r *ConcessionRepo) ListAvailable(ctx context.Context) ([]model.Concession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price, category, available FROM concessions WHERE available = 1 ORDER BY category, name, id`)
	if err != nil {
		return nil, err
	}
	return scanConcessions(rows)
}

// ListByIDs returns the concessions that exist among ids, whether or not
// they are available.
func (r *ConcessionRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Concession, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price, category, available FROM concessions WHERE id IN (`+in+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	return scanConcessions(rows)
}

func scanConcessions(rows *sql.Rows) ([]model.Concession, error) {
	defer rows.Close()
	var out []model.Concession
	for rows.Next() {
		var c model.Concession
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.Category, &c.Available); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
