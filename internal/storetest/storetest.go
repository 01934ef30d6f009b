// Package storetest opens throwaway SQLite databases carrying the booking
// schema so storage-backed packages can be tested without a MySQL server.
package storetest

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

//go:embed schema.sql
var schema string

// Open creates a fresh database file under t.TempDir, applies the schema
// and closes the handle when the test ends.  The pool is limited to one
// connection so SQLite never reports SQLITE_BUSY; concurrent callers queue
// on the pool instead, which still exercises the conditional updates.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booking.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return db
}

// Fixture is a screening with a generated seat grid.
type Fixture struct {
	Screening model.Screening
	Seats     []model.Seat
}

// SeedScreening inserts a screening starting at start with rows x cols
// seats, the last deluxeRows rows being DELUXE, priced 180 / 280.
func SeedScreening(t testing.TB, db *sql.DB, start time.Time, rows, cols, deluxeRows int) Fixture {
	t.Helper()
	ctx := context.Background()
	res, err := db.ExecContext(ctx,
		`INSERT INTO screenings (movie_id, cinema_id, start_time, standard_price, deluxe_price, active) VALUES (1, 1, ?, ?, ?, 1)`,
		start.UTC(), decimal.NewFromInt(180), decimal.NewFromInt(280))
	if err != nil {
		t.Fatalf("insert screening: %v", err)
	}
	id, _ := res.LastInsertId()
	f := Fixture{Screening: model.Screening{
		ID:            uint64(id),
		MovieID:       1,
		CinemaID:      1,
		StartTime:     start.UTC(),
		StandardPrice: decimal.NewFromInt(180),
		DeluxePrice:   decimal.NewFromInt(280),
		Active:        true,
	}}
	for r := 0; r < rows; r++ {
		class := model.SeatClassStandard
		if r >= rows-deluxeRows {
			class = model.SeatClassDeluxe
		}
		for c := 1; c <= cols; c++ {
			label := fmt.Sprintf("%c%d", 'A'+r, c)
			res, err := db.ExecContext(ctx,
				`INSERT INTO seats (screening_id, label, row_no, col_no, class, reserved) VALUES (?, ?, ?, ?, ?, 0)`,
				f.Screening.ID, label, r, c, string(class))
			if err != nil {
				t.Fatalf("insert seat %s: %v", label, err)
			}
			sid, _ := res.LastInsertId()
			f.Seats = append(f.Seats, model.Seat{
				ID: uint64(sid), ScreeningID: f.Screening.ID, Label: label, RowNo: r, ColNo: c, Class: class,
			})
		}
	}
	return f
}

// SeedConcession inserts an available concession.
func SeedConcession(t testing.TB, db *sql.DB, name, price string) model.Concession {
	t.Helper()
	c := model.Concession{Name: name, Price: decimal.RequireFromString(price), Category: "SNACK", Available: true}
	res, err := db.Exec(`INSERT INTO concessions (name, price, category, available) VALUES (?, ?, ?, 1)`,
		c.Name, c.Price, c.Category)
	if err != nil {
		t.Fatalf("insert concession: %v", err)
	}
	id, _ := res.LastInsertId()
	c.ID = uint64(id)
	return c
}

// ReservedSeatIDs returns the ids of every reserved seat, ascending.
func ReservedSeatIDs(t testing.TB, db *sql.DB) []uint64 {
	t.Helper()
	rows, err := db.Query(`SELECT id FROM seats WHERE reserved = 1 ORDER BY id`)
	if err != nil {
		t.Fatalf("query reserved seats: %v", err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// Count returns SELECT COUNT(*) for a table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
