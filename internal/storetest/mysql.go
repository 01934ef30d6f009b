package storetest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/iliyamo/cinema-booking-engine/internal/database"
)

// MySQLDSNEnv names the variable holding a DSN for a disposable MySQL
// database, e.g. "root:secret@tcp(127.0.0.1:3306)/booking_test?parseTime=true&loc=UTC".
const MySQLDSNEnv = "BOOKING_TEST_MYSQL_DSN"

// bookingTables lists every table in delete order.
var bookingTables = []string{
	"tickets", "payments", "reservation_concessions", "reservation_seats", "reservations",
	"promo_codes", "concessions", "seats", "screenings", "cinemas", "movies",
}

// OpenMySQL connects to the database named by MySQLDSNEnv, migrates it and
// empties every booking table, leaving movie 1 and cinema 1 for
// SeedScreening.  The test is skipped when the variable is unset.  Unlike
// Open the pool is not limited, so concurrent callers run real concurrent
// transactions.
func OpenMySQL(t testing.TB) *sql.DB {
	t.Helper()
	dsn := os.Getenv(MySQLDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", MySQLDSNEnv)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if _, err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// FOREIGN_KEY_CHECKS is per connection, so the wipe runs on one.
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer conn.Close()
	stmts := []string{"SET FOREIGN_KEY_CHECKS = 0"}
	for _, table := range bookingTables {
		stmts = append(stmts, "TRUNCATE TABLE "+table)
	}
	stmts = append(stmts,
		"SET FOREIGN_KEY_CHECKS = 1",
		"INSERT INTO movies (id, title, duration_min) VALUES (1, 'Fixture', 120)",
		"INSERT INTO cinemas (id, name, seat_rows, seat_cols, deluxe_rows) VALUES (1, 'Fixture Hall', 4, 5, 1)",
	)
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	return db
}
