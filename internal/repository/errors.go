// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to tell the
// different failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// IsDuplicate reports whether err is a unique-key violation from either
// MySQL or SQLite.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapDuplicate converts a unique-key violation into ErrDuplicate and
// leaves every other error untouched.
func mapDuplicate(err error) error {
	if err != nil && IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}
