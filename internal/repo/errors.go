// Package repo implements the data persistence layer for domain entities.
//
// This file is the boundary between driver errors and the rest of the
// application. Raw gorm/SQLite failures with a recognizable shape are wrapped
// into the tagged variants from package apperr (CastFailure,
// DuplicateKeyFailure) so callers never inspect driver messages:
//
//   - a malformed UUID identifier never reaches the database and yields a
//     CastFailure{Path: "id"};
//   - a UNIQUE constraint violation yields a DuplicateKeyFailure naming the
//     column and the offending value;
//   - gorm.ErrRecordNotFound is returned as ErrNotFound.
//
// Anything else is propagated unchanged.
package repo

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// uniqueColumnRE extracts "<table>.<column>" from SQLite's
// "UNIQUE constraint failed: widgets.name" message.
var uniqueColumnRE = regexp.MustCompile(`(?i)unique constraint failed: \w+\.(\w+)`)

// coder is implemented by the pure-Go SQLite driver's error type.
type coder interface{ Code() int }

// checkID rejects identifiers that cannot be a UUID primary key.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &apperr.CastFailure{Path: "id", Value: id, Err: err}
	}
	return nil
}

// classify wraps err into a persistence failure variant when its shape is
// recognized. unique maps each uniquely indexed column touched by the write
// to the value that was written.
func classify(err error, unique map[string]any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isDuplicate(err) {
		field := duplicateColumn(err, unique)
		return &apperr.DuplicateKeyFailure{
			Field: field,
			Value: unique[field],
			Code:  apperr.DuplicateKeyCode,
			Err:   err,
		}
	}
	return err
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var c coder
	if errors.As(err, &c) && c.Code() == apperr.DuplicateKeyCode {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// duplicateColumn names the violated column, falling back to the only
// candidate when the driver message does not say. It returns "" when the
// column cannot be determined.
func duplicateColumn(err error, unique map[string]any) string {
	if m := uniqueColumnRE.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	if len(unique) == 1 {
		for k := range unique {
			return k
		}
	}
	return ""
}
