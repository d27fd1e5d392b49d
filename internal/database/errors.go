package database

import (
	"errors"
	"fmt"
	"strings"

	mattn "github.com/mattn/go-sqlite3"
	modernc "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConflict marks an insert rejected by a UNIQUE or PRIMARY KEY constraint.
// Callers treat it as an expected, per-record outcome; every other error is fatal.
var ErrConflict = errors.New("record already exists")

// ConflictError carries the table whose uniqueness constraint rejected an insert
type ConflictError struct {
	Table string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Table, ErrConflict, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConflict) hold for any ConflictError
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsConflict reports whether err is a uniqueness conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// ClassifyError converts driver-level uniqueness violations into a *ConflictError.
// Any other error is returned unchanged; nil stays nil.
func ClassifyError(table string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return &ConflictError{Table: table, Err: err}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var moderncErr *modernc.Error
	if errors.As(err, &moderncErr) {
		switch moderncErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		// Primary result code only: fall back to the message
		return moderncErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && uniqueMessage(moderncErr.Error())
	}

	var mattnErr mattn.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.ExtendedCode == mattn.ErrConstraintUnique ||
			mattnErr.ExtendedCode == mattn.ErrConstraintPrimaryKey
	}

	return false
}

func uniqueMessage(msg string) bool {
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
