package repository

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the repositories so handlers can map them
// to HTTP status codes without inspecting GORM internals.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// isDuplicateKeyError matches unique-constraint violations across the
// supported drivers. SQLite and Postgres report them with different
// wording, and Postgres additionally carries SQLSTATE 23505.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}
