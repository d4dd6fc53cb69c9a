package database

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrCorrupt is returned when an integrity check reports damage that the
	// driver itself did not flag.
	ErrCorrupt = errors.New("index database is corrupted")

	// ErrTransactionAborted is returned by the outermost Transaction call when
	// a reentrant inner call failed, even if the outer function ignored that
	// failure. The whole transaction is rolled back.
	ErrTransactionAborted = errors.New("transaction aborted by inner failure")

	// ErrClosed is returned when the manager has been closed.
	ErrClosed = errors.New("index database is closed")
)

// IsCorruption reports whether err indicates a structurally damaged database
// file, as opposed to a transient or logical failure.
func IsCorruption(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCorrupt) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}
