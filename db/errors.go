package db

import (
	"strings"

	"github.com/teranos/facts/errors"
)

// ErrDatabaseClosed is returned when the store is used after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed matches ErrDatabaseClosed and the driver's own
// "database is closed" errors, which are not wrapped at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
