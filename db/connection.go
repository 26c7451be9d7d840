// Package db opens the SQLite database observations are persisted in and
// applies the embedded schema migrations.
package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
)

// SQLiteBusyTimeoutMS is how long a writer waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

var pragmas = []struct {
	stmt string
	what string
}{
	{"PRAGMA journal_mode = WAL", "enable WAL mode"},
	{"PRAGMA foreign_keys = ON", "enable foreign keys"},
	{"PRAGMA busy_timeout = 5000", "set busy timeout"},
}

// Open opens the database at path with WAL, foreign keys and a busy
// timeout. A nil log keeps it silent.
func Open(path string, log *zap.SugaredLogger) (*sql.DB, error) {
	if log != nil {
		log.Debugw("opening database", logger.FieldPath, path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to %s", p.what)
		}
	}

	if log != nil {
		log.Infow("database opened", logger.FieldPath, path, "wal_mode", true)
	}
	return db, nil
}

// OpenWithMigrations opens path and brings its schema up to date.
func OpenWithMigrations(path string, log *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, log)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if err := Migrate(db, log); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "migrate %s", path)
	}
	return db, nil
}
