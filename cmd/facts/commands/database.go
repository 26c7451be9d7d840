package commands

import (
	"database/sql"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/db"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
	"github.com/teranos/facts/store"
)

// openStore opens and migrates the configured database.
func openStore(cfg *am.Config) (*sql.DB, *store.SQLStore, error) {
	path := cfg.Database.Path
	if path == "" {
		path = "facts.db"
	}
	conn, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return nil, nil, errors.WithHint(err, "set database.path in facts.toml or FACTS_DB_PATH")
	}
	return conn, store.NewSQLStore(conn, logger.ComponentLogger("store")), nil
}
