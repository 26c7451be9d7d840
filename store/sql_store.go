// Package store persists entities and their observations in SQLite. Values
// are kept as tagged JSON (see EncodeValue) so that every coerced kind
// round-trips with its type.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/facts/entity"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
	"github.com/teranos/facts/variable"
)

const (
	upsertEntityQuery = `
		INSERT INTO entities (key, title, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET title = excluded.title, updated_at = CURRENT_TIMESTAMP`

	insertObservationQuery = `
		INSERT INTO observations (id, entity, field, source, observed_at, observed_nanos, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	selectEntityQuery = `SELECT title FROM entities WHERE key = ?`

	selectObservationsQuery = `
		SELECT id, field, source, observed_at, observed_nanos, value
		FROM observations WHERE entity = ? ORDER BY rowid`

	selectVariableQuery = `
		SELECT id, field, source, observed_at, observed_nanos, value
		FROM observations WHERE entity = ? AND field = ? ORDER BY rowid`

	selectFieldsQuery = `SELECT DISTINCT field FROM observations WHERE entity = ? ORDER BY field`

	selectEntitiesQuery = `
		SELECT e.key, e.title, COUNT(o.id), e.updated_at
		FROM entities e LEFT JOIN observations o ON o.entity = e.key
		GROUP BY e.key ORDER BY e.key`

	statsQuery = `
		SELECT
			(SELECT COUNT(*) FROM entities),
			COUNT(*),
			COUNT(DISTINCT entity || char(0) || field),
			COUNT(DISTINCT source),
			COALESCE(MIN(observed_at), 0),
			COALESCE(MAX(observed_at), 0)
		FROM observations`
)

// observationNamespace seeds content-derived observation IDs.
var observationNamespace = uuid.MustParse("6f1c0a52-3b8e-4c1e-9a57-5d2f1e7c9b10")

// SQLStore reads and writes entities in the schema created by db.Migrate.
type SQLStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewSQLStore wraps an open, migrated database. A nil logger falls back to
// the "store" component logger.
func NewSQLStore(db *sql.DB, log *zap.SugaredLogger) *SQLStore {
	if log == nil {
		log = logger.ComponentLogger("store")
	}
	return &SQLStore{db: db, logger: log}
}

// ObservationID returns o.ID, or a name-based UUID of the observation's
// content so that saving the same observation twice stores it once.
func ObservationID(entityKey, field string, o variable.Observation, encoded string) string {
	if o.ID != "" {
		return o.ID
	}
	name := entityKey + "\x00" + field + "\x00" + o.Source + "\x00" +
		strconv.FormatInt(o.Time.Unix(), 10) + "." + strconv.Itoa(o.Time.Nanosecond()) + "\x00" + encoded
	return uuid.NewSHA1(observationNamespace, []byte(name)).String()
}

// SaveEntity writes the entity and all its observations in one
// transaction and returns how many observations were new.
func (s *SQLStore) SaveEntity(ctx context.Context, e *entity.Entity) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin save")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertEntityQuery, e.Key, e.Title); err != nil {
		return 0, errors.Wrapf(err, "save entity %s", e.Key)
	}

	stmt, err := tx.PrepareContext(ctx, insertObservationQuery)
	if err != nil {
		return 0, errors.Wrap(err, "prepare observation insert")
	}
	defer stmt.Close()

	inserted := 0
	for _, field := range e.Fields() {
		v, _ := e.Get(field)
		for _, o := range v.Observations() {
			encoded, err := EncodeValue(o.Value)
			if err != nil {
				return 0, errors.Wrapf(err, "encode %s.%s", e.Key, field)
			}
			res, err := stmt.ExecContext(ctx,
				ObservationID(e.Key, field, o, encoded),
				e.Key, field, o.Source,
				o.Time.Unix(), o.Time.Nanosecond(),
				encoded)
			if err != nil {
				return 0, errors.Wrapf(err, "insert %s.%s", e.Key, field)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit save")
	}
	s.logger.Debugw("entity saved", logger.FieldEntity, e.Key, logger.FieldCount, inserted)
	return inserted, nil
}

// LoadEntity rebuilds an entity from its stored observations.
func (s *SQLStore) LoadEntity(ctx context.Context, key string) (*entity.Entity, error) {
	var title string
	err := s.db.QueryRowContext(ctx, selectEntityQuery, key).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("entity %q", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load entity %s", key)
	}

	e := entity.New(title)
	e.Key = key

	err = s.scan(ctx, func(field string, o variable.Observation) {
		e.Observe(field, o)
	}, selectObservationsQuery, key)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// LoadVariable rebuilds one field of an entity.
func (s *SQLStore) LoadVariable(ctx context.Context, key, field string, opts ...variable.Option) (*variable.Variable, error) {
	v := variable.New(field, opts...)
	err := s.scan(ctx, func(_ string, o variable.Observation) {
		v.Add(o)
	}, selectVariableQuery, key, field)
	if err != nil {
		return nil, err
	}
	if v.Len() == 0 {
		return nil, errors.NewNotFoundError("no observations of %s.%s", key, field)
	}
	return v, nil
}

func (s *SQLStore) scan(ctx context.Context, add func(string, variable.Observation), query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "query observations")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, field, source, encoded string
			secs                       int64
			nanos                      int64
		)
		if err := rows.Scan(&id, &field, &source, &secs, &nanos, &encoded); err != nil {
			return errors.Wrap(err, "scan observation")
		}
		val, err := DecodeValue(encoded)
		if err != nil {
			return errors.Wrapf(err, "decode observation %s", id)
		}
		add(field, variable.Observation{
			ID:     id,
			Time:   time.Unix(secs, nanos).UTC(),
			Value:  val,
			Source: source,
		})
	}
	return errors.Wrap(rows.Err(), "iterate observations")
}

// ListFields returns the entity's stored field names in sorted order.
func (s *SQLStore) ListFields(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, selectFieldsQuery, key)
	if err != nil {
		return nil, errors.Wrap(err, "query fields")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, errors.Wrap(err, "scan field")
		}
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "iterate fields")
}

// EntitySummary is one row of ListEntities.
type EntitySummary struct {
	Key          string    `json:"key" yaml:"key"`
	Title        string    `json:"title" yaml:"title"`
	Observations int       `json:"observations" yaml:"observations"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// ListEntities summarises every stored entity, ordered by key.
func (s *SQLStore) ListEntities(ctx context.Context) ([]EntitySummary, error) {
	rows, err := s.db.QueryContext(ctx, selectEntitiesQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query entities")
	}
	defer rows.Close()

	var out []EntitySummary
	for rows.Next() {
		var (
			es      EntitySummary
			updated any
		)
		if err := rows.Scan(&es.Key, &es.Title, &es.Observations, &updated); err != nil {
			return nil, errors.Wrap(err, "scan entity")
		}
		es.UpdatedAt = sqliteTime(updated)
		out = append(out, es)
	}
	return out, errors.Wrap(rows.Err(), "iterate entities")
}

// Stats describes the store's contents.
type Stats struct {
	Entities     int       `json:"entities" yaml:"entities"`
	Observations int       `json:"observations" yaml:"observations"`
	Variables    int       `json:"variables" yaml:"variables"`
	Sources      int       `json:"sources" yaml:"sources"`
	Oldest       time.Time `json:"oldest" yaml:"oldest"`
	Newest       time.Time `json:"newest" yaml:"newest"`
}

// Stats counts stored rows. Oldest and Newest are zero for an empty store.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var (
		st             Stats
		oldest, newest int64
	)
	err := s.db.QueryRowContext(ctx, statsQuery).Scan(
		&st.Entities, &st.Observations, &st.Variables, &st.Sources, &oldest, &newest)
	if err != nil {
		return Stats{}, errors.Wrap(err, "query stats")
	}
	if st.Observations > 0 {
		st.Oldest = time.Unix(oldest, 0).UTC()
		st.Newest = time.Unix(newest, 0).UTC()
	}
	return st, nil
}

// sqliteTime accepts CURRENT_TIMESTAMP columns however the driver hands
// them back.
func sqliteTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseSQLiteTime(t)
	case []byte:
		return parseSQLiteTime(string(t))
	}
	return time.Time{}
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
