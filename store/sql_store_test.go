package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/facts/entity"
	"github.com/teranos/facts/errors"
	testutil "github.com/teranos/facts/internal/testing"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/value"
	"github.com/teranos/facts/variable"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ukraine() *entity.Entity {
	e := entity.New("Ukraine")
	e.Observe("area", variable.Observation{Time: day(2016, 4, 1), Value: measure.MustOf(603628, "km²"), Source: "wikipedia"})
	e.Observe("capital", variable.Observation{Time: day(2016, 4, 1), Value: value.NewLink("wikipedia", "Kyiv"), Source: "wikipedia"})
	e.Observe("population", variable.Observation{Time: day(2015, 1, 1), Value: int64(45154029), Source: "worldbank"})
	e.Observe("population", variable.Observation{Time: day(2016, 1, 1), Value: int64(45004645), Source: "worldbank"})
	e.Observe("borders", variable.Observation{
		Time:   day(2016, 4, 1),
		Value:  []any{value.NewLink("wikipedia", "Poland"), value.NewLink("wikipedia", "Moldova")},
		Source: "wikipedia",
	})
	return e
}

func newStore(t *testing.T) *SQLStore {
	return NewSQLStore(testutil.CreateTestDB(t), zaptest.NewLogger(t).Sugar())
}

func TestSaveAndLoadEntity(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.SaveEntity(ctx, ukraine())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.SaveEntity(ctx, ukraine())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "resaving identical observations stores nothing")

	e, err := s.LoadEntity(ctx, "ukraine")
	require.NoError(t, err)
	assert.Equal(t, "Ukraine", e.Title)
	assert.Equal(t, []string{"area", "borders", "capital", "population"}, e.Fields())

	e.WithClock(func() time.Time { return day(2015, 6, 1) })
	assert.Equal(t, map[string]any{"population": int64(45154029)}, e.Current())

	e.WithClock(func() time.Time { return day(2017, 1, 1) })
	cur := e.Current()
	assert.Equal(t, int64(45004645), cur["population"])
	assert.Equal(t, measure.MustOf(603628, "km²"), cur["area"])
	assert.Equal(t, value.NewLink("wikipedia", "Kyiv"), cur["capital"])
	assert.Len(t, cur["borders"], 2)

	pop, ok := e.Get("population")
	require.True(t, ok)
	for _, o := range pop.Observations() {
		assert.NotEmpty(t, o.ID)
	}
}

func TestSaveKeepsExplicitIDs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	e := entity.New("Kyiv")
	e.Observe("population", variable.Observation{ID: "census-2001", Time: day(2001, 12, 5), Value: int64(2611327), Source: "census"})
	_, err := s.SaveEntity(ctx, e)
	require.NoError(t, err)

	v, err := s.LoadVariable(ctx, "kyiv", "population")
	require.NoError(t, err)
	latest, ok := v.Latest()
	require.True(t, ok)
	assert.Equal(t, "census-2001", latest.ID)
	assert.Equal(t, day(2001, 12, 5), latest.Time)
}

func TestLoadNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.LoadEntity(ctx, "atlantis")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = s.SaveEntity(ctx, ukraine())
	require.NoError(t, err)
	_, err = s.LoadVariable(ctx, "ukraine", "anthem")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestLoadVariableClock(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.SaveEntity(ctx, ukraine())
	require.NoError(t, err)

	v, err := s.LoadVariable(ctx, "ukraine", "population", variable.WithClock(func() time.Time { return day(2015, 6, 1) }))
	require.NoError(t, err)
	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, int64(45154029), cur.Value)
	assert.Equal(t, []string{"worldbank"}, v.Sources())
}

func TestListingAndStats(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	_, err = s.SaveEntity(ctx, ukraine())
	require.NoError(t, err)
	kyiv := entity.New("Kyiv")
	kyiv.Observe("population", variable.Observation{Time: day(2016, 1, 1), Value: int64(2900000), Source: "census"})
	_, err = s.SaveEntity(ctx, kyiv)
	require.NoError(t, err)

	fields, err := s.ListFields(ctx, "ukraine")
	require.NoError(t, err)
	assert.Equal(t, []string{"area", "borders", "capital", "population"}, fields)

	entities, err := s.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "kyiv", entities[0].Key)
	assert.Equal(t, 1, entities[0].Observations)
	assert.Equal(t, "Ukraine", entities[1].Title)
	assert.Equal(t, 5, entities[1].Observations)
	assert.False(t, entities[1].UpdatedAt.IsZero())

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Entities:     2,
		Observations: 6,
		Variables:    5,
		Sources:      3,
		Oldest:       day(2015, 1, 1),
		Newest:       day(2016, 4, 1),
	}, st)
}

func TestSaveUnencodableRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	e := entity.New("Ukraine")
	e.Observe("anthem", variable.Observation{Time: day(2016, 1, 1), Value: struct{ Lyrics string }{"..."}})
	_, err := s.SaveEntity(ctx, e)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))

	_, err = s.LoadEntity(ctx, "ukraine")
	assert.True(t, errors.IsNotFoundError(err), "entity row must not survive the rollback")
}

func TestSaveInsertFailureRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entities").
		WithArgs("kyiv", "Kyiv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare("INSERT INTO observations").
		ExpectExec().
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	e := entity.New("Kyiv")
	e.Observe("population", variable.Observation{Time: day(2016, 1, 1), Value: int64(2900000), Source: "census"})

	_, err = NewSQLStore(conn, zaptest.NewLogger(t).Sugar()).SaveEntity(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert kyiv.population")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveCommitFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entities").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare("INSERT INTO observations")
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, err = NewSQLStore(conn, nil).SaveEntity(context.Background(), entity.New("Kyiv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit save")
	assert.NoError(t, mock.ExpectationsWereMet())
}
