package variable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// population builds the variable used across these tests. "Now" is frozen
// at 2016-05-01, between the third and fourth observations.
func population() *Variable {
	v := New("population", WithClock(func() time.Time { return day(2016, time.May, 1) }))
	v.Add(Observation{Time: day(2016, time.May, 6), Value: 14, Source: "census"})
	v.Add(Observation{Time: day(2016, time.April, 1), Value: 10, Source: "wikipedia"})
	v.Add(Observation{Time: day(2016, time.April, 15), Value: 12, Source: "census"})
	v.Add(Observation{Time: day(2016, time.April, 1), Value: 11, Source: "wikidata"})
	return v
}

func values(v *Variable) []any {
	return v.Values()
}

func TestBefore(t *testing.T) {
	before := population().Before(day(2016, time.April, 14))

	obs := before.Observations()
	require.Len(t, obs, 2)
	assert.Equal(t, 10, obs[0].Value)
	assert.Equal(t, 11, obs[1].Value)
	assert.Equal(t, "population", before.Name)

	assert.Empty(t, population().Before(day(2016, time.April, 1)).Observations())
}

func TestAfter(t *testing.T) {
	assert.Equal(t, []any{12, 14}, values(population().After(day(2016, time.April, 15))))
	assert.Equal(t, []any{10, 11, 12, 14}, values(population().After(day(2016, time.January, 1))))
}

func TestBetween(t *testing.T) {
	assert.Equal(t, []any{10, 11, 12}, values(population().Between(day(2016, time.April, 1), day(2016, time.May, 6))))
}

func TestCurrent(t *testing.T) {
	cur, ok := population().Current()
	require.True(t, ok)
	assert.Equal(t, 12, cur.Value)
	assert.Equal(t, day(2016, time.April, 15), cur.Time)

	latest, ok := population().Latest()
	require.True(t, ok)
	assert.Equal(t, 14, latest.Value)
}

func TestAt(t *testing.T) {
	v := population()

	_, ok := v.At(day(2015, time.April, 1))
	assert.False(t, ok)

	// ties resolve to the observation added last
	o, ok := v.At(day(2016, time.April, 1))
	require.True(t, ok)
	assert.Equal(t, 11, o.Value)
	assert.Equal(t, "wikidata", o.Source)

	o, ok = v.At(day(2016, time.April, 20))
	require.True(t, ok)
	assert.Equal(t, 12, o.Value)

	o, ok = v.At(day(2030, time.January, 1))
	require.True(t, ok)
	assert.Equal(t, 14, o.Value)
}

func TestFrom(t *testing.T) {
	census := population().From("census")
	assert.Equal(t, []any{12, 14}, values(census))

	cur, ok := census.Current()
	require.True(t, ok)
	assert.Equal(t, 12, cur.Value)

	assert.Equal(t, 0, population().From("osm").Len())
}

func TestSources(t *testing.T) {
	assert.Equal(t, []string{"wikipedia", "wikidata", "census"}, population().Sources())
}

func TestEmpty(t *testing.T) {
	v := New("area")
	assert.Equal(t, 0, v.Len())
	assert.Empty(t, v.Observations())

	_, ok := v.Current()
	assert.False(t, ok)
	_, ok = v.Latest()
	assert.False(t, ok)
}

func TestAddAfterQuery(t *testing.T) {
	v := population()
	_, _ = v.Current()

	v.Add(Observation{Time: day(2016, time.April, 30), Value: 13, Source: "wikipedia"})

	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, 13, cur.Value)
	assert.Equal(t, 5, v.Len())
}

func TestSubViewsAreIndependent(t *testing.T) {
	v := population()
	sub := v.From("census")
	sub.Add(Observation{Time: day(2016, time.April, 20), Value: 99, Source: "census"})

	assert.Equal(t, 4, v.Len())
	assert.Equal(t, []any{12, 99, 14}, values(sub))
}

func TestObservationsIsCopy(t *testing.T) {
	v := population()
	obs := v.Observations()
	obs[0].Value = "changed"

	assert.Equal(t, 10, v.Observations()[0].Value)
}

func TestSetClock(t *testing.T) {
	v := population()
	v.SetClock(func() time.Time { return day(2016, time.April, 2) })

	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, 11, cur.Value)
}

func TestZeroVariable(t *testing.T) {
	var v Variable
	_, ok := v.Current()
	assert.False(t, ok)

	v.Add(Observation{Time: day(2016, time.April, 1), Value: 10, Source: "wikipedia"})
	v.Add(Observation{Time: time.Now().AddDate(10, 0, 0), Value: 20, Source: "wikipedia"})

	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, 10, cur.Value)
}
