package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := ParseDate("2020-01-15")
		require.NoError(t, err)
		assert.Equal(t, NewDate(2020, time.January, 15), d)
	})

	t.Run("rejects other layouts", func(t *testing.T) {
		for _, s := range []string{"15/01/2020", "2020-1-5", "2020-01-15T00:00:00Z", "20200115", "", "yesterday"} {
			_, err := ParseDate(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2019, time.December, 15)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2019-12-15"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)

	var obs Observation
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2020-02-29","precip_mm":1.5}`), &obs))
	assert.Equal(t, NewDate(2020, time.February, 29), obs.Date)
	assert.Equal(t, 1.5, obs.Precip)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"29/02/2020"}`), &obs))
}

func TestNewSeries(t *testing.T) {
	t.Run("sorts by date", func(t *testing.T) {
		in := []Observation{
			{Date: NewDate(2020, time.March, 1), Precip: 3},
			{Date: NewDate(2020, time.January, 1), Precip: 1},
			{Date: NewDate(2020, time.February, 1), Precip: 2},
		}
		s := NewSeries(in)

		assert.Equal(t, []float64{1, 2, 3}, s.Values())
		// Input order is untouched.
		assert.Equal(t, 3.0, in[0].Precip)
	})

	t.Run("duplicate dates keep input order", func(t *testing.T) {
		d := NewDate(2020, time.June, 1)
		s := NewSeries([]Observation{
			{Date: d, Precip: 1},
			{Date: d, Precip: 2},
		})
		assert.Equal(t, []float64{1, 2}, s.Values())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NewSeries(nil))
	})
}

func TestSeriesYearRange(t *testing.T) {
	s := seriesFrom(NewDate(2019, time.December, 30), 1, 2, 3, 4)

	sub := s.YearRange(2020, 2020)
	require.Len(t, sub, 2)
	assert.Equal(t, NewDate(2020, time.January, 1), sub[0].Date)
	assert.Equal(t, NewDate(2020, time.January, 2), sub[1].Date)

	assert.Empty(t, s.YearRange(2021, 2022))
	assert.Len(t, s.YearRange(2019, 2020), 4)
}

func TestSeriesFingerprint(t *testing.T) {
	a := seriesFrom(NewDate(2020, time.January, 1), 0, 5, 0)
	b := seriesFrom(NewDate(2020, time.January, 1), 0, 5, 0)
	c := seriesFrom(NewDate(2020, time.January, 1), 0, 5, 1)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEmpty(t, Series{}.Fingerprint())
}

// --- helpers ---

// seriesFrom builds a series of consecutive daily observations starting at
// start, one per value.
func seriesFrom(start Date, values ...float64) Series {
	obs := make([]Observation, len(values))
	for i, v := range values {
		obs[i] = Observation{Date: Date{start.AddDate(0, 0, i)}, Precip: v}
	}
	return NewSeries(obs)
}
