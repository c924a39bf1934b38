package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day at UTC midnight. Series are daily, so the
// time-of-day component is never used; JSON carries "2006-01-02".
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date: %w", err)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	t, err := time.Parse(`"`+dateLayout+`"`, string(data))
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	d.Time = t
	return nil
}

// Observation is one daily precipitation reading in millimeters.
// Values are non-negative; loaders reject anything else before it gets here.
type Observation struct {
	Date   Date    `json:"date"`
	Precip float64 `json:"precip_mm"`
}

// Series is a date-ascending sequence of observations. Construct with
// NewSeries; computations never mutate it.
type Series []Observation

// NewSeries copies obs and stably sorts it ascending by date. Duplicate
// dates keep their input order; collapsing them is a loader decision.
func NewSeries(obs []Observation) Series {
	s := make(Series, len(obs))
	copy(s, obs)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date.Time) })
	return s
}

// Values returns the precipitation column.
func (s Series) Values() []float64 {
	vals := make([]float64, len(s))
	for i := range s {
		vals[i] = s[i].Precip
	}
	return vals
}

// YearRange returns the sub-series whose calendar years fall in [start, end].
func (s Series) YearRange(start, end int) Series {
	out := make(Series, 0, len(s))
	for _, o := range s {
		if y := o.Date.Year(); y >= start && y <= end {
			out = append(out, o)
		}
	}
	return out
}

// Fingerprint is a deterministic short hash of the series contents. Equal
// data produces equal fingerprints, so a republished table for unchanged
// input is byte-identical and downstream consumers can dedupe on it.
func (s Series) Fingerprint() string {
	h := sha256.New()
	for _, o := range s {
		fmt.Fprintf(h, "%s|%g\n", o.Date, o.Precip)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
