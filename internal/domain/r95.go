package domain

import "fmt"

// r95Percentile is the extreme-precipitation percentile (ETCCDI R95p).
const r95Percentile = 95

// BaselineRange is the reference period, an inclusive calendar-year range,
// used to fix the R95 threshold.
type BaselineRange struct {
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
}

// Validate rejects inverted ranges.
func (b BaselineRange) Validate() error {
	if b.StartYear > b.EndYear {
		return fmt.Errorf("%w: baseline start year %d after end year %d", ErrConfig, b.StartYear, b.EndYear)
	}
	return nil
}

// R95Threshold estimates the 95th-percentile wet-day precipitation over the
// baseline slice of the series. Returns nil when the baseline holds no wet
// days; the exceedance columns stay undefined for every block in that case.
func R95Threshold(s Series, rule WetDryRule, baseline BaselineRange) (*float64, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := baseline.Validate(); err != nil {
		return nil, err
	}

	var wet []float64
	for _, o := range s.YearRange(baseline.StartYear, baseline.EndYear) {
		if rule.IsWet(o.Precip) {
			wet = append(wet, o.Precip)
		}
	}
	if len(wet) == 0 {
		return nil, nil
	}
	t := percentile(wet, r95Percentile)
	return &t, nil
}
