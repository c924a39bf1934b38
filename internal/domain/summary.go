package domain

import "github.com/montanaflynn/stats"

// Summary is the whole-series headline figures: the numbers shown above the
// charts in the dashboards this engine replaces.
type Summary struct {
	Days         int      `json:"days"`
	TotalPrecip  float64  `json:"total_precip_mm"`
	WetDays      int      `json:"wet_days"`
	DryDays      int      `json:"dry_days"`
	DrySpells    int      `json:"dry_spells"`
	MeanDrySpell float64  `json:"mean_dry_spell_days"`
	MaxDrySpell  int      `json:"max_dry_spell_days"`
	MaxDaily     float64  `json:"max_daily_mm"`
	MeanDaily    float64  `json:"mean_daily_mm"`
	MeanWetDay   *float64 `json:"mean_wet_day_mm,omitempty"`
}

// Summarize computes headline metrics for a series under the given rule.
func Summarize(s Series, rule WetDryRule) (Summary, error) {
	if err := rule.Validate(); err != nil {
		return Summary{}, err
	}
	sum := Summary{Days: len(s)}
	if len(s) == 0 {
		return sum, nil
	}

	values := s.Values()
	var wetValues []float64
	for _, v := range values {
		if rule.IsWet(v) {
			wetValues = append(wetValues, v)
		} else {
			sum.DryDays++
		}
	}
	sum.WetDays = len(wetValues)

	// The stats helpers error only on empty input, which is excluded above.
	sum.TotalPrecip, _ = stats.Sum(values)
	sum.MaxDaily, _ = stats.Max(values)
	sum.MeanDaily, _ = stats.Mean(values)
	if len(wetValues) > 0 {
		m, _ := stats.Mean(wetValues)
		sum.MeanWetDay = &m
	}

	lengths := dryLengths(Runs(rule.DryFlags(s)))
	sum.DrySpells = len(lengths)
	if len(lengths) > 0 {
		sum.MeanDrySpell, _ = stats.Mean(lengths)
		maxLen, _ := stats.Max(lengths)
		sum.MaxDrySpell = int(maxLen)
	}
	return sum, nil
}
