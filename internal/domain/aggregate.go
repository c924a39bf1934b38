package domain

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BlockMetrics is the raw (pre-normalization) result for one block.
// Pointer fields are nil when the quantity is undefined: Intensity when the
// block has no wet days, the R95 columns when no baseline threshold exists.
// Nil is never interchangeable with zero.
type BlockMetrics struct {
	Block Block `json:"block"`

	Days        int     `json:"days"`
	TotalPrecip float64 `json:"total_precip_mm"`
	WetDays     int     `json:"wet_days"`
	DryDays     int     `json:"dry_days"`

	Intensity    *float64 `json:"intensity_mm,omitempty"` // INT: mean wet-day precipitation
	MeanDrySpell float64  `json:"mean_dry_spell_days"`    // DSL: 0 when the block has no dry runs
	MaxDrySpell  int      `json:"max_dry_spell_days"`     // CDD
	DrySpells    int      `json:"dry_spells"`

	R95Total *float64 `json:"r95_total_mm,omitempty"` // R95pTOT
	R95Days  *int     `json:"r95_days,omitempty"`     // R95pDAYS
}

// blockSpan is a contiguous index range of a series belonging to one block.
type blockSpan struct {
	block      Block
	start, end int
}

// blockSpans partitions a date-sorted series into per-block spans. Block
// assignment is monotone in date, so each block is exactly one contiguous
// span.
func blockSpans(s Series, kind BlockKind) []blockSpan {
	var spans []blockSpan
	for i := range s {
		b := BlockFor(kind, s[i].Date)
		if len(spans) == 0 || spans[len(spans)-1].block != b {
			spans = append(spans, blockSpan{block: b, start: i})
		}
		spans[len(spans)-1].end = i + 1
	}
	return spans
}

// metricsFor computes one block's raw metrics. The sub-series is the block's
// own slice, so dry runs restart at the block boundary by construction.
// r95 is the baseline-derived threshold, nil when undefined.
func metricsFor(b Block, sub Series, rule WetDryRule, r95 *float64) BlockMetrics {
	m := BlockMetrics{Block: b, Days: len(sub)}

	var wetValues []float64
	for _, o := range sub {
		m.TotalPrecip += o.Precip
		if rule.IsWet(o.Precip) {
			wetValues = append(wetValues, o.Precip)
		} else {
			m.DryDays++
		}
	}
	m.WetDays = len(wetValues)
	if m.WetDays > 0 {
		intensity := floats.Sum(wetValues) / float64(m.WetDays)
		m.Intensity = &intensity
	}

	lengths := dryLengths(Runs(rule.DryFlags(sub)))
	m.DrySpells = len(lengths)
	if len(lengths) > 0 {
		m.MeanDrySpell = stat.Mean(lengths, nil)
		m.MaxDrySpell = int(floats.Max(lengths))
	}

	if r95 != nil {
		var total float64
		var days int
		for _, o := range sub {
			if o.Precip >= *r95 {
				total += o.Precip
				days++
			}
		}
		m.R95Total = &total
		m.R95Days = &days
	}
	return m
}

// Aggregate partitions the series into blocks of the given kind and computes
// raw metrics for each non-empty block, in chronological order. The R95
// columns stay undefined here; ComputeTable fills them from a baseline.
func Aggregate(s Series, rule WetDryRule, kind BlockKind) ([]BlockMetrics, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseBlockKind(string(kind)); err != nil {
		return nil, err
	}
	return aggregate(s, rule, kind, nil), nil
}

func aggregate(s Series, rule WetDryRule, kind BlockKind, r95 *float64) []BlockMetrics {
	spans := blockSpans(s, kind)
	metrics := make([]BlockMetrics, len(spans))
	for i, sp := range spans {
		metrics[i] = metricsFor(sp.block, s[sp.start:sp.end], rule, r95)
	}
	return metrics
}
