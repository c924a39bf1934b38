package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// YearSelection restricts a table to observations whose calendar year falls
// in [From, To]. The normalization means are taken over the restricted
// blocks only.
type YearSelection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Validate rejects inverted selections.
func (y YearSelection) Validate() error {
	if y.From > y.To {
		return fmt.Errorf("%w: year selection %d after %d", ErrConfig, y.From, y.To)
	}
	return nil
}

// TableOptions configures one table computation.
type TableOptions struct {
	Group    string
	Rule     WetDryRule
	Kind     BlockKind
	Baseline *BaselineRange // nil leaves the R95 columns undefined
	Years    *YearSelection // nil selects the whole series
}

// Row is one block's full result: raw metrics plus selection-relative
// indices.
type Row struct {
	BlockMetrics
	NormalizedIndex
}

// Table is the complete result set for one group and one selection.
type Table struct {
	Group        string         `json:"group,omitempty"`
	Kind         BlockKind      `json:"block_kind"`
	Rule         WetDryRule     `json:"rule"`
	Baseline     *BaselineRange `json:"baseline,omitempty"`
	R95Threshold *float64       `json:"r95_threshold_mm,omitempty"`
	Rows         []Row          `json:"rows"`
	Fingerprint  string         `json:"fingerprint"`
	ComputedAt   time.Time      `json:"computed_at"`
}

// ComputeTable runs the full two-phase computation: estimate the R95
// threshold from the baseline slice of the full series, aggregate raw
// metrics over the selected observations, then normalize over exactly the
// resulting blocks. Results are computed fresh on every call; nothing is
// cached between calls.
func ComputeTable(s Series, opts TableOptions) (Table, error) {
	if err := opts.Rule.Validate(); err != nil {
		return Table{}, err
	}
	if _, err := ParseBlockKind(string(opts.Kind)); err != nil {
		return Table{}, err
	}
	if opts.Years != nil {
		if err := opts.Years.Validate(); err != nil {
			return Table{}, err
		}
	}

	// The baseline is sliced from the full series, not the selection, so a
	// narrowed display range keeps the same reference threshold.
	var threshold *float64
	if opts.Baseline != nil {
		t, err := R95Threshold(s, opts.Rule, *opts.Baseline)
		if err != nil {
			return Table{}, err
		}
		threshold = t
	}

	sel := s
	if opts.Years != nil {
		sel = s.YearRange(opts.Years.From, opts.Years.To)
	}

	metrics := aggregate(sel, opts.Rule, opts.Kind, threshold)
	normalized := Normalize(metrics)

	rows := make([]Row, len(metrics))
	for i := range metrics {
		rows[i] = Row{BlockMetrics: metrics[i], NormalizedIndex: normalized[i]}
	}

	return Table{
		Group:        opts.Group,
		Kind:         opts.Kind,
		Rule:         opts.Rule,
		Baseline:     opts.Baseline,
		R95Threshold: threshold,
		Rows:         rows,
		Fingerprint:  tableFingerprint(sel, opts),
		ComputedAt:   clock.Now().UTC(),
	}, nil
}

// tableFingerprint identifies a computation deterministically: same selected
// data and same options, same fingerprint.
func tableFingerprint(sel Series, opts TableOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%g|%s", opts.Group, sel.Fingerprint(), opts.Kind, opts.Rule.Threshold, opts.Rule.WetOp)
	if opts.Baseline != nil {
		fmt.Fprintf(h, "|%d-%d", opts.Baseline.StartYear, opts.Baseline.EndYear)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
