package domain

import (
	"errors"
	"fmt"
)

// ErrConfig marks fail-fast configuration errors: non-complementary wet/dry
// comparisons, unknown block kinds, inverted year ranges. Soft "no value"
// conditions are never errors; they surface as nil fields instead.
var ErrConfig = errors.New("invalid configuration")

// Op is a threshold comparison operator.
type Op string

const (
	OpGreater Op = ">"
	OpAtLeast Op = ">="
	OpLess    Op = "<"
	OpAtMost  Op = "<="
)

// WetDryRule classifies each observation as wet or dry. The two comparisons
// must be exact complements at the threshold, so every value is wet or dry,
// never both and never neither.
type WetDryRule struct {
	Threshold float64 `json:"threshold_mm"`
	WetOp     Op      `json:"wet_op"`
	DryOp     Op      `json:"dry_op"`
}

// NewWetDryRule builds a rule from the wet comparison alone, deriving the
// complementary dry comparison. wetOp must be ">" or ">=".
func NewWetDryRule(threshold float64, wetOp Op) (WetDryRule, error) {
	var dryOp Op
	switch wetOp {
	case OpGreater:
		dryOp = OpAtMost
	case OpAtLeast:
		dryOp = OpLess
	default:
		return WetDryRule{}, fmt.Errorf("%w: wet comparison %q (want %q or %q)", ErrConfig, wetOp, OpGreater, OpAtLeast)
	}
	if threshold < 0 {
		return WetDryRule{}, fmt.Errorf("%w: wet threshold %g is negative", ErrConfig, threshold)
	}
	return WetDryRule{Threshold: threshold, WetOp: wetOp, DryOp: dryOp}, nil
}

// Validate rejects rules whose comparisons do not partition at the
// threshold value.
func (r WetDryRule) Validate() error {
	switch {
	case r.WetOp == OpGreater && r.DryOp == OpAtMost:
	case r.WetOp == OpAtLeast && r.DryOp == OpLess:
	default:
		return fmt.Errorf("%w: wet %q with dry %q does not partition at the threshold", ErrConfig, r.WetOp, r.DryOp)
	}
	if r.Threshold < 0 {
		return fmt.Errorf("%w: wet threshold %g is negative", ErrConfig, r.Threshold)
	}
	return nil
}

// IsWet reports whether a precipitation value counts as a wet day.
func (r WetDryRule) IsWet(v float64) bool {
	if r.WetOp == OpGreater {
		return v > r.Threshold
	}
	return v >= r.Threshold
}

// IsDry applies the dry comparison literally. For a valid rule this is
// always !IsWet; Validate exists so an inconsistent pair is rejected rather
// than silently classifying the threshold value twice or not at all.
func (r WetDryRule) IsDry(v float64) bool {
	if r.DryOp == OpAtMost {
		return v <= r.Threshold
	}
	return v < r.Threshold
}

// DryFlags classifies the whole series, one flag per observation.
func (r WetDryRule) DryFlags(s Series) []bool {
	flags := make([]bool, len(s))
	for i := range s {
		flags[i] = r.IsDry(s[i].Precip)
	}
	return flags
}
