package domain

import "gonum.org/v1/gonum/stat"

// NormalizedIndex holds the selection-relative indices for one block. Every
// field is nil when its denominator mean is zero or undefined, or (for
// HyInt) when either factor is.
type NormalizedIndex struct {
	IntensityNorm *float64 `json:"intensity_norm,omitempty"` // INT / mean(INT over selection)
	DrySpellNorm  *float64 `json:"dry_spell_norm,omitempty"` // DSL / mean(DSL over selection)
	HyInt         *float64 `json:"hy_int,omitempty"`         // INT_norm * DSL_norm
}

// Normalize computes per-block normalized indices relative to the given
// selection. The means cover exactly these blocks: mean INT over the blocks
// with a defined INT, mean DSL over all of them. Changing the selection
// changes every value in the result; HY-INT measures each block against the
// norm of the period under study, so that sensitivity is part of the
// contract.
func Normalize(blocks []BlockMetrics) []NormalizedIndex {
	var intVals []float64
	dslVals := make([]float64, 0, len(blocks))
	for i := range blocks {
		if blocks[i].Intensity != nil {
			intVals = append(intVals, *blocks[i].Intensity)
		}
		dslVals = append(dslVals, blocks[i].MeanDrySpell)
	}

	var meanInt, meanDSL float64
	if len(intVals) > 0 {
		meanInt = stat.Mean(intVals, nil)
	}
	if len(dslVals) > 0 {
		meanDSL = stat.Mean(dslVals, nil)
	}

	out := make([]NormalizedIndex, len(blocks))
	for i := range blocks {
		var n NormalizedIndex
		if blocks[i].Intensity != nil && meanInt != 0 {
			v := *blocks[i].Intensity / meanInt
			n.IntensityNorm = &v
		}
		if meanDSL != 0 {
			v := blocks[i].MeanDrySpell / meanDSL
			n.DrySpellNorm = &v
		}
		if n.IntensityNorm != nil && n.DrySpellNorm != nil {
			v := *n.IntensityNorm * *n.DrySpellNorm
			n.HyInt = &v
		}
		out[i] = n
	}
	return out
}
