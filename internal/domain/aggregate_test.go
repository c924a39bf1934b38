package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSingleYear(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	s := seriesFrom(NewDate(2020, 1, 1), 0, 5, 0, 0, 0, 2)

	blocks, err := Aggregate(s, rule, BlockYear)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, Block{Year: 2020}, b.Block)
	assert.Equal(t, 6, b.Days)
	assert.InDelta(t, 7.0, b.TotalPrecip, 1e-9)
	assert.Equal(t, 2, b.WetDays)
	assert.Equal(t, 4, b.DryDays)

	require.NotNil(t, b.Intensity)
	assert.InDelta(t, 3.5, *b.Intensity, 1e-9)

	assert.InDelta(t, 2.0, b.MeanDrySpell, 1e-9)
	assert.Equal(t, 3, b.MaxDrySpell)
	assert.Equal(t, 2, b.DrySpells)

	assert.Nil(t, b.R95Total)
	assert.Nil(t, b.R95Days)
}

func TestAggregateAllDry(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	blocks, err := Aggregate(seriesFrom(NewDate(2020, 1, 1), 0, 0, 0, 0, 0), rule, BlockYear)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Nil(t, b.Intensity)
	assert.Equal(t, 0, b.WetDays)
	assert.Equal(t, 5, b.DryDays)
	assert.Equal(t, 1, b.DrySpells)
	assert.InDelta(t, 5.0, b.MeanDrySpell, 1e-9)
	assert.Equal(t, 5, b.MaxDrySpell)
}

func TestAggregateAllWet(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	blocks, err := Aggregate(seriesFrom(NewDate(2020, 1, 1), 2, 3, 4), rule, BlockYear)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	require.NotNil(t, b.Intensity)
	assert.InDelta(t, 3.0, *b.Intensity, 1e-9)
	assert.Equal(t, 0, b.DryDays)
	assert.Equal(t, 0, b.DrySpells)
	assert.InDelta(t, 0.0, b.MeanDrySpell, 1e-9)
	assert.Equal(t, 0, b.MaxDrySpell)
}

func TestAggregateRunsResetAtBlockBoundary(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	// Five consecutive dry days straddle the year boundary: three in 2020,
	// two in 2021. Each year counts only its own side of the run.
	s := seriesFrom(NewDate(2020, 12, 28), 5, 0, 0, 0, 0, 0, 5)

	blocks, err := Aggregate(s, rule, BlockYear)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, Block{Year: 2020}, blocks[0].Block)
	assert.Equal(t, 3, blocks[0].MaxDrySpell)
	assert.Equal(t, 1, blocks[0].DrySpells)

	assert.Equal(t, Block{Year: 2021}, blocks[1].Block)
	assert.Equal(t, 2, blocks[1].MaxDrySpell)
	assert.Equal(t, 1, blocks[1].DrySpells)
}

func TestAggregateSeasonBlocks(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	s := NewSeries([]Observation{
		{Date: NewDate(2019, 11, 15), Precip: 2},
		{Date: NewDate(2019, 12, 15), Precip: 0},
		{Date: NewDate(2020, 1, 15), Precip: 3},
	})

	blocks, err := Aggregate(s, rule, BlockSeason)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, Block{Year: 2019, Label: "SON"}, blocks[0].Block)
	assert.Equal(t, 1, blocks[0].Days)

	// December 2019 and January 2020 share the 2020 winter.
	assert.Equal(t, Block{Year: 2020, Label: "DJF"}, blocks[1].Block)
	assert.Equal(t, 2, blocks[1].Days)
	assert.Equal(t, 1, blocks[1].WetDays)
	assert.Equal(t, 1, blocks[1].DryDays)
}

func TestAggregatePartition(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	s := seriesFrom(NewDate(2019, 12, 20),
		0, 4, 0, 0, 7, 1, 0, 0, 0, 2, 0, 5, 5, 0, 1, 0, 0, 3, 0, 0)

	for _, kind := range []BlockKind{BlockYear, BlockSeason, BlockHalfYear} {
		blocks, err := Aggregate(s, rule, kind)
		require.NoError(t, err)

		days := 0
		for _, b := range blocks {
			assert.Equal(t, b.Days, b.WetDays+b.DryDays, "block %s", b.Block.Key())
			days += b.Days
		}
		assert.Equal(t, len(s), days, "kind %s", kind)
	}
}

func TestAggregateEmptySeries(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	blocks, err := Aggregate(nil, rule, BlockYear)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestAggregateConfigErrors(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	s := seriesFrom(NewDate(2020, 1, 1), 1, 2)

	_, err = Aggregate(s, WetDryRule{Threshold: 1, WetOp: OpAtLeast, DryOp: OpAtMost}, BlockYear)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = Aggregate(s, rule, BlockKind("month"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBlockSpansContiguous(t *testing.T) {
	s := seriesFrom(NewDate(2020, 6, 25), 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)

	spans := blockSpans(s, BlockHalfYear)
	require.Len(t, spans, 2)

	assert.Equal(t, 0, spans[0].start)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].end, spans[i].start)
	}
	assert.Equal(t, len(s), spans[len(spans)-1].end)
}

func TestMetricsForExceedance(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	sub := seriesFrom(NewDate(2020, 1, 1), 5, 0.5, 4, 1)
	threshold := 3.85

	m := metricsFor(Block{Year: 2020}, sub, rule, &threshold)
	require.NotNil(t, m.R95Days)
	require.NotNil(t, m.R95Total)
	assert.Equal(t, 2, *m.R95Days)
	assert.InDelta(t, 9.0, *m.R95Total, 1e-9)
}

func TestMetricsForExceedanceBoundary(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	// A day exactly at the threshold counts.
	sub := seriesFrom(NewDate(2020, 1, 1), 3.85)
	threshold := 3.85

	m := metricsFor(Block{Year: 2020}, sub, rule, &threshold)
	require.NotNil(t, m.R95Days)
	assert.Equal(t, 1, *m.R95Days)
}

func TestMetricsForExceedanceMonotone(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	sub := seriesFrom(NewDate(2020, 1, 1), 5, 0.5, 4, 1, 8, 2)

	low, high := 1.0, 4.5
	mLow := metricsFor(Block{Year: 2020}, sub, rule, &low)
	mHigh := metricsFor(Block{Year: 2020}, sub, rule, &high)

	require.NotNil(t, mLow.R95Days)
	require.NotNil(t, mHigh.R95Days)
	assert.GreaterOrEqual(t, *mLow.R95Days, *mHigh.R95Days)
	assert.GreaterOrEqual(t, *mLow.R95Total, *mHigh.R95Total)
}
