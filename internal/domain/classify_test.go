package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWetDryRule(t *testing.T) {
	t.Run("at-least derives strict less", func(t *testing.T) {
		rule, err := NewWetDryRule(1.0, OpAtLeast)
		require.NoError(t, err)
		assert.Equal(t, OpLess, rule.DryOp)
	})

	t.Run("greater derives at-most", func(t *testing.T) {
		rule, err := NewWetDryRule(0.1, OpGreater)
		require.NoError(t, err)
		assert.Equal(t, OpAtMost, rule.DryOp)
	})

	t.Run("rejects dry-side operators", func(t *testing.T) {
		for _, op := range []Op{OpLess, OpAtMost, Op("=="), Op("")} {
			_, err := NewWetDryRule(1.0, op)
			assert.ErrorIs(t, err, ErrConfig, "operator %q", op)
		}
	})

	t.Run("rejects negative threshold", func(t *testing.T) {
		_, err := NewWetDryRule(-0.5, OpAtLeast)
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("zero threshold is allowed", func(t *testing.T) {
		_, err := NewWetDryRule(0, OpGreater)
		assert.NoError(t, err)
	})
}

func TestWetDryRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    WetDryRule
		wantErr bool
	}{
		{
			name: "complementary at-least pair",
			rule: WetDryRule{Threshold: 1, WetOp: OpAtLeast, DryOp: OpLess},
		},
		{
			name: "complementary greater pair",
			rule: WetDryRule{Threshold: 1, WetOp: OpGreater, DryOp: OpAtMost},
		},
		{
			name:    "threshold day counted twice",
			rule:    WetDryRule{Threshold: 1, WetOp: OpAtLeast, DryOp: OpAtMost},
			wantErr: true,
		},
		{
			name:    "threshold day counted never",
			rule:    WetDryRule{Threshold: 1, WetOp: OpGreater, DryOp: OpLess},
			wantErr: true,
		},
		{
			name:    "unknown operator",
			rule:    WetDryRule{Threshold: 1, WetOp: Op(">>"), DryOp: OpLess},
			wantErr: true,
		},
		{
			name:    "negative threshold",
			rule:    WetDryRule{Threshold: -1, WetOp: OpAtLeast, DryOp: OpLess},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWetDryRulePartition(t *testing.T) {
	atLeast, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)
	greater, err := NewWetDryRule(1.0, OpGreater)
	require.NoError(t, err)

	// Every value is exactly one of wet or dry under a valid rule.
	values := []float64{0, 0.2, 0.99, 1.0, 1.01, 2.5, 40}
	for _, rule := range []WetDryRule{atLeast, greater} {
		for _, v := range values {
			assert.NotEqual(t, rule.IsWet(v), rule.IsDry(v), "rule %s%g value %g", rule.WetOp, rule.Threshold, v)
		}
	}

	// The threshold day itself lands on opposite sides of the two pairs.
	assert.True(t, atLeast.IsWet(1.0))
	assert.False(t, greater.IsWet(1.0))
	assert.True(t, greater.IsDry(1.0))
}

func TestDryFlags(t *testing.T) {
	rule, err := NewWetDryRule(1.0, OpAtLeast)
	require.NoError(t, err)

	s := seriesFrom(NewDate(2020, 1, 1), 0, 5, 0, 0, 0, 2)
	assert.Equal(t, []bool{true, false, true, true, true, false}, rule.DryFlags(s))
}
