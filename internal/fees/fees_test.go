package fees_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearlot/internal/fees"
)

func TestAddServiceFee_RoundsUpToCent(t *testing.T) {
	// 10.00 * 1.035 = 10.35 exactly, no rounding needed
	assert.Equal(t, 10.35, fees.AddServiceFee(10.00, 0.035))
	// 10.01 * 1.035 = 10.36035 -> ceil -> 10.37
	assert.Equal(t, 10.37, fees.AddServiceFee(10.01, 0.035))
	assert.Equal(t, 0.0, fees.AddServiceFee(0, 0.035))
}

func TestRemoveServiceFee_RoundsDown(t *testing.T) {
	// 10.37 / 1.035 = 10.0193... -> floor -> 10.01
	assert.Equal(t, 10.01, fees.RemoveServiceFee(10.37, 0.035))
	assert.Equal(t, 10.00, fees.RemoveServiceFee(10.35, 0.035))
}

// Add-then-remove never exceeds the base and loses at most one cent.
func TestFeeRoundTrip_NeverGains(t *testing.T) {
	bases := []float64{0, 0.01, 0.99, 1, 5.55, 9.99, 10, 10.01, 49.95,
		100, 123.45, 999.99, 2500, 33333.33}
	rates := []float64{0, 0.01, 0.035, 0.1, 0.25}
	for _, rate := range rates {
		for _, base := range bases {
			got := fees.RemoveServiceFee(fees.AddServiceFee(base, rate), rate)
			require.LessOrEqual(t, got, base,
				"round-trip gained money: base=%v rate=%v got=%v", base, rate, got)
			require.LessOrEqual(t, base-got, 0.01+1e-9,
				"round-trip lost more than a cent: base=%v rate=%v got=%v", base, rate, got)
		}
	}
}

func TestSubtractServiceFee_OrdinaryRounding(t *testing.T) {
	// 100 * 0.965 = 96.50
	assert.Equal(t, 96.50, fees.SubtractServiceFee(100, 0.035))
	// 10.01 * 0.965 = 9.65965 -> round -> 9.66 (differs from floor)
	assert.Equal(t, 9.66, fees.SubtractServiceFee(10.01, 0.035))
}
