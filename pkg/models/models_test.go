package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
)

func ptr(v float64) *float64 { return &v }

func TestMarketInputsSnapshot(t *testing.T) {
	snap, err := NewMarketInputs(150, 0.25, 0.04).Snapshot()
	require.NoError(t, err)
	assert.Equal(t, MarketSnapshot{SpotPrice: 150, Volatility: 0.25, RiskFreeRate: 0.04}, snap)

	tests := []struct {
		name    string
		in      MarketInputs
		errType errors.ErrorType
	}{
		{"missing spot", MarketInputs{Volatility: ptr(0.2)}, errors.ErrorTypeMissingInput},
		{"missing volatility", MarketInputs{SpotPrice: ptr(100)}, errors.ErrorTypeMissingInput},
		{"zero spot", MarketInputs{SpotPrice: ptr(0), Volatility: ptr(0.2)}, errors.ErrorTypeInvalidParameter},
		{"negative volatility", MarketInputs{SpotPrice: ptr(100), Volatility: ptr(-0.1)}, errors.ErrorTypeInvalidParameter},
		{"nan spot", MarketInputs{SpotPrice: ptr(math.NaN()), Volatility: ptr(0.2)}, errors.ErrorTypeInvalidParameter},
		{"infinite rate", MarketInputs{SpotPrice: ptr(100), Volatility: ptr(0.2), RiskFreeRate: math.Inf(1)}, errors.ErrorTypeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Snapshot()
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.TypeOf(err))
		})
	}
}

func TestZeroVolatilityIsAccepted(t *testing.T) {
	_, err := NewMarketInputs(100, 0, 0.03).Snapshot()
	assert.NoError(t, err)
}

func TestTermsValidation(t *testing.T) {
	assert.NoError(t, ReverseConvertibleTerms{Principal: 10000, CouponRate: 8, BarrierLevel: 60, MaturityYears: 1}.Validate())
	assert.NoError(t, ReverseConvertibleTerms{Principal: 10000, CouponRate: 8, BarrierLevel: 60, MaturityYears: 0}.Validate())
	assert.Error(t, ReverseConvertibleTerms{Principal: 0, CouponRate: 8, BarrierLevel: 60, MaturityYears: 1}.Validate())
	assert.Error(t, ReverseConvertibleTerms{Principal: 10000, CouponRate: 8, BarrierLevel: 0, MaturityYears: 1}.Validate())
	assert.Error(t, ReverseConvertibleTerms{Principal: 10000, CouponRate: 8, BarrierLevel: 60, MaturityYears: -1}.Validate())

	ac := AutocallTerms{Principal: 10000, AutocallBarrier: 100, CouponRate: 8, BarrierLevel: 60, MaturityYears: 2, AutocallFrequency: 0.25}
	assert.NoError(t, ac.Validate())
	ac.AutocallFrequency = 0
	assert.True(t, errors.IsType(ac.Validate(), errors.ErrorTypeInvalidParameter))

	assert.NoError(t, CapitalProtectedTerms{Principal: 10000, ProtectionLevel: 100, ParticipationRate: 80, MaturityYears: 3}.Validate())
	assert.Error(t, CapitalProtectedTerms{Principal: 10000, ProtectionLevel: -5, ParticipationRate: 80, MaturityYears: 3}.Validate())

	w := WarrantTerms{StrikePrice: 160, WarrantType: WarrantCall, Leverage: 5, MaturityYears: 0.5}
	assert.NoError(t, w.Validate())
	w.Leverage = 0
	assert.Error(t, w.Validate())
	w.Leverage = 5
	w.WarrantType = "straddle"
	assert.Error(t, w.Validate())
}

func TestParseWarrantType(t *testing.T) {
	wt, err := ParseWarrantType("PUT")
	require.NoError(t, err)
	assert.Equal(t, WarrantPut, wt)

	wt, err = ParseWarrantType("")
	require.NoError(t, err)
	assert.Equal(t, WarrantCall, wt)

	_, err = ParseWarrantType("digital")
	assert.Error(t, err)
}

func TestObjectivesValidation(t *testing.T) {
	o := InvestorObjectives{
		Ticker: "AAPL", Principal: 10000, MinGainPct: 5, MaxLossPct: 20,
		RiskTolerance: 50, TimeHorizonYears: 2, Market: NewMarketInputs(150, 0.25, 0.04),
	}
	assert.NoError(t, o.Validate())

	o.RiskTolerance = 120
	assert.Error(t, o.Validate())
	o.RiskTolerance = 50
	o.TimeHorizonYears = 0
	assert.Error(t, o.Validate())
}

func TestRounded(t *testing.T) {
	r := ValuationResult{
		FairValue: 10123.456789,
		Greeks:    Greeks{Delta: -12.3456789, Gamma: 0.123456789, Vega: 3.14159, Theta: -0.98765},
		ReverseConvertible: &ReverseConvertibleComponents{
			CouponValue: 768.6249,
		},
	}
	out := r.Rounded()

	assert.Equal(t, 10123.46, out.FairValue)
	assert.Equal(t, -12.3457, out.Delta)
	assert.Equal(t, 0.123457, out.Gamma)
	assert.Equal(t, 3.14, out.Vega)
	assert.Equal(t, -0.99, out.Theta)
	assert.Equal(t, 768.62, out.ReverseConvertible.CouponValue)
	assert.Equal(t, 768.6249, r.ReverseConvertible.CouponValue, "source must be untouched")
}

func TestGreeksScale(t *testing.T) {
	g := Greeks{Delta: 0.5, Gamma: 0.01, Vega: 0.3, Theta: -0.02}.Scale(10)
	assert.InDelta(t, 5, g.Delta, 1e-12)
	assert.InDelta(t, 0.1, g.Gamma, 1e-12)
	assert.InDelta(t, 3, g.Vega, 1e-12)
	assert.InDelta(t, -0.2, g.Theta, 1e-12)
}
