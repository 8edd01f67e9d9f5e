package models

import (
	"math"

	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
)

// MarketInputs carries the market data a caller supplies with a pricing
// request. Spot and volatility are required and have no defaults.
type MarketInputs struct {
	SpotPrice    *float64 `json:"spot_price,omitempty"`
	Volatility   *float64 `json:"volatility,omitempty"`
	RiskFreeRate float64  `json:"risk_free_rate"`
}

// MarketSnapshot is the validated, immutable market state a valuation runs on
type MarketSnapshot struct {
	SpotPrice    float64 `json:"spot_price"`
	Volatility   float64 `json:"volatility"`
	RiskFreeRate float64 `json:"risk_free_rate"`
}

// NewMarketInputs builds inputs with every field present
func NewMarketInputs(spot, volatility, riskFreeRate float64) MarketInputs {
	return MarketInputs{
		SpotPrice:    &spot,
		Volatility:   &volatility,
		RiskFreeRate: riskFreeRate,
	}
}

// Snapshot validates the inputs and returns the snapshot to price against.
// Absent values are MissingInput; present but unusable values are
// InvalidParameter. A zero volatility is accepted and prices deterministically.
func (m MarketInputs) Snapshot() (MarketSnapshot, error) {
	if m.SpotPrice == nil {
		return MarketSnapshot{}, errors.MissingInput("spot_price")
	}
	if m.Volatility == nil {
		return MarketSnapshot{}, errors.MissingInput("volatility")
	}

	spot, vol, rate := *m.SpotPrice, *m.Volatility, m.RiskFreeRate
	switch {
	case !isFinite(spot) || spot <= 0:
		return MarketSnapshot{}, errors.InvalidParameter("spot_price must be positive, got %v", spot)
	case !isFinite(vol) || vol < 0:
		return MarketSnapshot{}, errors.InvalidParameter("volatility must be non-negative, got %v", vol)
	case !isFinite(rate):
		return MarketSnapshot{}, errors.InvalidParameter("risk_free_rate must be finite, got %v", rate)
	}

	return MarketSnapshot{SpotPrice: spot, Volatility: vol, RiskFreeRate: rate}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
