package valuation

import (
	"context"
	"math"
	"strings"

	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/pkg/models"
)

// ValueWarrant prices a leveraged warrant position. With a principal the
// position is as many units as the principal buys; without one it is the
// engine's default unit count.
func (e *Engine) ValueWarrant(ctx context.Context, market models.MarketInputs, terms models.WarrantTerms) (*models.ValuationResult, error) {
	snap, err := market.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	S, sigma, r := snap.SpotPrice, snap.Volatility, snap.RiskFreeRate
	K, T, lev := terms.StrikePrice, terms.MaturityYears, terms.Leverage
	side := pricing.OptionTypeOf(terms.WarrantType)

	option := pricing.Price(S, K, T, r, sigma, side)
	intrinsic := pricing.IntrinsicValue(S, K, side)
	unitPrice := option * lev

	var units, invested float64
	if terms.Principal > 0 {
		invested = terms.Principal
		if unitPrice > 0 {
			units = terms.Principal / unitPrice
		}
	} else {
		units = float64(e.config.DefaultWarrantUnits)
		invested = unitPrice * units
	}
	exposure := lev * units

	var maxGain, probability, breakEven float64
	if side == pricing.Call {
		// Gain if the underlying rallies 50%
		maxGain = math.Max(1.5*S-K, 0) * exposure
		probability = pricing.ProbabilityAbove(S, K, T, r, sigma)
		breakEven = K + option
	} else {
		maxGain = K * exposure
		probability = pricing.ProbabilityBelow(S, K, T, r, sigma)
		breakEven = math.Max(0, K-option)
	}

	res := &models.ValuationResult{
		Product:           "Warrant " + strings.ToUpper(side.String()),
		ProductType:       models.ProductWarrant,
		FairValue:         invested,
		MaxGain:           maxGain,
		MaxLoss:           invested,
		RiskLevel:         clampRisk(50 + lev*8),
		ProbabilityProfit: probability,
		BreakEvenPrice:    breakEven,
		Greeks:            pricing.CalculateGreeks(S, K, T, r, sigma, side).Scale(exposure),
		Warrant: &models.WarrantComponents{
			WarrantType:    terms.WarrantType,
			OptionValue:    option,
			UnitPrice:      unitPrice,
			Leverage:       lev,
			StrikePrice:    K,
			Units:          units,
			IntrinsicValue: intrinsic * exposure,
			TimeValue:      (option - intrinsic) * exposure,
		},
	}

	return e.finalize(res)
}
