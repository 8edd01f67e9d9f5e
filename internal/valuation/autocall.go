package valuation

import (
	"context"

	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/pkg/models"
)

// ValueAutocall prices an autocall note by Monte Carlo simulation. Greeks
// approximate the embedded put at the protection barrier.
func (e *Engine) ValueAutocall(ctx context.Context, market models.MarketInputs, terms models.AutocallTerms) (*models.ValuationResult, error) {
	snap, err := market.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	S, sigma, r := snap.SpotPrice, snap.Volatility, snap.RiskFreeRate
	P, T := terms.Principal, terms.MaturityYears
	trigger := S * terms.AutocallBarrier / 100
	protection := S * terms.BarrierLevel / 100

	est, err := e.simulator.SimulateAutocall(ctx, pricing.AutocallParams{
		Spot:            S,
		AutocallTrigger: trigger,
		ProtectionLevel: protection,
		Maturity:        T,
		Rate:            r,
		Volatility:      sigma,
		Coupon:          terms.CouponRate / 100,
		Principal:       P,
		Frequency:       terms.AutocallFrequency,
	})
	if err != nil {
		return nil, err
	}

	couponValue := P * terms.CouponRate / 100 * T
	distance := (S - protection) / S

	res := &models.ValuationResult{
		Product:           "Autocall/Phoenix",
		ProductType:       models.ProductAutocall,
		FairValue:         est.FairValue,
		MaxGain:           couponValue,
		MaxLoss:           P * (1 - terms.BarrierLevel/100),
		RiskLevel:         clampRisk((1-distance)*40 + sigma*80),
		ProbabilityProfit: pricing.BarrierSurvival(S, protection, T, r, sigma),
		BreakEvenPrice:    protection,
		Greeks:            pricing.CalculateGreeks(S, protection, T, r, sigma, pricing.Put).Scale(P / S),
		Autocall: &models.AutocallComponents{
			CouponValue:            couponValue,
			AutocallBarrierPrice:   trigger,
			ProtectionBarrierPrice: protection,
			AutocallProbability:    est.AutocallProbability,
			BarrierBreachProb:      est.BreachProbability,
			ExpectedLifeYears:      est.ExpectedLife,
			Paths:                  est.Paths,
		},
	}

	return e.finalize(res)
}
